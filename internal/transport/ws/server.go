// Package ws serves the browser bridge: an echo server with one websocket
// per player, each backed by its own trainer.Service.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Cheese-chess-trainer/internal/obslog"
	"github.com/park285/Cheese-chess-trainer/internal/trainer"
)

const readLimit = 64 << 10

type Options struct {
	Addr string
	// Template is copied for every connection; Key and OnState are filled
	// in per connection.
	Template trainer.Config
	// OriginPatterns is passed to websocket.Accept. Empty means same-origin
	// only.
	OriginPatterns []string
	Logger         *zap.Logger
}

type Server struct {
	opts   Options
	logger *zap.Logger
	e      *echo.Echo

	base   context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = obslog.L()
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{opts: opts, logger: logger, base: base, cancel: cancel}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("http_request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.GET("/healthz", s.handleHealthz)
	e.GET("/ws", s.handleWS)
	s.e = e
	return s
}

func (s *Server) Handler() http.Handler { return s.e }

// Start blocks serving on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("bridge_listening", zap.String("addr", s.opts.Addr))
	if err := s.e.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every open websocket and waits
// for their services to stop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.e.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(c echo.Context) error {
	wc, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns:  s.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.Error(err))
		return nil
	}
	wc.SetReadLimit(readLimit)

	s.conns.Add(1)
	defer s.conns.Done()

	ctx, cancel := context.WithCancel(s.base)
	defer cancel()
	stop := context.AfterFunc(c.Request().Context(), cancel)
	defer stop()

	cfg := s.opts.Template
	cfg.Key = c.QueryParam("key")
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	newConn(wc, cfg, s.logger).serve(ctx)
	return nil
}
