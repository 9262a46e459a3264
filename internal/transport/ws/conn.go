package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-chess-trainer/internal/puzzle"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
	"github.com/park285/Cheese-chess-trainer/internal/trainer"
	"github.com/park285/Cheese-chess-trainer/pkg/chessdto"
)

const (
	writeTimeout = 5 * time.Second
	replyBuffer  = 16
)

// conn pumps one websocket. State pushes land in a single slot so timer and
// engine goroutines never wait on the network; replies to requests are
// queued in order.
type conn struct {
	ws     *websocket.Conn
	svc    *trainer.Service
	logger *zap.Logger

	mu      sync.Mutex
	pending *chessdto.TrainerState
	wake    chan struct{}
	replies chan chessdto.Outbound
}

func newConn(wc *websocket.Conn, cfg trainer.Config, logger *zap.Logger) *conn {
	c := &conn{
		ws:      wc,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		replies: make(chan chessdto.Outbound, replyBuffer),
	}
	cfg.OnState = c.pushState
	c.svc = trainer.New(cfg)
	c.logger = logger.With(zap.String("trainer", c.svc.Key()))
	return c
}

func (c *conn) pushState(st chessdto.TrainerState) {
	c.mu.Lock()
	c.pending = &st
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *conn) takeState() *chessdto.TrainerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.pending
	c.pending = nil
	return st
}

func (c *conn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.logger.Info("ws_connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		c.writeLoop(ctx)
	}()

	c.pushState(c.svc.State())
	err := c.readLoop(ctx)
	cancel()
	c.svc.Close()
	wg.Wait()

	status := websocket.CloseStatus(err)
	if status == -1 {
		_ = c.ws.Close(websocket.StatusGoingAway, "server closing")
	} else {
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}
	c.logger.Info("ws_disconnected", zap.Int("status", int(status)), zap.Error(err))
}

func (c *conn) readLoop(ctx context.Context) error {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			c.reply(ctx, c.errorReply("", badRequest("binary frame")))
			continue
		}
		var in chessdto.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.reply(ctx, c.errorReply("", badRequest(err.Error())))
			continue
		}
		if out, ok := c.dispatch(ctx, in); ok {
			c.reply(ctx, out)
		}
	}
}

func (c *conn) reply(ctx context.Context, out chessdto.Outbound) {
	select {
	case c.replies <- out:
	case <-ctx.Done():
	}
}

func (c *conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-c.replies:
			if err := c.write(ctx, out); err != nil {
				c.logger.Debug("ws_write_failed", zap.Error(err))
				return
			}
		case <-c.wake:
			st := c.takeState()
			if st == nil {
				continue
			}
			if err := c.write(ctx, chessdto.Outbound{Type: chessdto.MsgState, State: st}); err != nil {
				c.logger.Debug("ws_write_failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *conn) write(ctx context.Context, out chessdto.Outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, out)
}

// dispatch runs one request. It returns a reply when the request produced
// something other than a state change.
func (c *conn) dispatch(ctx context.Context, in chessdto.Inbound) (chessdto.Outbound, bool) {
	out, err := c.handle(ctx, in)
	var end *puzzle.EndOfSet
	switch {
	case errors.As(err, &end):
		return chessdto.Outbound{
			Type:     chessdto.MsgEndOfSet,
			Redirect: end.Redirect,
			Message:  c.svc.Catalog().Text("puzzle.end_of_set", nil),
		}, true
	case err != nil:
		return c.errorReply(in.Type, err), true
	case out != nil:
		return *out, true
	default:
		return chessdto.Outbound{}, false
	}
}

func (c *conn) handle(ctx context.Context, in chessdto.Inbound) (*chessdto.Outbound, error) {
	switch in.Type {
	case chessdto.MsgStartGame:
		return nil, c.svc.StartGame(gameOptions(in))
	case chessdto.MsgRestoreGame:
		return nil, c.svc.RestoreGame(ctx, gameOptions(in))
	case chessdto.MsgSelect:
		sq, err := rules.ParseSquare(in.Square)
		if err != nil {
			return nil, err
		}
		return nil, c.svc.Select(sq)
	case chessdto.MsgMove, chessdto.MsgPuzzleMove:
		from, to, promo, err := parseMove(in)
		if err != nil {
			return nil, err
		}
		return nil, c.svc.Move(from, to, promo)
	case chessdto.MsgResign:
		return nil, c.svc.Resign()
	case chessdto.MsgTakeBack:
		return nil, c.svc.TakeBack()
	case chessdto.MsgNavigate:
		return nil, c.svc.Navigate(in.Index)
	case chessdto.MsgResetGame:
		c.svc.ResetGame()
		return nil, nil
	case chessdto.MsgLoadPuzzles:
		return nil, c.svc.LoadPuzzles(ctx, puzzle.FilterFor(in.Difficulty, in.Theme, in.Limit))
	case chessdto.MsgHint:
		sq, err := c.svc.Hint()
		if err != nil {
			return nil, err
		}
		return &chessdto.Outbound{
			Type:    chessdto.MsgHintShow,
			Square:  string(sq),
			Message: c.svc.Catalog().Text("puzzle.hint", map[string]string{"Square": string(sq)}),
		}, nil
	case chessdto.MsgPuzzleTakeBack:
		return nil, c.svc.PuzzleTakeBack()
	case chessdto.MsgNextPuzzle:
		return nil, c.svc.NextPuzzle()
	case chessdto.MsgSkipPuzzle:
		return nil, c.svc.SkipPuzzle()
	case chessdto.MsgGiveUp:
		return nil, c.svc.GiveUp()
	case chessdto.MsgSetEngine:
		if in.Enabled == nil {
			return nil, badRequest("enabled is required")
		}
		return nil, c.svc.SetEngineEnabled(*in.Enabled)
	default:
		return nil, badRequest(fmt.Sprintf("unknown message type %q", in.Type))
	}
}

func gameOptions(in chessdto.Inbound) trainer.GameOptions {
	return trainer.GameOptions{
		Color:      in.Color,
		TimeLimit:  in.TimeLimit,
		Rating:     in.Rating,
		Mode:       in.Mode,
		PlayerName: in.Name,
	}
}

func parseMove(in chessdto.Inbound) (rules.Square, rules.Square, rules.Promotion, error) {
	from, err := rules.ParseSquare(in.From)
	if err != nil {
		return "", "", rules.NoPromotion, err
	}
	to, err := rules.ParseSquare(in.To)
	if err != nil {
		return "", "", rules.NoPromotion, err
	}
	promo, err := rules.ParsePromotion(in.Promotion)
	if err != nil {
		return "", "", rules.NoPromotion, err
	}
	return from, to, promo, nil
}

func badRequest(detail string) error {
	return fmt.Errorf("%w: %s", trainer.ErrBadRequest, detail)
}

func (c *conn) errorReply(typ string, err error) chessdto.Outbound {
	de := trainer.DomainError(err, c.svc.Catalog())
	if de.Code == chessdto.CodeInternal {
		c.logger.Warn("ws_request_failed", zap.String("type", typ), zap.Error(err))
	} else {
		c.logger.Debug("ws_request_rejected", zap.String("type", typ), zap.String("code", de.Code), zap.Error(err))
	}
	return chessdto.Outbound{Type: chessdto.MsgError, Error: &de}
}
