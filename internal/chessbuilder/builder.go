// Package chessbuilder assembles the trainer's runtime dependencies from
// configuration.
package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	corechess "github.com/park285/Cheese-chess-trainer/internal/chess"
	"github.com/park285/Cheese-chess-trainer/internal/config"
	"github.com/park285/Cheese-chess-trainer/internal/history"
	"github.com/park285/Cheese-chess-trainer/internal/msgcat"
	"github.com/park285/Cheese-chess-trainer/internal/puzzle"
	"github.com/park285/Cheese-chess-trainer/internal/store"
	"github.com/park285/Cheese-chess-trainer/internal/trainer"
	"github.com/park285/Cheese-chess-trainer/internal/transport/ws"
)

const redisDialTimeout = 5 * time.Second

type Deps struct {
	Catalog *msgcat.Catalog
	// Engine is nil when no engine is configured; games are then limited
	// to the playground.
	Engine  *corechess.Engine
	Port    history.Port
	Puzzles puzzle.Source
	Server  *ws.Server

	closers []io.Closer
}

// New wires config into a ready-to-start server. Everything opened so far is
// closed again when a later step fails.
func New(cfg *config.AppConfig, logger *zap.Logger) (deps *Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps = &Deps{}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	deps.Catalog, err = msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("init messages: %w", err)
	}

	if cfg.EngineAvailable() {
		engine, err := corechess.NewEngine(corechess.EngineConfig{
			BinaryPath: cfg.StockfishPath,
			Capacity:   cfg.EnginePoolCapacity,
			Threads:    cfg.EngineThreads,
			HashMB:     cfg.EngineHashMB,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init engine: %w", err)
		}
		deps.Engine = engine
		deps.closers = append(deps.closers, engine)
	} else {
		logger.Warn("engine_disabled", zap.Bool("enabled", cfg.EngineEnabled), zap.String("path", cfg.StockfishPath))
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
		defer cancel()
		rs, err := store.OpenRedis(ctx, cfg.RedisURL, cfg.HistoryTTL)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
		deps.Port = rs
		deps.closers = append(deps.closers, rs)
	} else {
		logger.Info("history_store_memory")
		deps.Port = store.NewMemory()
	}

	if path := strings.TrimSpace(cfg.PuzzleFile); path != "" {
		list, err := puzzle.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("init puzzles: %w", err)
		}
		logger.Info("puzzle_file_loaded", zap.String("path", path), zap.Int("count", len(list)))
		deps.Puzzles = puzzle.FileSource{Path: path}
	}

	tmpl := trainer.Config{
		SearchTimeout:    cfg.EngineTimeout,
		Port:             deps.Port,
		Puzzles:          deps.Puzzles,
		Catalog:          deps.Catalog,
		Logger:           logger,
		AutoMoveDelay:    cfg.AutoMoveDelay,
		PuzzleRedirect:   cfg.PuzzleEndRedirect,
		DefaultRating:    cfg.DefaultRating,
		DefaultTimeLimit: cfg.DefaultTimeLimitSec,
	}
	if deps.Engine != nil {
		tmpl.Searcher = deps.Engine
	}
	deps.Server = ws.New(ws.Options{
		Addr:     cfg.ListenAddr,
		Template: tmpl,
		Logger:   logger,
	})
	return deps, nil
}

// Close releases the engine pool and the history store.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	d.closers = nil
	return errors.Join(errs...)
}
