package chess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/chess/uci"
	"github.com/park285/Cheese-chess-trainer/internal/obslog"
)

// ErrNoMove is returned when the engine reports no legal move.
var ErrNoMove = errors.New("engine returned no move")

type EngineConfig struct {
	BinaryPath string
	Capacity   int
	Threads    int
	HashMB     int
	Logger     *zap.Logger
	// Spawn replaces process creation, mainly for tests.
	Spawn uci.SpawnFunc
}

type Engine struct {
	pool    *uci.Pool
	threads int
	hashMB  int
	logger  *zap.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath:         cfg.BinaryPath,
		PerOptionsCapacity: cfg.Capacity,
		Spawn:              cfg.Spawn,
	})
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = obslog.L()
	}
	return &Engine{
		pool:    pool,
		threads: cfg.Threads,
		hashMB:  cfg.HashMB,
		logger:  logger,
	}, nil
}

// BestMove searches fen at the given strength and returns the move in UCI
// form. A cancelled ctx aborts the search and the engine process is
// discarded.
func (e *Engine) BestMove(ctx context.Context, fen string, s Strength) (string, error) {
	start := time.Now()

	session, err := e.pool.Acquire(ctx, s.options(e.threads, e.hashMB))
	if err != nil {
		return "", fmt.Errorf("acquire engine: %w", err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return "", err
	}

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    fen,
		Limits: s.limits(),
	})
	if err != nil {
		releaseErr = err
		return "", err
	}
	if resp.BestMove == "" {
		return "", ErrNoMove
	}

	e.logger.Debug("engine_bestmove",
		zap.String("fen", fen),
		zap.String("move", resp.BestMove),
		zap.Int("rating", s.Rating),
		zap.Int("skill", s.SkillLevel),
		zap.Int("depth", resp.Depth),
		zap.Int("score_cp", resp.ScoreCP),
		zap.Duration("took", time.Since(start)))
	return resp.BestMove, nil
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}
