// Package opponent runs engine searches for a session with at most one
// request in flight.
package opponent

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/chess"
	"github.com/park285/Cheese-chess-trainer/internal/obslog"
)

var ErrDisabled = errors.New("opponent provider disabled")

const defaultSearchTimeout = 45 * time.Second

// Searcher computes a move in UCI form for a position.
type Searcher interface {
	BestMove(ctx context.Context, fen string, s chess.Strength) (string, error)
}

// Reply is delivered once per request that was neither superseded nor
// cancelled. FEN is the position the move was computed for; receivers
// compare it with their current position before applying Move.
type Reply struct {
	Seq  uint64
	FEN  string
	Move string
	Err  error
}

type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

type Provider struct {
	searcher Searcher
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	enabled  bool
	seq      uint64
	inflight uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(searcher Searcher, opts Options) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = obslog.L()
	}
	return &Provider{
		searcher: searcher,
		timeout:  timeout,
		logger:   logger,
		enabled:  searcher != nil,
	}
}

// Request starts a search for fen at rating and supersedes any request
// still in flight. deliver runs on the search goroutine.
func (p *Provider) Request(fen string, rating int, deliver func(Reply)) (uint64, error) {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return 0, ErrDisabled
	}
	p.cancelLocked()

	p.seq++
	seq := p.seq
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	p.inflight, p.cancel = seq, cancel
	p.wg.Add(1)
	p.mu.Unlock()

	strength := chess.StrengthFor(rating)
	go func() {
		defer p.wg.Done()
		defer cancel()

		move, err := p.searcher.BestMove(ctx, fen, strength)

		p.mu.Lock()
		current := p.inflight == seq
		if current {
			p.inflight, p.cancel = 0, nil
		}
		p.mu.Unlock()

		if !current {
			p.logger.Debug("opponent_reply_superseded", zap.Uint64("seq", seq), zap.String("fen", fen))
			return
		}
		if err != nil {
			p.logger.Warn("opponent_search_failed", zap.Uint64("seq", seq), zap.String("fen", fen), zap.Error(err))
		}
		deliver(Reply{Seq: seq, FEN: fen, Move: move, Err: err})
	}()
	return seq, nil
}

// Cancel drops the in-flight request, if any, without waiting for it.
func (p *Provider) Cancel() {
	p.mu.Lock()
	p.cancelLocked()
	p.mu.Unlock()
}

func (p *Provider) cancelLocked() {
	if p.cancel != nil {
		p.cancel()
	}
	p.inflight, p.cancel = 0, nil
}

// Disable cancels any in-flight search, waits until its goroutine has
// returned and refuses requests until Enable. It must not be called from
// a deliver callback.
func (p *Provider) Disable() {
	p.mu.Lock()
	p.enabled = false
	p.cancelLocked()
	p.mu.Unlock()
	p.wg.Wait()
}

// Close disables the provider and closes the searcher if it holds
// resources.
func (p *Provider) Close() error {
	p.Disable()
	if c, ok := p.searcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Provider) Enable() {
	p.mu.Lock()
	p.enabled = p.searcher != nil
	p.mu.Unlock()
}

func (p *Provider) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Pending reports whether a request is in flight.
func (p *Provider) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight != 0
}
