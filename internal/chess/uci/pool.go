package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

// SpawnFunc starts a ready session for the given options.
type SpawnFunc func(ctx context.Context, opt Options) (*Session, error)

type PoolConfig struct {
	BinaryPath string
	// PerOptionsCapacity bounds live sessions per distinct option set.
	PerOptionsCapacity int
	// Spawn overrides process creation; BinaryPath is ignored when set.
	Spawn SpawnFunc
}

var ErrPoolClosed = errors.New("engine pool closed")

// Pool keeps warm engine processes per strength setting. Strength options
// are only sent during the handshake, so a process never changes bucket.
type Pool struct {
	spawn    SpawnFunc
	capacity int

	mu      sync.Mutex
	closed  bool
	buckets map[Options]*bucket
	owners  map[*Session]*bucket
}

// bucket holds the idle processes of one option set. A token in slots
// stands for one live process, idle or lent out.
type bucket struct {
	slots chan struct{}
	idle  []*Session
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	spawn := cfg.Spawn
	if spawn == nil {
		if cfg.BinaryPath == "" {
			return nil, fmt.Errorf("binary path required")
		}
		if _, err := os.Stat(cfg.BinaryPath); err != nil {
			return nil, fmt.Errorf("engine binary check: %w", err)
		}
		path := cfg.BinaryPath
		spawn = func(ctx context.Context, opt Options) (*Session, error) {
			return NewSession(ctx, path, opt)
		}
	}
	capacity := cfg.PerOptionsCapacity
	if capacity <= 0 {
		capacity = min(max(runtime.NumCPU(), 2), 4)
	}
	return &Pool{
		spawn:    spawn,
		capacity: capacity,
		buckets:  make(map[Options]*bucket),
		owners:   make(map[*Session]*bucket),
	}, nil
}

// Acquire lends out a ready session for opt, reusing an idle one when it
// still answers isready. It blocks while the bucket is at capacity.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	b, err := p.bucketFor(opt)
	if err != nil {
		return nil, err
	}
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		s := p.popIdle(b)
		if s == nil {
			break
		}
		if err := s.EnsureReady(ctx); err == nil {
			return p.lend(b, s)
		}
		_ = s.Close()
	}

	s, err := p.spawn(ctx, opt)
	if err != nil {
		<-b.slots
		return nil, err
	}
	return p.lend(b, s)
}

// Release hands a session back. A non-nil err, or a closed pool, discards
// the process instead.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	b, ok := p.owners[s]
	delete(p.owners, s)
	keep := ok && err == nil && !p.closed
	if keep {
		b.idle = append(b.idle, s)
	}
	p.mu.Unlock()

	if !keep {
		_ = s.Close()
	}
	if ok {
		<-b.slots
	}
}

// Close shuts down idle processes. Lent-out sessions are closed when they
// come back.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	var idle []*Session
	for _, b := range p.buckets {
		idle = append(idle, b.idle...)
		b.idle = nil
	}
	p.mu.Unlock()

	var errs []error
	for _, s := range idle {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) bucketFor(opt Options) (*bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	b, ok := p.buckets[opt]
	if !ok {
		b = &bucket{slots: make(chan struct{}, p.capacity)}
		p.buckets[opt] = b
	}
	return b, nil
}

func (p *Pool) popIdle(b *bucket) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(b.idle)
	if n == 0 {
		return nil
	}
	s := b.idle[n-1]
	b.idle = b.idle[:n-1]
	return s
}

func (p *Pool) lend(b *bucket, s *Session) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = s.Close()
		<-b.slots
		return nil, ErrPoolClosed
	}
	p.owners[s] = b
	p.mu.Unlock()
	return s, nil
}
