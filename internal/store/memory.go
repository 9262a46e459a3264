package store

import (
	"context"
	"sync"

	"github.com/park285/Cheese-chess-trainer/internal/history"
)

// Memory is a process-local store used when no redis URL is configured.
type Memory struct {
	mu    sync.Mutex
	snaps map[string]history.Snapshot
}

func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]history.Snapshot)}
}

func (m *Memory) Save(_ context.Context, key string, snap history.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[key] = clone(snap)
	return nil
}

func (m *Memory) Load(_ context.Context, key string) (history.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[key]
	if !ok {
		return history.Snapshot{}, false, nil
	}
	return clone(snap), true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, key)
	return nil
}

func (m *Memory) Close() error { return nil }

func clone(s history.Snapshot) history.Snapshot {
	out := history.Snapshot{
		Positions:    make([]string, len(s.Positions)),
		Descriptions: make([]string, len(s.Descriptions)),
		Current:      s.Current,
	}
	copy(out.Positions, s.Positions)
	copy(out.Descriptions, s.Descriptions)
	return out
}
