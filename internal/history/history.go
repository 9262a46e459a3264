// Package history keeps the ordered positions of one session together with
// the move-log line of each ply and a view pointer for time travel.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

var ErrOutOfRange = errors.New("history index out of range")

// History is not safe for concurrent use; its owning session serializes
// access.
type History struct {
	positions    []rules.Position
	descriptions []string
	current      int
}

// New seeds a history with its initial position.
func New(initial rules.Position) *History {
	return &History{positions: []rules.Position{initial}}
}

// Append adds a ply. When the view pointer is behind the tail the
// abandoned future is dropped first.
func (h *History) Append(pos rules.Position, description string) {
	if h.current < len(h.positions)-1 {
		h.positions = h.positions[:h.current+1]
		h.descriptions = h.descriptions[:h.current]
	}
	h.positions = append(h.positions, pos)
	h.descriptions = append(h.descriptions, description)
	h.current = len(h.positions) - 1
}

// TruncateLast removes the tail entry. It reports false when only the
// initial position is left.
func (h *History) TruncateLast() bool {
	if len(h.positions) <= 1 {
		return false
	}
	h.positions = h.positions[:len(h.positions)-1]
	h.descriptions = h.descriptions[:len(h.descriptions)-1]
	if h.current > len(h.positions)-1 {
		h.current = len(h.positions) - 1
	}
	return true
}

func (h *History) Navigate(index int) error {
	if index < 0 || index >= len(h.positions) {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrOutOfRange, index, len(h.positions)-1)
	}
	h.current = index
	return nil
}

func (h *History) Len() int          { return len(h.positions) }
func (h *History) CurrentIndex() int { return h.current }
func (h *History) AtTail() bool      { return h.current == len(h.positions)-1 }

// Current is the displayed position.
func (h *History) Current() rules.Position { return h.positions[h.current] }

// Latest is the tail position, the one play continues from.
func (h *History) Latest() rules.Position { return h.positions[len(h.positions)-1] }

func (h *History) Initial() rules.Position { return h.positions[0] }

func (h *History) At(i int) (rules.Position, error) {
	if i < 0 || i >= len(h.positions) {
		return rules.Position{}, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	return h.positions[i], nil
}

func (h *History) Positions() []rules.Position {
	return append([]rules.Position(nil), h.positions...)
}

func (h *History) Descriptions() []string {
	return append([]string(nil), h.descriptions...)
}

// Occurrences counts tail-line entries sharing pos's repetition key.
func (h *History) Occurrences(pos rules.Position) int {
	key := pos.Key()
	n := 0
	for _, p := range h.positions {
		if p.Key() == key {
			n++
		}
	}
	return n
}

// Snapshot is the serialized form handed to a Port.
type Snapshot struct {
	Positions    []string `json:"positions"`
	Descriptions []string `json:"descriptions"`
	Current      int      `json:"current"`
}

func (h *History) Snapshot() Snapshot {
	s := Snapshot{
		Positions:    make([]string, len(h.positions)),
		Descriptions: append([]string{}, h.descriptions...),
		Current:      h.current,
	}
	for i, p := range h.positions {
		s.Positions[i] = p.FEN()
	}
	return s
}

// Restore rebuilds a history from a snapshot. Every stored position must
// parse; a bad pointer is clamped to the tail.
func Restore(s Snapshot) (*History, error) {
	if len(s.Positions) == 0 {
		return nil, errors.New("snapshot has no positions")
	}
	if len(s.Descriptions) != len(s.Positions)-1 {
		return nil, fmt.Errorf("snapshot has %d descriptions for %d positions", len(s.Descriptions), len(s.Positions))
	}
	h := &History{
		positions:    make([]rules.Position, len(s.Positions)),
		descriptions: append([]string(nil), s.Descriptions...),
		current:      s.Current,
	}
	for i, fen := range s.Positions {
		p, err := rules.Load(fen)
		if err != nil {
			return nil, fmt.Errorf("snapshot position %d: %w", i, err)
		}
		h.positions[i] = p
	}
	if h.current < 0 || h.current >= len(h.positions) {
		h.current = len(h.positions) - 1
	}
	return h, nil
}

// Port persists snapshots. Implementations are best-effort; callers log
// failures and carry on.
type Port interface {
	Save(ctx context.Context, key string, s Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, bool, error)
}
