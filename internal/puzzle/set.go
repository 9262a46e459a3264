package puzzle

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/domain"
)

// Set walks a session through an ordered list of puzzles.
type Set struct {
	session  *Session
	redirect string

	mu      sync.Mutex
	puzzles []domain.Puzzle
	index   int
}

// NewSet binds a set to session. redirect is reported in EndOfSet once the
// list is exhausted.
func NewSet(session *Session, redirect string) *Set {
	return &Set{session: session, redirect: redirect, index: -1}
}

// Replace installs a new list, dropping records that fail validation, and
// loads the first one.
func (s *Set) Replace(puzzles []domain.Puzzle) error {
	valid := make([]domain.Puzzle, 0, len(puzzles))
	for _, p := range puzzles {
		if err := Validate(p); err != nil {
			s.session.logger.Warn("puzzle_rejected", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return ErrNoPuzzles
	}

	s.mu.Lock()
	s.puzzles = valid
	s.index = 0
	first := valid[0]
	s.mu.Unlock()

	return s.session.Load(first)
}

// Next loads the following puzzle or returns *EndOfSet.
func (s *Set) Next() error {
	s.mu.Lock()
	if s.index+1 >= len(s.puzzles) {
		s.mu.Unlock()
		return &EndOfSet{Redirect: s.redirect}
	}
	s.index++
	p := s.puzzles[s.index]
	s.mu.Unlock()

	return s.session.Load(p)
}

// Skip marks the active puzzle skipped and moves on as Next does.
func (s *Set) Skip() error {
	if err := s.session.Skip(); err != nil && !errors.Is(err, ErrNotActive) {
		return err
	}
	return s.Next()
}

// Position reports the 0-based index of the active puzzle and the set size.
func (s *Set) Position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, len(s.puzzles)
}

func (s *Set) Redirect() string { return s.redirect }
