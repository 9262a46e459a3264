// Package puzzle verifies player moves against a stored solution line and
// plays the computer's half of it after a short delay.
package puzzle

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/domain"
	"github.com/park285/Cheese-chess-trainer/internal/history"
	"github.com/park285/Cheese-chess-trainer/internal/obslog"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
	"github.com/park285/Cheese-chess-trainer/internal/sched"
)

const DefaultAutoMoveDelay = 2 * time.Second

type State int

const (
	Idle State = iota
	Loaded
	InProgress
	Solved
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case InProgress:
		return "in_progress"
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "idle"
	}
}

// Active reports whether moves are still accepted.
func (s State) Active() bool { return s == Loaded || s == InProgress }

type Config struct {
	Scheduler     sched.Scheduler
	AutoMoveDelay time.Duration
	Logger        *zap.Logger
	Describe      func(mv rules.Move, mover rules.Color) string
	// OnChange is called without the session lock held.
	OnChange func(Snapshot)
}

type Snapshot struct {
	State           State
	PuzzleID        string
	Theme           string
	Rating          int
	Orientation     rules.Color
	FEN             string
	LatestFEN       string
	CurrentIndex    int
	Length          int
	Descriptions    []string
	Cursor          int
	SolutionLength  int
	Mistakes        int
	PlayerToMove    bool
	AutoMovePending bool
	LastMove        string
}

type Session struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	puzzle      domain.Puzzle
	hist        *history.History
	cursor      int
	orientation rules.Color
	mistakes    int
	lastMove    string
	auto        sched.Timer
	autoGen     uint64
}

func NewSession(cfg Config) *Session {
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched.System()
	}
	if cfg.AutoMoveDelay <= 0 {
		cfg.AutoMoveDelay = DefaultAutoMoveDelay
	}
	if cfg.Describe == nil {
		cfg.Describe = func(mv rules.Move, _ rules.Color) string { return mv.SAN }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = obslog.L()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Load replaces whatever puzzle was active with p.
func (s *Session) Load(p domain.Puzzle) error {
	if err := Validate(p); err != nil {
		return err
	}
	start, err := rules.Load(p.FEN)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPuzzle, p.ID, err)
	}
	p.Convention = p.EffectiveConvention()

	s.mu.Lock()
	s.cancelAutoLocked()
	s.puzzle = p
	s.hist = history.New(start)
	s.cursor = 0
	s.orientation = orientationFor(start, p.Convention)
	s.mistakes = 0
	s.lastMove = ""
	s.state = Loaded
	s.scheduleAutoLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("puzzle_loaded",
		zap.String("id", p.ID),
		zap.String("convention", string(p.Convention)),
		zap.String("orientation", snap.Orientation.String()),
		zap.Int("moves", len(p.Moves)))
	s.notify(snap)
	return nil
}

// AttemptMove checks a player move against the next solution entry. A legal
// move that differs from the solution is counted as a mistake and leaves the
// position untouched.
func (s *Session) AttemptMove(from, to rules.Square, promo rules.Promotion) (rules.Move, error) {
	s.mu.Lock()
	if !s.state.Active() || s.cursor >= len(s.puzzle.Moves) {
		s.mu.Unlock()
		return rules.Move{}, ErrNotActive
	}
	latest := s.hist.Latest()
	if latest.Turn() != s.orientation {
		s.mu.Unlock()
		return rules.Move{}, ErrNotYourTurn
	}
	mv, err := rules.Apply(latest, from, to, promo)
	if err != nil {
		s.mu.Unlock()
		return rules.Move{}, err
	}
	expected := s.puzzle.Moves[s.cursor]
	if !matches(mv, expected) {
		s.mistakes++
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Debug("puzzle_wrong_move",
			zap.String("id", snap.PuzzleID),
			zap.String("move", mv.UCI()),
			zap.Int("cursor", snap.Cursor))
		s.notify(snap)
		return rules.Move{}, fmt.Errorf("%w: %s", ErrWrongMove, mv.UCI())
	}
	s.advanceLocked(mv)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return mv, nil
}

// matches compares squares and, when the solution names one, the promotion
// piece.
func matches(mv rules.Move, expected string) bool {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if len(expected) < 4 || string(mv.From)+string(mv.To) != expected[:4] {
		return false
	}
	return len(expected) == 4 || string(mv.Promotion) == expected[4:]
}

func (s *Session) advanceLocked(mv rules.Move) {
	_ = s.hist.Navigate(s.hist.Len() - 1)
	s.hist.Append(mv.After, s.cfg.Describe(mv, mv.Before.Turn()))
	s.cursor++
	s.lastMove = mv.UCI()
	s.state = InProgress
	if s.cursor == len(s.puzzle.Moves) {
		s.state = Solved
		s.logger.Info("puzzle_solved", zap.String("id", s.puzzle.ID), zap.Int("mistakes", s.mistakes))
		return
	}
	s.scheduleAutoLocked()
}

func (s *Session) computerTurnLocked() bool {
	return s.state.Active() &&
		s.cursor < len(s.puzzle.Moves) &&
		s.hist.Latest().Turn() != s.orientation
}

func (s *Session) scheduleAutoLocked() {
	s.cancelAutoLocked()
	if !s.computerTurnLocked() {
		return
	}
	gen := s.autoGen
	s.auto = s.cfg.Scheduler.AfterFunc(s.cfg.AutoMoveDelay, func() { s.autoMove(gen) })
}

func (s *Session) cancelAutoLocked() {
	s.autoGen++
	if s.auto != nil {
		s.auto.Stop()
		s.auto = nil
	}
}

func (s *Session) autoMove(gen uint64) {
	s.mu.Lock()
	if gen != s.autoGen || !s.computerTurnLocked() {
		s.mu.Unlock()
		return
	}
	s.auto = nil
	uci := s.puzzle.Moves[s.cursor]
	mv, err := rules.ApplyUCI(s.hist.Latest(), uci)
	if err != nil {
		// unreachable for validated lines
		s.state = Failed
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Error("puzzle_auto_move_failed", zap.String("id", snap.PuzzleID), zap.String("move", uci), zap.Error(err))
		s.notify(snap)
		return
	}
	s.advanceLocked(mv)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("puzzle_auto_move", zap.String("id", snap.PuzzleID), zap.String("move", uci))
	s.notify(snap)
}

// Hint returns the origin square of the next solution move.
func (s *Session) Hint() (rules.Square, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Active() || s.cursor >= len(s.puzzle.Moves) {
		return "", ErrNotActive
	}
	from, _, _, err := rules.ParseUCI(s.puzzle.Moves[s.cursor])
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidPuzzle, s.puzzle.ID, err)
	}
	return from, nil
}

// TakeBack undoes one ply, player's or computer's. If the computer is then
// on move its reply is scheduled again.
func (s *Session) TakeBack() (bool, error) {
	s.mu.Lock()
	if !s.state.Active() {
		s.mu.Unlock()
		return false, ErrNotActive
	}
	if s.cursor == 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.cancelAutoLocked()
	s.hist.TruncateLast()
	_ = s.hist.Navigate(s.hist.Len() - 1)
	s.cursor--
	s.lastMove = ""
	if s.cursor == 0 {
		s.state = Loaded
	}
	s.scheduleAutoLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true, nil
}

// Fail gives up on the active puzzle.
func (s *Session) Fail() error {
	return s.finish(Failed)
}

// Skip marks the active puzzle skipped.
func (s *Session) Skip() error {
	return s.finish(Skipped)
}

func (s *Session) finish(to State) error {
	s.mu.Lock()
	if !s.state.Active() {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.cancelAutoLocked()
	s.state = to
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("puzzle_"+to.String(), zap.String("id", snap.PuzzleID), zap.Int("cursor", snap.Cursor))
	s.notify(snap)
	return nil
}

// Navigate moves the view pointer without touching the solution cursor.
func (s *Session) Navigate(index int) error {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return ErrNotActive
	}
	if err := s.hist.Navigate(index); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Reset drops the puzzle and any pending auto-move.
func (s *Session) Reset() {
	s.mu.Lock()
	s.cancelAutoLocked()
	s.state = Idle
	s.puzzle = domain.Puzzle{}
	s.hist = nil
	s.cursor, s.mistakes = 0, 0
	s.orientation = rules.NoColor
	s.lastMove = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Close cancels the pending auto-move without notifying.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelAutoLocked()
	s.mu.Unlock()
}

// Remaining lists the solution moves not yet played.
func (s *Session) Remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.puzzle.Moves) {
		return nil
	}
	return append([]string(nil), s.puzzle.Moves[s.cursor:]...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           s.state,
		PuzzleID:        s.puzzle.ID,
		Theme:           s.puzzle.Theme,
		Rating:          s.puzzle.Rating,
		Orientation:     s.orientation,
		Cursor:          s.cursor,
		SolutionLength:  len(s.puzzle.Moves),
		Mistakes:        s.mistakes,
		AutoMovePending: s.auto != nil,
		LastMove:        s.lastMove,
	}
	if s.hist == nil {
		return snap
	}
	snap.FEN = s.hist.Current().FEN()
	snap.LatestFEN = s.hist.Latest().FEN()
	snap.CurrentIndex = s.hist.CurrentIndex()
	snap.Length = s.hist.Len()
	snap.Descriptions = s.hist.Descriptions()
	snap.PlayerToMove = s.state.Active() && s.cursor < len(s.puzzle.Moves) && s.hist.Latest().Turn() == s.orientation
	return snap
}

func (s *Session) notify(snap Snapshot) {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}
