// Package trainer is the entry point the browser bridge talks to. One
// Service backs one connected player: a game session, a puzzle session and
// the square selection of whichever is active.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/game"
	"github.com/park285/Cheese-chess-trainer/internal/history"
	"github.com/park285/Cheese-chess-trainer/internal/msgcat"
	"github.com/park285/Cheese-chess-trainer/internal/obslog"
	"github.com/park285/Cheese-chess-trainer/internal/opponent"
	"github.com/park285/Cheese-chess-trainer/internal/puzzle"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
	"github.com/park285/Cheese-chess-trainer/internal/sched"
	"github.com/park285/Cheese-chess-trainer/internal/selection"
	"github.com/park285/Cheese-chess-trainer/pkg/chessdto"
)

var ErrEngineUnavailable = errors.New("engine unavailable")

const (
	ActiveNone   = ""
	ActiveGame   = "game"
	ActivePuzzle = "puzzle"
)

type Config struct {
	// Key names the persisted game history. A random key is used when
	// empty.
	Key       string
	Scheduler sched.Scheduler
	// Searcher computes engine moves. Nil limits games to the playground.
	Searcher      opponent.Searcher
	SearchTimeout time.Duration
	Port          history.Port
	Puzzles       puzzle.Source
	Catalog       *msgcat.Catalog
	Logger        *zap.Logger

	AutoMoveDelay    time.Duration
	PuzzleRedirect   string
	DefaultRating    int
	DefaultTimeLimit int

	// OnState receives the full state after every change. It may be called
	// from timer and engine goroutines and must not block.
	OnState func(chessdto.TrainerState)
}

type Service struct {
	cfg    Config
	key    string
	logger *zap.Logger

	provider *opponent.Provider
	game     *game.Session
	puzzles  *puzzle.Session
	set      *puzzle.Set

	mu     sync.Mutex
	active string
	sel    selection.State
	closed bool
}

func New(cfg Config) *Service {
	if cfg.Key == "" {
		cfg.Key = uuid.NewString()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched.System()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = defaultCatalog()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = obslog.L()
	}
	logger = logger.With(zap.String("trainer", cfg.Key))

	s := &Service{cfg: cfg, key: cfg.Key, logger: logger}

	gcfg := game.Config{
		Scheduler: cfg.Scheduler,
		Port:      cfg.Port,
		Key:       cfg.Key,
		Logger:    logger,
		OnChange:  func(game.Snapshot) { s.emit() },
	}
	if cfg.Searcher != nil {
		s.provider = opponent.New(cfg.Searcher, opponent.Options{Timeout: cfg.SearchTimeout, Logger: logger})
		gcfg.Opponent = s.provider
	}
	s.game = game.NewSession(gcfg)
	s.puzzles = puzzle.NewSession(puzzle.Config{
		Scheduler:     cfg.Scheduler,
		AutoMoveDelay: cfg.AutoMoveDelay,
		Logger:        logger,
		OnChange:      func(puzzle.Snapshot) { s.emit() },
	})
	s.set = puzzle.NewSet(s.puzzles, cfg.PuzzleRedirect)
	return s
}

var defaultCatalog = sync.OnceValue(func() *msgcat.Catalog {
	c, err := msgcat.New("")
	if err != nil {
		panic(fmt.Sprintf("embedded message catalog: %v", err))
	}
	return c
})

func (s *Service) Key() string { return s.key }

func (s *Service) Catalog() *msgcat.Catalog { return s.cfg.Catalog }

// GameOptions fills unset start options from the configured defaults.
type GameOptions struct {
	Color      string
	TimeLimit  *int
	Rating     int
	Mode       string
	PlayerName string
}

func (s *Service) startOptions(o GameOptions) (game.StartOptions, error) {
	color, err := rules.ParseColor(o.Color)
	if err != nil {
		return game.StartOptions{}, fmt.Errorf("%w: %v", game.ErrBadOptions, err)
	}
	opts := game.StartOptions{
		HumanColor:       color,
		TimeLimitSeconds: s.cfg.DefaultTimeLimit,
		Rating:           o.Rating,
		Mode:             game.ParseMode(o.Mode),
		PlayerName:       o.PlayerName,
	}
	if o.TimeLimit != nil {
		opts.TimeLimitSeconds = *o.TimeLimit
	}
	if opts.Rating <= 0 {
		opts.Rating = s.cfg.DefaultRating
	}
	if opts.Mode == game.VsEngine && (s.provider == nil || !s.provider.Enabled()) {
		return opts, ErrEngineUnavailable
	}
	return opts, nil
}

func (s *Service) StartGame(o GameOptions) error {
	opts, err := s.startOptions(o)
	if err != nil {
		return err
	}
	s.focus(ActiveGame)
	return s.game.Start(opts)
}

// RestoreGame resumes the game saved under this service's key.
func (s *Service) RestoreGame(ctx context.Context, o GameOptions) error {
	opts, err := s.startOptions(o)
	if err != nil {
		return err
	}
	if err := s.game.Resume(ctx, opts); err != nil {
		return err
	}
	s.focus(ActiveGame)
	return nil
}

func (s *Service) Resign() error { return s.game.Resign() }

func (s *Service) TakeBack() error {
	s.clearSelection()
	_, err := s.game.TakeBack()
	return err
}

func (s *Service) Navigate(index int) error {
	s.clearSelection()
	if s.Active() == ActivePuzzle {
		return s.puzzles.Navigate(index)
	}
	return s.game.Navigate(index)
}

// ResetGame discards the game. The puzzle session is left alone.
func (s *Service) ResetGame() {
	s.mu.Lock()
	if s.active == ActiveGame {
		s.active = ActiveNone
	}
	s.sel.Clear()
	s.mu.Unlock()
	s.game.Reset()
}

// SetEngineEnabled switches the opponent on or off. Disabling waits for an
// in-flight search to stop.
func (s *Service) SetEngineEnabled(on bool) error {
	if s.provider == nil {
		if on {
			return ErrEngineUnavailable
		}
		return nil
	}
	if !on {
		s.provider.Disable()
		s.emit()
		return nil
	}
	s.provider.Enable()
	s.game.RequestEngineMove()
	s.emit()
	return nil
}

func (s *Service) EngineEnabled() bool {
	return s.provider != nil && s.provider.Enabled()
}

// Select handles a click on sq. Clicking a highlighted destination plays
// the move; otherwise the selection toggles or moves to sq.
func (s *Service) Select(sq rules.Square) error {
	if !sq.Valid() {
		return fmt.Errorf("%w: %q", rules.ErrInvalidSquare, sq)
	}
	pos, movable := s.selectablePosition()

	s.mu.Lock()
	if s.sel.Selected() && s.sel.Contains(sq) {
		from := s.sel.Origin
		s.sel.Clear()
		s.mu.Unlock()
		return s.Move(from, sq, rules.NoPromotion)
	}
	if !movable || !s.sel.Select(pos, sq) {
		s.sel.Clear()
	}
	s.mu.Unlock()

	s.emit()
	return nil
}

// selectablePosition returns the position the player may move in, and
// whether the player is allowed to move at all.
func (s *Service) selectablePosition() (rules.Position, bool) {
	switch s.Active() {
	case ActiveGame:
		snap := s.game.Snapshot()
		if snap.State != game.InProgress || snap.EngineThinking {
			return rules.Position{}, false
		}
		pos, err := rules.Load(snap.FEN)
		if err != nil {
			return rules.Position{}, false
		}
		if snap.Mode == game.VsEngine && pos.Turn() != snap.HumanColor {
			return rules.Position{}, false
		}
		return pos, true
	case ActivePuzzle:
		snap := s.puzzles.Snapshot()
		if !snap.PlayerToMove {
			return rules.Position{}, false
		}
		pos, err := rules.Load(snap.LatestFEN)
		return pos, err == nil
	default:
		return rules.Position{}, false
	}
}

// Move plays from→to in the active session.
func (s *Service) Move(from, to rules.Square, promo rules.Promotion) error {
	s.clearSelection()
	switch s.Active() {
	case ActiveGame:
		_, err := s.game.ApplyMove(from, to, promo)
		return err
	case ActivePuzzle:
		_, err := s.puzzles.AttemptMove(from, to, promo)
		return err
	default:
		return game.ErrNotInProgress
	}
}

// LoadPuzzles fetches records matching f and loads the first.
func (s *Service) LoadPuzzles(ctx context.Context, f puzzle.Filter) error {
	if s.cfg.Puzzles == nil {
		return puzzle.ErrNoPuzzles
	}
	list, err := s.cfg.Puzzles.Puzzles(ctx, f)
	if err != nil {
		return err
	}
	s.focus(ActivePuzzle)
	if err := s.set.Replace(list); err != nil {
		return err
	}
	s.logger.Info("puzzles_loaded", zap.String("theme", f.Theme), zap.Int("count", len(list)))
	return nil
}

func (s *Service) Hint() (rules.Square, error) { return s.puzzles.Hint() }

func (s *Service) PuzzleTakeBack() error {
	s.clearSelection()
	_, err := s.puzzles.TakeBack()
	return err
}

// NextPuzzle returns *puzzle.EndOfSet once the set is exhausted.
func (s *Service) NextPuzzle() error {
	s.clearSelection()
	return s.set.Next()
}

func (s *Service) SkipPuzzle() error {
	s.clearSelection()
	return s.set.Skip()
}

func (s *Service) GiveUp() error {
	s.clearSelection()
	return s.puzzles.Fail()
}

func (s *Service) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Service) focus(active string) {
	s.mu.Lock()
	s.active = active
	s.sel.Clear()
	s.mu.Unlock()
}

func (s *Service) clearSelection() {
	s.mu.Lock()
	s.sel.Clear()
	s.mu.Unlock()
}

// Close stops timers and engine work. No state is emitted afterwards.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.provider != nil {
		s.provider.Disable()
	}
	s.game.Reset()
	s.puzzles.Close()
	s.logger.Debug("trainer_closed")
}

func (s *Service) emit() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.cfg.OnState == nil {
		return
	}
	s.cfg.OnState(s.State())
}
