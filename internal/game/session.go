// Package game runs a single game against the engine or in the
// playground: turn order, clocks, termination and take-backs.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/history"
	"github.com/park285/Cheese-chess-trainer/internal/obslog"
	"github.com/park285/Cheese-chess-trainer/internal/opponent"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
	"github.com/park285/Cheese-chess-trainer/internal/sched"
)

const (
	tickInterval   = time.Second
	persistTimeout = 2 * time.Second
	defaultRating  = 1500
)

// MoveRequester asks for an engine move on fen. deliver may run on any
// goroutine.
type MoveRequester interface {
	Request(fen string, rating int, deliver func(opponent.Reply)) (uint64, error)
	Cancel()
}

type Config struct {
	Scheduler sched.Scheduler
	Opponent  MoveRequester
	Port      history.Port
	// Key names the persisted history for this session.
	Key    string
	Logger *zap.Logger
	// Describe renders the move-log line of an applied move.
	Describe func(mv rules.Move, mover rules.Color) string
	// OnChange receives a snapshot after every accepted change. It is
	// called without the session lock held.
	OnChange func(Snapshot)
}

type Session struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	opts     StartOptions
	hist     *history.History
	clocks   map[rules.Color]int
	result   Result
	lastMove *rules.Move
	thinking bool
	// engineFailures counts failed searches on the latest position.
	engineFailures int
	tick           sched.Timer
	tickGen        uint64
}

func NewSession(cfg Config) *Session {
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched.System()
	}
	if cfg.Describe == nil {
		cfg.Describe = func(mv rules.Move, _ rules.Color) string { return mv.SAN }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = obslog.L()
	}
	return &Session{cfg: cfg, logger: logger, clocks: map[rules.Color]int{}}
}

// Start begins a fresh game from the initial position. Any game in
// progress is discarded.
func (s *Session) Start(opts StartOptions) error {
	opts, err := s.validate(opts)
	if err != nil {
		return err
	}
	s.begin(opts, history.New(rules.Start()))
	s.logger.Info("game_started",
		zap.String("mode", opts.Mode.String()),
		zap.String("human", opts.HumanColor.String()),
		zap.Int("time_limit", opts.TimeLimitSeconds),
		zap.Int("rating", opts.Rating))
	return nil
}

// Resume rebuilds an in-progress game from the persisted history. Clocks
// restart from the full time limit.
func (s *Session) Resume(ctx context.Context, opts StartOptions) error {
	opts, err := s.validate(opts)
	if err != nil {
		return err
	}
	if s.cfg.Port == nil {
		return ErrNoSavedGame
	}
	saved, ok, err := s.cfg.Port.Load(ctx, s.cfg.Key)
	if err != nil {
		return fmt.Errorf("load saved game: %w", err)
	}
	if !ok {
		return ErrNoSavedGame
	}
	hist, err := history.Restore(saved)
	if err != nil {
		return fmt.Errorf("restore saved game: %w", err)
	}
	latest := hist.Latest()
	status, err := rules.Evaluate(latest, hist.Occurrences(latest))
	if err != nil {
		return err
	}
	if status.Terminal() {
		return ErrNoSavedGame
	}
	_ = hist.Navigate(hist.Len() - 1)
	s.begin(opts, hist)
	s.logger.Info("game_resumed", zap.String("key", s.cfg.Key), zap.Int("plies", hist.Len()-1))
	return nil
}

func (s *Session) validate(opts StartOptions) (StartOptions, error) {
	if opts.HumanColor != rules.White && opts.HumanColor != rules.Black {
		return opts, fmt.Errorf("%w: player color %q", ErrBadOptions, opts.HumanColor)
	}
	if opts.TimeLimitSeconds < 0 {
		return opts, fmt.Errorf("%w: time limit must be >= 0, got %d", ErrBadOptions, opts.TimeLimitSeconds)
	}
	if opts.Rating <= 0 {
		opts.Rating = defaultRating
	}
	if opts.Mode == VsEngine && s.cfg.Opponent == nil {
		return opts, fmt.Errorf("%w: engine mode without an opponent", ErrBadOptions)
	}
	return opts, nil
}

func (s *Session) begin(opts StartOptions, hist *history.History) {
	s.mu.Lock()
	s.teardownLocked()
	s.opts = opts
	s.hist = hist
	s.clocks = map[rules.Color]int{rules.White: opts.TimeLimitSeconds, rules.Black: opts.TimeLimitSeconds}
	s.result = Result{}
	s.lastMove = nil
	s.engineFailures = 0
	s.state = InProgress
	s.restartClockLocked()
	s.maybeRequestEngineLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// ApplyMove plays a human move on the displayed position. In engine mode
// only the human side may move.
func (s *Session) ApplyMove(from, to rules.Square, promo rules.Promotion) (rules.Move, error) {
	s.mu.Lock()
	if s.state != InProgress {
		s.mu.Unlock()
		return rules.Move{}, ErrNotInProgress
	}
	base := s.hist.Current()
	if s.opts.Mode == VsEngine && base.Turn() != s.opts.HumanColor {
		s.mu.Unlock()
		return rules.Move{}, ErrNotYourTurn
	}
	mv, err := rules.Apply(base, from, to, promo)
	if err != nil {
		s.mu.Unlock()
		return rules.Move{}, err
	}
	if s.thinking {
		s.cfg.Opponent.Cancel()
		s.thinking = false
	}
	s.recordLocked(mv)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return mv, nil
}

// ApplyEngineReply applies an opponent reply if it still matches the
// latest position. Stale and failed replies are dropped.
func (s *Session) ApplyEngineReply(r opponent.Reply) bool {
	s.mu.Lock()
	if s.state != InProgress || s.opts.Mode != VsEngine {
		s.mu.Unlock()
		return false
	}
	latest := s.hist.Latest()
	if r.FEN != latest.FEN() {
		s.mu.Unlock()
		s.logger.Debug("engine_reply_stale", zap.Uint64("seq", r.Seq), zap.String("reply_fen", r.FEN))
		return false
	}
	s.thinking = false
	err := r.Err
	var mv rules.Move
	if err == nil && r.Move == "" {
		err = fmt.Errorf("engine returned no move")
	}
	if err == nil {
		mv, err = rules.ApplyUCI(latest, r.Move)
	}
	if err != nil {
		s.engineFailedLocked(r, err)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(snap)
		return false
	}
	s.recordLocked(mv)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return true
}

// engineFailedLocked retries a failed search once. A second failure leaves
// the engine on move until RequestEngineMove or a take-back.
func (s *Session) engineFailedLocked(r opponent.Reply, err error) {
	s.engineFailures++
	if s.engineFailures > 1 {
		s.logger.Warn("engine_reply_failed", zap.Uint64("seq", r.Seq), zap.String("move", r.Move), zap.Error(err))
		return
	}
	s.logger.Warn("engine_reply_failed_retrying", zap.Uint64("seq", r.Seq), zap.String("move", r.Move), zap.Error(err))
	s.maybeRequestEngineLocked()
}

// recordLocked appends an applied move, checks for the end of the game and
// hands the turn over.
func (s *Session) recordLocked(mv rules.Move) {
	mover := mv.Before.Turn()
	s.hist.Append(mv.After, s.cfg.Describe(mv, mover))
	s.lastMove = &mv
	s.engineFailures = 0

	status, err := rules.Evaluate(mv.After, s.hist.Occurrences(mv.After))
	if err != nil {
		s.logger.Error("evaluate_position_failed", zap.String("fen", mv.After.FEN()), zap.Error(err))
	}
	if status.Terminal() {
		winner := rules.NoColor
		if status == rules.Checkmate {
			winner = mover
		}
		s.finishLocked(Result{Winner: winner, Reason: reasonFor(status)})
		return
	}
	s.restartClockLocked()
	s.maybeRequestEngineLocked()
}

func (s *Session) Resign() error {
	s.mu.Lock()
	if s.state != InProgress {
		s.mu.Unlock()
		return ErrNotInProgress
	}
	resigner := s.opts.HumanColor
	if s.opts.Mode == Playground {
		resigner = s.hist.Latest().Turn()
	}
	s.finishLocked(Result{Winner: resigner.Other(), Reason: ReasonResignation, ResignedBy: resigner})
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// TakeBack removes the last ply. Against the engine it keeps removing
// until the human is on move again. It reports whether anything changed;
// with no human move on the board it is a no-op.
func (s *Session) TakeBack() (bool, error) {
	s.mu.Lock()
	if s.state != InProgress {
		s.mu.Unlock()
		return false, ErrNotInProgress
	}
	if s.hist.Len() <= 1 || !s.humanMovedLocked() {
		s.mu.Unlock()
		return false, nil
	}
	if s.thinking {
		s.cfg.Opponent.Cancel()
		s.thinking = false
	}
	s.hist.TruncateLast()
	if s.opts.Mode == VsEngine && s.hist.Latest().Turn() != s.opts.HumanColor && s.hist.Len() > 1 {
		s.hist.TruncateLast()
	}
	_ = s.hist.Navigate(s.hist.Len() - 1)
	s.lastMove = nil
	s.engineFailures = 0
	s.restartClockLocked()
	s.maybeRequestEngineLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return true, nil
}

// humanMovedLocked reports whether the human has a move on the board. Only
// the engine's opening move as white does not count.
func (s *Session) humanMovedLocked() bool {
	if s.opts.Mode != VsEngine || s.opts.HumanColor == rules.White {
		return true
	}
	return s.hist.Len() > 2
}

// Navigate moves the view pointer.
func (s *Session) Navigate(index int) error {
	s.mu.Lock()
	if s.state == NotStarted {
		s.mu.Unlock()
		return ErrNotInProgress
	}
	if err := s.hist.Navigate(index); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// Reset returns to NotStarted, stopping timers and any engine search.
func (s *Session) Reset() {
	s.mu.Lock()
	s.teardownLocked()
	s.state = NotStarted
	s.hist = nil
	s.result = Result{}
	s.lastMove = nil
	s.clocks = map[rules.Color]int{}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) finishLocked(r Result) {
	s.state = Over
	s.result = r
	s.stopClockLocked()
	if s.thinking {
		s.cfg.Opponent.Cancel()
		s.thinking = false
	}
	s.logger.Info("game_over",
		zap.String("reason", string(r.Reason)),
		zap.String("winner", r.Winner.String()),
		zap.Int("plies", s.hist.Len()-1))
}

func (s *Session) teardownLocked() {
	s.stopClockLocked()
	if s.thinking {
		s.cfg.Opponent.Cancel()
		s.thinking = false
	}
}

func (s *Session) maybeRequestEngineLocked() {
	if s.state != InProgress || s.opts.Mode != VsEngine || s.cfg.Opponent == nil {
		return
	}
	latest := s.hist.Latest()
	if latest.Turn() == s.opts.HumanColor {
		return
	}
	seq, err := s.cfg.Opponent.Request(latest.FEN(), s.opts.Rating, func(r opponent.Reply) {
		s.ApplyEngineReply(r)
	})
	if err != nil {
		s.logger.Warn("engine_request_failed", zap.Error(err))
		return
	}
	s.thinking = true
	s.logger.Debug("engine_requested", zap.Uint64("seq", seq), zap.String("fen", latest.FEN()))
}

// RequestEngineMove asks for the engine's move again when it is on move and
// no request is outstanding, e.g. after the opponent was re-enabled.
func (s *Session) RequestEngineMove() bool {
	s.mu.Lock()
	if s.thinking {
		s.mu.Unlock()
		return false
	}
	s.engineFailures = 0
	s.maybeRequestEngineLocked()
	requested := s.thinking
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if requested && s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
	return requested
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          s.state,
		Mode:           s.opts.Mode,
		HumanColor:     s.opts.HumanColor,
		WhiteSeconds:   s.clocks[rules.White],
		BlackSeconds:   s.clocks[rules.Black],
		Timed:          s.opts.TimeLimitSeconds > 0,
		Rating:         s.opts.Rating,
		Result:         s.result,
		EngineThinking: s.thinking,
		EngineFailed:   s.engineFailures > 1,
	}
	snap.WhiteName, snap.BlackName = s.namesLocked()
	if s.hist == nil {
		return snap
	}
	latest := s.hist.Latest()
	snap.ActiveSide = latest.Turn()
	snap.FEN = s.hist.Current().FEN()
	snap.LatestFEN = latest.FEN()
	snap.CurrentIndex = s.hist.CurrentIndex()
	snap.Length = s.hist.Len()
	snap.Descriptions = s.hist.Descriptions()
	if s.lastMove != nil {
		snap.LastMove = s.lastMove.UCI()
		snap.Check = s.lastMove.Check
	}
	return snap
}

func (s *Session) namesLocked() (string, string) {
	if s.state == NotStarted && s.hist == nil {
		return "", ""
	}
	if s.opts.Mode == Playground {
		return "White", "Black"
	}
	player := s.opts.PlayerName
	if player == "" {
		player = "Player"
	}
	engine := fmt.Sprintf("Stockfish (%d)", s.opts.Rating)
	if s.opts.HumanColor == rules.White {
		return player, engine
	}
	return engine, player
}

// publish persists the history and notifies the listener.
func (s *Session) publish(snap Snapshot) {
	if s.cfg.Port != nil && snap.State != NotStarted {
		s.persist()
	}
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

func (s *Session) persist() {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return
	}
	saved := s.hist.Snapshot()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cfg.Port.Save(ctx, s.cfg.Key, saved); err != nil {
		s.logger.Warn("history_save_failed", zap.String("key", s.cfg.Key), zap.Error(err))
	}
}
