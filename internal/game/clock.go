package game

import (
	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

// restartClockLocked cancels the pending tick and schedules a fresh one
// for the side now on move. Untimed games never tick.
func (s *Session) restartClockLocked() {
	s.stopClockLocked()
	if s.state != InProgress || s.opts.TimeLimitSeconds <= 0 {
		return
	}
	gen := s.tickGen
	s.tick = s.cfg.Scheduler.AfterFunc(tickInterval, func() { s.onTick(gen) })
}

func (s *Session) stopClockLocked() {
	s.tickGen++
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
}

// onTick charges one second to the side on move. A tick from a cancelled
// generation is ignored.
func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	if gen != s.tickGen || s.state != InProgress {
		s.mu.Unlock()
		return
	}
	side := s.hist.Latest().Turn()
	if s.clocks[side] > 0 {
		s.clocks[side]--
	}
	if s.clocks[side] == 0 {
		s.logger.Info("game_flag_fell", zap.String("side", side.String()))
		s.finishLocked(Result{Winner: side.Other(), Reason: ReasonTimeout})
	} else {
		s.tick = s.cfg.Scheduler.AfterFunc(tickInterval, func() { s.onTick(gen) })
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if snap.State == Over {
		s.publish(snap)
		return
	}
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

// Remaining reports the clock of side in whole seconds.
func (s *Session) Remaining(side rules.Color) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clocks[side]
}
