package trainer

import (
	"strings"

	"github.com/park285/Cheese-chess-trainer/internal/game"
	"github.com/park285/Cheese-chess-trainer/internal/puzzle"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
	"github.com/park285/Cheese-chess-trainer/internal/selection"
	"github.com/park285/Cheese-chess-trainer/pkg/chessdto"
)

// State assembles the wire view of both sessions.
func (s *Service) State() chessdto.TrainerState {
	gs := s.game.Snapshot()
	ps := s.puzzles.Snapshot()
	idx, total := s.set.Position()

	s.mu.Lock()
	active := s.active
	sel := s.sel
	s.mu.Unlock()

	st := chessdto.TrainerState{Active: active}
	if gs.State != game.NotStarted {
		st.Game = s.gameState(gs)
	}
	if ps.State != puzzle.Idle {
		st.Puzzle = puzzleState(ps, idx, total)
	}

	switch active {
	case ActiveGame:
		st.Status = s.gameStatus(gs)
		st.Selection = liveSelection(sel, gs.FEN)
	case ActivePuzzle:
		st.Status = s.puzzleStatus(ps)
		st.Selection = liveSelection(sel, ps.LatestFEN)
	default:
		st.Status = s.cfg.Catalog.Text("game.status.not_started", nil)
	}
	return st
}

// liveSelection recomputes destinations against fen so a selection made
// before an engine or auto move never shows stale targets.
func liveSelection(sel selection.State, fen string) chessdto.SelectionState {
	if !sel.Selected() || fen == "" {
		return chessdto.SelectionState{}
	}
	pos, err := rules.Load(fen)
	if err != nil {
		return chessdto.SelectionState{}
	}
	dests := selection.LegalDestinations(pos, sel.Origin)
	if len(dests) == 0 {
		return chessdto.SelectionState{}
	}
	out := chessdto.SelectionState{Origin: string(sel.Origin)}
	for _, d := range dests {
		out.Destinations = append(out.Destinations, chessdto.Destination{Square: string(d.Square), Capture: d.IsCapture})
	}
	return out
}

func (s *Service) gameState(gs game.Snapshot) *chessdto.GameState {
	out := &chessdto.GameState{
		State:          gs.State.String(),
		Mode:           gs.Mode.String(),
		HumanColor:     gs.HumanColor.String(),
		ActiveSide:     gs.ActiveSide.String(),
		WhiteName:      gs.WhiteName,
		BlackName:      gs.BlackName,
		WhiteSeconds:   gs.WhiteSeconds,
		BlackSeconds:   gs.BlackSeconds,
		Timed:          gs.Timed,
		Rating:         gs.Rating,
		FEN:            gs.FEN,
		LatestFEN:      gs.LatestFEN,
		CurrentIndex:   gs.CurrentIndex,
		Length:         gs.Length,
		Moves:          gs.Descriptions,
		LastMove:       gs.LastMove,
		Check:          gs.Check,
		EngineThinking: gs.EngineThinking,
		EngineFailed:   gs.EngineFailed,
	}
	if gs.State == game.Over {
		out.Result = &chessdto.GameResult{
			Winner:     gs.Result.Winner.String(),
			Reason:     string(gs.Result.Reason),
			ResignedBy: gs.Result.ResignedBy.String(),
		}
	}
	if eco, name := rules.OpeningOf(gs.Descriptions); name != "" {
		out.Opening = &chessdto.Opening{ECO: eco, Name: name}
	}
	if pos, err := rules.Load(gs.FEN); err == nil {
		if m, err := rules.MaterialOf(pos); err == nil {
			out.Material = chessdto.Material{White: m.White, Black: m.Black, LostWhite: m.LostWhite, LostBlack: m.LostBlack}
		}
	}
	return out
}

func puzzleState(ps puzzle.Snapshot, idx, total int) *chessdto.PuzzleState {
	return &chessdto.PuzzleState{
		State:           ps.State.String(),
		ID:              ps.PuzzleID,
		Theme:           ps.Theme,
		Rating:          ps.Rating,
		Orientation:     ps.Orientation.String(),
		FEN:             ps.FEN,
		LatestFEN:       ps.LatestFEN,
		CurrentIndex:    ps.CurrentIndex,
		Length:          ps.Length,
		Moves:           ps.Descriptions,
		Cursor:          ps.Cursor,
		SolutionLength:  ps.SolutionLength,
		Mistakes:        ps.Mistakes,
		PlayerToMove:    ps.PlayerToMove,
		AutoMovePending: ps.AutoMovePending,
		LastMove:        ps.LastMove,
		Index:           idx,
		Total:           total,
	}
}

func sideName(c rules.Color) string {
	switch c {
	case rules.White:
		return "White"
	case rules.Black:
		return "Black"
	default:
		return ""
	}
}

func (s *Service) gameStatus(gs game.Snapshot) string {
	cat := s.cfg.Catalog
	switch gs.State {
	case game.NotStarted:
		return cat.Text("game.status.not_started", nil)
	case game.Over:
		data := map[string]string{
			"Winner": sideName(gs.Result.Winner),
			"Loser":  sideName(gs.Result.Winner.Other()),
		}
		if gs.Result.ResignedBy != rules.NoColor {
			data["Loser"] = sideName(gs.Result.ResignedBy)
		}
		return cat.Text("game.over."+string(gs.Result.Reason), data)
	}
	if gs.EngineThinking {
		engine := gs.WhiteName
		if gs.HumanColor == rules.White {
			engine = gs.BlackName
		}
		return cat.Text("game.status.engine_thinking", map[string]string{"Engine": engine})
	}
	if gs.EngineFailed {
		return cat.Text("game.status.engine_failed", nil)
	}
	side := map[string]string{"Side": sideName(gs.ActiveSide)}
	if gs.Check {
		return cat.Text("game.status.check", side)
	}
	if gs.Mode == game.VsEngine && gs.ActiveSide == gs.HumanColor {
		return cat.Text("game.status.your_move", nil)
	}
	return cat.Text("game.status.to_move", side)
}

func (s *Service) puzzleStatus(ps puzzle.Snapshot) string {
	cat := s.cfg.Catalog
	switch ps.State {
	case puzzle.Idle:
		return cat.Text("puzzle.status.idle", nil)
	case puzzle.Solved:
		return cat.Text("puzzle.status.solved", nil)
	case puzzle.Skipped:
		return cat.Text("puzzle.status.skipped", nil)
	case puzzle.Failed:
		return cat.Text("puzzle.status.failed", map[string]string{"Solution": strings.Join(s.puzzles.Remaining(), " ")})
	}
	if ps.PlayerToMove {
		return cat.Text("puzzle.status.your_move", map[string]string{"Side": sideName(ps.Orientation)})
	}
	return cat.Text("puzzle.status.opponent", nil)
}
