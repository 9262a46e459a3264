package game

import (
	"errors"

	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

var (
	ErrNotInProgress = errors.New("game is not in progress")
	ErrNotYourTurn   = errors.New("not the player's turn")
	ErrNoSavedGame   = errors.New("no saved game to resume")
	ErrBadOptions    = errors.New("invalid game options")
)

type State int

const (
	NotStarted State = iota
	InProgress
	Over
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Over:
		return "over"
	default:
		return "not_started"
	}
}

type Mode int

const (
	// VsEngine pits the human against the opponent provider.
	VsEngine Mode = iota
	// Playground lets the human move both sides with no engine.
	Playground
)

func (m Mode) String() string {
	if m == Playground {
		return "playground"
	}
	return "engine"
}

func ParseMode(s string) Mode {
	if s == "playground" {
		return Playground
	}
	return VsEngine
}

type EndReason string

const (
	ReasonNone                 EndReason = ""
	ReasonCheckmate            EndReason = "checkmate"
	ReasonStalemate            EndReason = "stalemate"
	ReasonInsufficientMaterial EndReason = "insufficient_material"
	ReasonThreefold            EndReason = "threefold_repetition"
	ReasonFiftyMove            EndReason = "fifty_move_rule"
	ReasonResignation          EndReason = "resignation"
	ReasonTimeout              EndReason = "timeout"
)

func reasonFor(s rules.Status) EndReason {
	switch s {
	case rules.Checkmate:
		return ReasonCheckmate
	case rules.Stalemate:
		return ReasonStalemate
	case rules.InsufficientMaterial:
		return ReasonInsufficientMaterial
	case rules.ThreefoldRepetition:
		return ReasonThreefold
	case rules.FiftyMoveRule:
		return ReasonFiftyMove
	default:
		return ReasonNone
	}
}

// Result is set once the game is Over. Winner is NoColor for draws.
type Result struct {
	Winner     rules.Color
	Reason     EndReason
	ResignedBy rules.Color
}

type StartOptions struct {
	HumanColor       rules.Color
	TimeLimitSeconds int
	Rating           int
	Mode             Mode
	PlayerName       string
}

// Snapshot is a copy of the session state safe to hand to other
// goroutines.
type Snapshot struct {
	State          State
	Mode           Mode
	HumanColor     rules.Color
	ActiveSide     rules.Color
	WhiteName      string
	BlackName      string
	WhiteSeconds   int
	BlackSeconds   int
	Timed          bool
	Rating         int
	Result         Result
	FEN            string
	LatestFEN      string
	CurrentIndex   int
	Length         int
	Descriptions   []string
	LastMove       string
	Check          bool
	EngineThinking bool
	// EngineFailed is set once the engine failed twice on the latest
	// position and stopped retrying.
	EngineFailed bool
}
