package rules

import (
	nchess "github.com/corentings/chess/v2"
)

type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	ThreefoldRepetition
	FiftyMoveRule
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case InsufficientMaterial:
		return "insufficient_material"
	case ThreefoldRepetition:
		return "threefold_repetition"
	case FiftyMoveRule:
		return "fifty_move_rule"
	default:
		return "ongoing"
	}
}

func (s Status) Terminal() bool { return s != Ongoing }

// Draw reports whether the status ends the game without a winner.
func (s Status) Draw() bool { return s.Terminal() && s != Checkmate }

// Evaluate classifies p. occurrences is how many times p's Key has appeared
// in the game so far, including p itself; positions loaded without history
// pass 1.
func Evaluate(p Position, occurrences int) (Status, error) {
	g, err := p.game()
	if err != nil {
		return Ongoing, err
	}
	switch g.Method() {
	case nchess.Checkmate:
		return Checkmate, nil
	case nchess.Stalemate:
		return Stalemate, nil
	case nchess.InsufficientMaterial:
		return InsufficientMaterial, nil
	}
	if occurrences >= 3 {
		return ThreefoldRepetition, nil
	}
	if IsFiftyMoveDraw(p) {
		return FiftyMoveRule, nil
	}
	return Ongoing, nil
}

func IsCheckmate(p Position) bool {
	s, err := Evaluate(p, 1)
	return err == nil && s == Checkmate
}

func IsStalemate(p Position) bool {
	s, err := Evaluate(p, 1)
	return err == nil && s == Stalemate
}

func IsInsufficientMaterial(p Position) bool {
	s, err := Evaluate(p, 1)
	return err == nil && s == InsufficientMaterial
}

// IsFiftyMoveDraw reports whether a hundred half-moves have passed without
// a capture or pawn move.
func IsFiftyMoveDraw(p Position) bool {
	return p.HalfmoveClock() >= 100
}
