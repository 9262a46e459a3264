// Package selection computes highlight targets for a chosen origin square.
package selection

import (
	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

type Destination struct {
	Square    rules.Square `json:"square"`
	IsCapture bool         `json:"isCapture"`
}

// LegalDestinations lists where the piece on origin may move. An empty,
// opponent-owned or malformed origin yields an empty result. Promotion
// choices collapse into a single destination.
func LegalDestinations(pos rules.Position, origin rules.Square) []Destination {
	if !origin.Valid() || rules.PieceAt(pos, origin) != pos.Turn() {
		return nil
	}
	moves, err := rules.LegalMovesFrom(pos, origin)
	if err != nil {
		return nil
	}
	out := make([]Destination, 0, len(moves))
	for _, mv := range moves {
		if n := len(out); n > 0 && out[n-1].Square == mv.To {
			continue
		}
		out = append(out, Destination{Square: mv.To, IsCapture: mv.Capture})
	}
	return out
}

// State is the selected origin and its destinations. The zero value has
// nothing selected.
type State struct {
	Origin       rules.Square
	Destinations []Destination
}

func (s State) Selected() bool { return s.Origin != "" }

// Select handles a click on sq. Clicking the selected origin again clears
// the selection; clicking another piece of the side to move reselects.
// It reports whether the click was consumed as a selection change.
func (s *State) Select(pos rules.Position, sq rules.Square) bool {
	if s.Origin != "" && s.Origin == sq {
		s.Clear()
		return true
	}
	if rules.PieceAt(pos, sq) != pos.Turn() {
		return false
	}
	s.Origin = sq
	s.Destinations = LegalDestinations(pos, sq)
	return true
}

func (s *State) Clear() {
	s.Origin = ""
	s.Destinations = nil
}

func (s State) Contains(sq rules.Square) bool {
	for _, d := range s.Destinations {
		if d.Square == sq {
			return true
		}
	}
	return false
}
