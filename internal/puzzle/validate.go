package puzzle

import (
	"fmt"

	"github.com/park285/Cheese-chess-trainer/internal/domain"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

// Orientation returns the side the player solves for.
func Orientation(p domain.Puzzle) (rules.Color, error) {
	pos, err := rules.Load(p.FEN)
	if err != nil {
		return rules.NoColor, fmt.Errorf("%w %q: %v", ErrInvalidPuzzle, p.ID, err)
	}
	return orientationFor(pos, p.EffectiveConvention()), nil
}

func orientationFor(start rules.Position, c domain.Convention) rules.Color {
	if c == domain.PlayerFirst {
		return start.Turn()
	}
	return start.Turn().Other()
}

// Validate checks that every solution move is legal in sequence and that
// the player makes the last move under the record's convention.
func Validate(p domain.Puzzle) error {
	if _, ok := domain.ParseConvention(string(p.Convention)); !ok {
		return fmt.Errorf("%w %q: unknown convention %q", ErrInvalidPuzzle, p.ID, p.Convention)
	}
	if len(p.Moves) == 0 {
		return fmt.Errorf("%w %q: empty solution", ErrInvalidPuzzle, p.ID)
	}
	pos, err := rules.Load(p.FEN)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPuzzle, p.ID, err)
	}
	if status, _ := rules.Evaluate(pos, 1); status.Terminal() {
		return fmt.Errorf("%w %q: starting position is already %s", ErrInvalidPuzzle, p.ID, status)
	}

	player := orientationFor(pos, p.EffectiveConvention())
	for i, uci := range p.Moves {
		mv, err := rules.ApplyUCI(pos, uci)
		if err != nil {
			return fmt.Errorf("%w %q: move %d %s: %v", ErrInvalidPuzzle, p.ID, i+1, uci, err)
		}
		pos = mv.After
	}
	// the player's side was on move before the final ply
	if last := pos.Turn().Other(); last != player {
		return fmt.Errorf("%w %q: solution of %d moves ends on the computer's move", ErrInvalidPuzzle, p.ID, len(p.Moves))
	}
	return nil
}
