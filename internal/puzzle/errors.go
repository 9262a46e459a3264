package puzzle

import (
	"errors"
	"fmt"
)

var (
	ErrWrongMove     = errors.New("move does not match the solution")
	ErrNotYourTurn   = errors.New("not the player's turn")
	ErrNotActive     = errors.New("no puzzle in progress")
	ErrNoPuzzles     = errors.New("no puzzles match the filter")
	ErrEndOfSet      = errors.New("puzzle set exhausted")
	ErrInvalidPuzzle = errors.New("invalid puzzle")
)

// EndOfSet is returned by Set.Next and Set.Skip once every puzzle has been
// offered. Redirect names where the caller should send the player.
type EndOfSet struct {
	Redirect string
}

func (e *EndOfSet) Error() string {
	return fmt.Sprintf("%s (redirect %q)", ErrEndOfSet, e.Redirect)
}

func (e *EndOfSet) Is(target error) bool { return target == ErrEndOfSet }
