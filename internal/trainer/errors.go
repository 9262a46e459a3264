package trainer

import (
	"errors"

	"github.com/park285/Cheese-chess-trainer/internal/game"
	"github.com/park285/Cheese-chess-trainer/internal/history"
	"github.com/park285/Cheese-chess-trainer/internal/msgcat"
	"github.com/park285/Cheese-chess-trainer/internal/opponent"
	"github.com/park285/Cheese-chess-trainer/internal/puzzle"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
	"github.com/park285/Cheese-chess-trainer/pkg/chessdto"
)

// ErrBadRequest marks malformed requests from the bridge.
var ErrBadRequest = errors.New("bad request")

var errorCodes = []struct {
	target error
	code   string
}{
	{rules.ErrIllegalMove, chessdto.CodeIllegalMove},
	{puzzle.ErrWrongMove, chessdto.CodeWrongMove},
	{game.ErrNotYourTurn, chessdto.CodeNotYourTurn},
	{puzzle.ErrNotYourTurn, chessdto.CodeNotYourTurn},
	{game.ErrNotInProgress, chessdto.CodeNotInProgress},
	{puzzle.ErrNotActive, chessdto.CodeNoActivePuzzle},
	{puzzle.ErrNoPuzzles, chessdto.CodeNoPuzzles},
	{game.ErrNoSavedGame, chessdto.CodeNoSavedGame},
	{ErrEngineUnavailable, chessdto.CodeEngineUnavailable},
	{opponent.ErrDisabled, chessdto.CodeEngineUnavailable},
	{history.ErrOutOfRange, chessdto.CodeOutOfRange},
	{ErrBadRequest, chessdto.CodeBadRequest},
	{rules.ErrInvalidSquare, chessdto.CodeBadRequest},
	{rules.ErrInvalidFEN, chessdto.CodeBadRequest},
	{game.ErrBadOptions, chessdto.CodeBadRequest},
	{puzzle.ErrInvalidPuzzle, chessdto.CodeBadRequest},
}

// DomainError maps err to the code and catalog text the browser shows.
// Unknown errors become CodeInternal and are marked retryable.
func DomainError(err error, cat *msgcat.Catalog) chessdto.DomainError {
	if cat == nil {
		cat = defaultCatalog()
	}
	var de chessdto.DomainError
	if errors.As(err, &de) {
		return de
	}
	code := chessdto.CodeInternal
	for _, e := range errorCodes {
		if errors.Is(err, e.target) {
			code = e.code
			break
		}
	}
	return chessdto.DomainError{
		Code:      code,
		Message:   cat.Text("error."+code, nil),
		Retryable: code == chessdto.CodeInternal,
	}
}
