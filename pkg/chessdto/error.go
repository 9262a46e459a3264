package chessdto

// Error codes sent to the browser.
const (
	CodeBadRequest        = "bad_request"
	CodeIllegalMove       = "illegal_move"
	CodeWrongMove         = "wrong_move"
	CodeNotYourTurn       = "not_your_turn"
	CodeNotInProgress     = "not_in_progress"
	CodeNoActivePuzzle    = "no_active_puzzle"
	CodeNoPuzzles         = "no_puzzles"
	CodeNoSavedGame       = "no_saved_game"
	CodeEngineUnavailable = "engine_unavailable"
	CodeOutOfRange        = "out_of_range"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess trainer error"
}
