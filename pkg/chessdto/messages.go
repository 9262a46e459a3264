package chessdto

// Inbound message types.
const (
	MsgStartGame      = "start_game"
	MsgRestoreGame    = "restore_game"
	MsgSelect         = "select"
	MsgMove           = "move"
	MsgResign         = "resign"
	MsgTakeBack       = "take_back"
	MsgNavigate       = "navigate"
	MsgResetGame      = "reset_game"
	MsgLoadPuzzles    = "load_puzzles"
	MsgPuzzleMove     = "puzzle_move"
	MsgHint           = "hint"
	MsgPuzzleTakeBack = "puzzle_take_back"
	MsgNextPuzzle     = "next_puzzle"
	MsgSkipPuzzle     = "skip_puzzle"
	MsgGiveUp         = "give_up"
	MsgSetEngine      = "set_engine"
)

// Outbound message types.
const (
	MsgState    = "state"
	MsgError    = "error"
	MsgEndOfSet = "end_of_set"
	MsgHintShow = "hint"
)

// Inbound is one browser request. Only the fields its Type needs are set.
type Inbound struct {
	Type       string `json:"type"`
	Color      string `json:"color,omitempty"`
	TimeLimit  *int   `json:"timeLimit,omitempty"`
	Rating     int    `json:"rating,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Name       string `json:"name,omitempty"`
	Square     string `json:"square,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Promotion  string `json:"promotion,omitempty"`
	Index      int    `json:"index,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

type Outbound struct {
	Type     string        `json:"type"`
	State    *TrainerState `json:"state,omitempty"`
	Error    *DomainError  `json:"error,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
	Square   string        `json:"square,omitempty"`
	Message  string        `json:"message,omitempty"`
}
