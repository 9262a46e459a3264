package chessdto

// TrainerState is the full view pushed to the browser after every change.
type TrainerState struct {
	// Active is "game", "puzzle" or "" when nothing is loaded.
	Active    string         `json:"active"`
	Status    string         `json:"status"`
	Game      *GameState     `json:"game,omitempty"`
	Puzzle    *PuzzleState   `json:"puzzle,omitempty"`
	Selection SelectionState `json:"selection"`
}

type GameState struct {
	State          string      `json:"state"`
	Mode           string      `json:"mode"`
	HumanColor     string      `json:"humanColor"`
	ActiveSide     string      `json:"activeSide"`
	WhiteName      string      `json:"whiteName"`
	BlackName      string      `json:"blackName"`
	WhiteSeconds   int         `json:"whiteSeconds"`
	BlackSeconds   int         `json:"blackSeconds"`
	Timed          bool        `json:"timed"`
	Rating         int         `json:"rating"`
	Result         *GameResult `json:"result,omitempty"`
	FEN            string      `json:"fen"`
	LatestFEN      string      `json:"latestFen"`
	CurrentIndex   int         `json:"currentIndex"`
	Length         int         `json:"length"`
	Moves          []string    `json:"moves"`
	LastMove       string      `json:"lastMove,omitempty"`
	Check          bool        `json:"check"`
	EngineThinking bool        `json:"engineThinking"`
	EngineFailed   bool        `json:"engineFailed,omitempty"`
	Opening        *Opening    `json:"opening,omitempty"`
	Material       Material    `json:"material"`
}

type GameResult struct {
	Winner     string `json:"winner,omitempty"`
	Reason     string `json:"reason"`
	ResignedBy string `json:"resignedBy,omitempty"`
}

type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

type Material struct {
	White     int      `json:"white"`
	Black     int      `json:"black"`
	LostWhite []string `json:"lostWhite,omitempty"`
	LostBlack []string `json:"lostBlack,omitempty"`
}

type PuzzleState struct {
	State           string   `json:"state"`
	ID              string   `json:"id"`
	Theme           string   `json:"theme,omitempty"`
	Rating          int      `json:"rating,omitempty"`
	Orientation     string   `json:"orientation"`
	FEN             string   `json:"fen"`
	LatestFEN       string   `json:"latestFen"`
	CurrentIndex    int      `json:"currentIndex"`
	Length          int      `json:"length"`
	Moves           []string `json:"moves"`
	Cursor          int      `json:"cursor"`
	SolutionLength  int      `json:"solutionLength"`
	Mistakes        int      `json:"mistakes"`
	PlayerToMove    bool     `json:"playerToMove"`
	AutoMovePending bool     `json:"autoMovePending"`
	LastMove        string   `json:"lastMove,omitempty"`
	Index           int      `json:"index"`
	Total           int      `json:"total"`
}

type SelectionState struct {
	Origin       string        `json:"origin,omitempty"`
	Destinations []Destination `json:"destinations,omitempty"`
}

type Destination struct {
	Square  string `json:"square"`
	Capture bool   `json:"capture"`
}
