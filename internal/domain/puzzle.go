package domain

import "strings"

// Convention says which side plays the first solution move.
type Convention string

const (
	// OpponentFirst: the first move is the computer's setup move and the
	// player answers it. Lichess exports use this layout.
	OpponentFirst Convention = "opponent_first"
	// PlayerFirst: the player is to move in the starting position.
	PlayerFirst Convention = "player_first"
)

func ParseConvention(s string) (Convention, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OpponentFirst), "opponent-first", "opponent":
		return OpponentFirst, true
	case string(PlayerFirst), "player-first", "player":
		return PlayerFirst, true
	default:
		return "", false
	}
}

// Puzzle is a stored tactic: a starting position and its solution line in
// UCI notation.
type Puzzle struct {
	ID         string     `json:"id" yaml:"id"`
	FEN        string     `json:"fen" yaml:"fen"`
	Moves      []string   `json:"moves" yaml:"moves"`
	Theme      string     `json:"theme,omitempty" yaml:"theme,omitempty"`
	Rating     int        `json:"rating,omitempty" yaml:"rating,omitempty"`
	Convention Convention `json:"convention,omitempty" yaml:"convention,omitempty"`
}

// EffectiveConvention resolves aliases and treats an empty convention as
// OpponentFirst. An unknown value falls back to OpponentFirst as well; use
// ParseConvention to reject it.
func (p Puzzle) EffectiveConvention() Convention {
	if c, ok := ParseConvention(string(p.Convention)); ok {
		return c
	}
	return OpponentFirst
}

// Themes splits the space separated theme tags.
func (p Puzzle) Themes() []string {
	return strings.Fields(p.Theme)
}

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// RatingBand returns the inclusive rating range of d. max is 0 for an open
// upper bound.
func (d Difficulty) RatingBand() (min, max int, ok bool) {
	switch d {
	case Beginner:
		return 0, 1199, true
	case Intermediate:
		return 1200, 1799, true
	case Advanced:
		return 1800, 0, true
	default:
		return 0, 0, false
	}
}

func DifficultyFor(rating int) Difficulty {
	switch {
	case rating < 1200:
		return Beginner
	case rating < 1800:
		return Intermediate
	default:
		return Advanced
	}
}
