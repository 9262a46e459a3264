package chess

import (
	"math"

	"github.com/park285/Cheese-chess-trainer/internal/chess/uci"
)

const (
	MinRating = 1320
	MaxRating = 3190

	// ratings at or above this play at full strength
	fullStrengthRating = 2700
	maxSkillLevel      = 20
	maxDepth           = 20
)

// Strength is the engine configuration derived from a target rating.
type Strength struct {
	Rating        int
	SkillLevel    int
	Depth         int
	LimitStrength bool
}

// StrengthFor clamps rating into the engine's supported band and maps it
// linearly onto skill level 0..20. Search depth follows the skill level
// with a floor of one ply.
func StrengthFor(rating int) Strength {
	r := rating
	if r < MinRating {
		r = MinRating
	}
	if r > MaxRating {
		r = MaxRating
	}
	skill := int(math.Round(float64(r-MinRating) / float64(MaxRating-MinRating) * maxSkillLevel))
	depth := skill
	if depth < 1 {
		depth = 1
	}
	if depth > maxDepth {
		depth = maxDepth
	}
	return Strength{
		Rating:        r,
		SkillLevel:    skill,
		Depth:         depth,
		LimitStrength: r < fullStrengthRating,
	}
}

func (s Strength) options(threads, hashMB int) uci.Options {
	return uci.Options{
		Threads:       threads,
		HashMB:        hashMB,
		LimitStrength: s.LimitStrength,
		Elo:           s.Rating,
		SkillLevel:    s.SkillLevel,
	}
}

func (s Strength) limits() uci.Limits {
	return uci.Limits{Depth: s.Depth}
}
