package puzzle

import (
	"context"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/Cheese-chess-trainer/internal/domain"
)

// Filter narrows a puzzle list. Zero values match everything.
type Filter struct {
	Theme     string
	MinRating int
	MaxRating int
	Limit     int
}

// FilterFor builds a filter from a difficulty name and theme. An unknown
// difficulty leaves the rating band open.
func FilterFor(difficulty, theme string, limit int) Filter {
	f := Filter{Theme: theme, Limit: limit}
	if lo, hi, ok := domain.Difficulty(strings.ToLower(difficulty)).RatingBand(); ok {
		f.MinRating, f.MaxRating = lo, hi
	}
	return f
}

func (f Filter) match(p domain.Puzzle) bool {
	if f.MinRating > 0 && p.Rating < f.MinRating {
		return false
	}
	if f.MaxRating > 0 && p.Rating > f.MaxRating {
		return false
	}
	theme := strings.TrimSpace(f.Theme)
	if theme == "" {
		return true
	}
	for _, t := range p.Themes() {
		if strings.EqualFold(t, theme) {
			return true
		}
	}
	return false
}

// Apply returns the records matching f in their original order.
func (f Filter) Apply(all []domain.Puzzle) []domain.Puzzle {
	var out []domain.Puzzle
	for _, p := range all {
		if !f.match(p) {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Source supplies already-fetched puzzle records.
type Source interface {
	Puzzles(ctx context.Context, f Filter) ([]domain.Puzzle, error)
}

// MemorySource serves a fixed list.
type MemorySource []domain.Puzzle

func (m MemorySource) Puzzles(_ context.Context, f Filter) ([]domain.Puzzle, error) {
	out := f.Apply(m)
	if len(out) == 0 {
		return nil, ErrNoPuzzles
	}
	return out, nil
}

// FileSource reads a YAML or JSON puzzle file on every call so edits are
// picked up without a restart.
type FileSource struct {
	Path string
}

func (s FileSource) Puzzles(ctx context.Context, f Filter) ([]domain.Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return MemorySource(all).Puzzles(ctx, f)
}

// record accepts moves either as a list or as one space separated string.
type record struct {
	ID         string   `yaml:"id"`
	FEN        string   `yaml:"fen"`
	Moves      moveList `yaml:"moves"`
	Theme      string   `yaml:"theme"`
	Themes     []string `yaml:"themes"`
	Rating     int      `yaml:"rating"`
	Convention string   `yaml:"convention"`
}

type moveList []string

func (m *moveList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*m = strings.Fields(n.Value)
		return nil
	}
	var list []string
	if err := n.Decode(&list); err != nil {
		return err
	}
	*m = list
	return nil
}

// LoadFile parses a puzzle file. The top level is either a list of records
// or a mapping with a "puzzles" key.
func LoadFile(path string) ([]domain.Puzzle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read puzzle file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) ([]domain.Puzzle, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse puzzle file: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]

	var recs []record
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&recs); err != nil {
			return nil, fmt.Errorf("parse puzzle file: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Puzzles []record `yaml:"puzzles"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("parse puzzle file: %w", err)
		}
		recs = wrapped.Puzzles
	default:
		return nil, fmt.Errorf("parse puzzle file: unexpected top-level %v", doc.Tag)
	}

	out := make([]domain.Puzzle, 0, len(recs))
	for i, r := range recs {
		conv, ok := domain.ParseConvention(r.Convention)
		if !ok {
			return nil, fmt.Errorf("%w: record %d: unknown convention %q", ErrInvalidPuzzle, i+1, r.Convention)
		}
		theme := r.Theme
		if theme == "" && len(r.Themes) > 0 {
			theme = strings.Join(r.Themes, " ")
		}
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		out = append(out, domain.Puzzle{
			ID:         id,
			FEN:        strings.TrimSpace(r.FEN),
			Moves:      []string(r.Moves),
			Theme:      theme,
			Rating:     r.Rating,
			Convention: conv,
		})
	}
	return out, nil
}
