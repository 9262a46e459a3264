package rules

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

var initialCounts = map[nchess.PieceType]int{
	nchess.Pawn:   8,
	nchess.Knight: 2,
	nchess.Bishop: 2,
	nchess.Rook:   2,
	nchess.Queen:  1,
}

var pieceLetters = map[nchess.PieceType]string{
	nchess.Pawn:   "p",
	nchess.Knight: "n",
	nchess.Bishop: "b",
	nchess.Rook:   "r",
	nchess.Queen:  "q",
}

// Material sums piece values per side and lists the pieces each side has
// lost relative to the standard set, most valuable first. Promoted pieces
// offset missing pawns.
type Material struct {
	White     int
	Black     int
	LostWhite []string
	LostBlack []string
}

// Diff is White's material minus Black's.
func (m Material) Diff() int { return m.White - m.Black }

func MaterialOf(p Position) (Material, error) {
	g, err := p.game()
	if err != nil {
		return Material{}, err
	}
	board := g.Position().Board()
	counts := map[nchess.Color]map[nchess.PieceType]int{nchess.White: {}, nchess.Black: {}}
	var m Material
	for f := nchess.FileA; f <= nchess.FileH; f++ {
		for r := nchess.Rank1; r <= nchess.Rank8; r++ {
			piece := board.Piece(nchess.NewSquare(f, r))
			v, ok := pieceValues[piece.Type()]
			if piece == nchess.NoPiece || !ok {
				continue
			}
			counts[piece.Color()][piece.Type()]++
			if piece.Color() == nchess.White {
				m.White += v
			} else {
				m.Black += v
			}
		}
	}
	m.LostWhite = lost(counts[nchess.White])
	m.LostBlack = lost(counts[nchess.Black])
	return m, nil
}

func lost(have map[nchess.PieceType]int) []string {
	promoted := 0
	for _, pt := range []nchess.PieceType{nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight} {
		if extra := have[pt] - initialCounts[pt]; extra > 0 {
			promoted += extra
		}
	}
	var out []string
	for _, pt := range []nchess.PieceType{nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight, nchess.Pawn} {
		missing := initialCounts[pt] - have[pt]
		if pt == nchess.Pawn {
			missing -= promoted
		}
		for i := 0; i < missing; i++ {
			out = append(out, pieceLetters[pt])
		}
	}
	return out
}

var ecoBook = sync.OnceValue(func() *opening.BookECO { return opening.NewBookECO() })

// OpeningOf names the opening reached by sans played from the standard
// starting position. It returns empty strings when no book line matches.
func OpeningOf(sans []string) (eco, name string) {
	if len(sans) == 0 {
		return "", ""
	}
	g := nchess.NewGame()
	notation := nchess.AlgebraicNotation{}
	for _, san := range sans {
		mv, err := notation.Decode(g.Position(), san)
		if err != nil {
			break
		}
		if err := g.Move(mv, nil); err != nil {
			break
		}
	}
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if o := book.Find(g.Moves()); o != nil {
		return o.Code(), o.Title()
	}
	return "", ""
}
