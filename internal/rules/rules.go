// Package rules wraps the corentings/chess move generator behind immutable
// FEN positions. Nothing outside this package touches the library directly
// except the engine worker, which only speaks UCI strings.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN    = errors.New("invalid position")
	ErrInvalidSquare = errors.New("invalid square")
	ErrIllegalMove   = errors.New("illegal move")
)

type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Other returns the opposing side. NoColor stays NoColor.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return NoColor, fmt.Errorf("unknown color %q", s)
	}
}

func fromLibColor(c nchess.Color) Color {
	switch c {
	case nchess.White:
		return White
	case nchess.Black:
		return Black
	default:
		return NoColor
	}
}

// Square is a board coordinate in lower-case algebraic form ("e4").
type Square string

func ParseSquare(s string) (Square, error) {
	sq := Square(strings.ToLower(strings.TrimSpace(s)))
	if !sq.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return sq, nil
}

func (s Square) Valid() bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

func (s Square) lib() nchess.Square {
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1'))
}

// Promotion is the promotion piece letter used in UCI: q, r, b, n.
type Promotion string

const (
	NoPromotion Promotion = ""
	PromoQueen  Promotion = "q"
	PromoRook   Promotion = "r"
	PromoBishop Promotion = "b"
	PromoKnight Promotion = "n"
)

func ParsePromotion(s string) (Promotion, error) {
	switch p := Promotion(strings.ToLower(strings.TrimSpace(s))); p {
	case NoPromotion, PromoQueen, PromoRook, PromoBishop, PromoKnight:
		return p, nil
	default:
		return NoPromotion, fmt.Errorf("%w: unknown promotion piece %q", ErrIllegalMove, s)
	}
}

func promotionOf(pt nchess.PieceType) Promotion {
	switch pt {
	case nchess.Queen:
		return PromoQueen
	case nchess.Rook:
		return PromoRook
	case nchess.Bishop:
		return PromoBishop
	case nchess.Knight:
		return PromoKnight
	default:
		return NoPromotion
	}
}

// Position is an immutable board state. The zero value is not a position;
// values are only produced by Start, Load and Apply.
type Position struct {
	fen string
}

func Start() Position {
	p, _ := Load(StartFEN)
	return p
}

// Load parses and normalizes a FEN string.
func Load(fen string) (Position, error) {
	fen = strings.Join(strings.Fields(fen), " ")
	if fen == "" {
		return Position{}, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	g := nchess.NewGame(opt)
	return Position{fen: g.FEN()}, nil
}

func (p Position) FEN() string    { return p.fen }
func (p Position) String() string { return p.fen }
func (p Position) IsZero() bool   { return p.fen == "" }

// Turn reports the side to move.
func (p Position) Turn() Color {
	f := strings.Fields(p.fen)
	if len(f) < 2 {
		return NoColor
	}
	if f[1] == "b" {
		return Black
	}
	return White
}

// Key identifies the position for repetition purposes: placement, side to
// move, castling rights and en-passant square. The en-passant square only
// counts when an en-passant capture is actually legal.
func (p Position) Key() string {
	f := strings.Fields(p.fen)
	if len(f) > 4 {
		f = f[:4]
	}
	if len(f) == 4 && f[3] != "-" && !p.enPassantLegal() {
		f[3] = "-"
	}
	return strings.Join(f, " ")
}

func (p Position) enPassantLegal() bool {
	g, err := p.game()
	if err != nil {
		return false
	}
	for _, mv := range g.ValidMoves() {
		if mv.HasTag(nchess.EnPassant) {
			return true
		}
	}
	return false
}

func (p Position) HalfmoveClock() int {
	return fenInt(p.fen, 4)
}

func (p Position) FullmoveNumber() int {
	return fenInt(p.fen, 5)
}

func fenInt(fen string, idx int) int {
	f := strings.Fields(fen)
	if len(f) <= idx {
		return 0
	}
	n, err := strconv.Atoi(f[idx])
	if err != nil {
		return 0
	}
	return n
}

func (p Position) game() (*nchess.Game, error) {
	if p.fen == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	opt, err := nchess.FEN(p.fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

// PieceAt reports the owner of the piece on sq, or NoColor when empty.
func PieceAt(p Position, sq Square) Color {
	if !sq.Valid() {
		return NoColor
	}
	g, err := p.game()
	if err != nil {
		return NoColor
	}
	piece := g.Position().Board().Piece(sq.lib())
	if piece == nchess.NoPiece {
		return NoColor
	}
	return fromLibColor(piece.Color())
}

// LegalMove is one generated move before it is applied.
type LegalMove struct {
	From      Square
	To        Square
	Promotion Promotion
	Capture   bool
	EnPassant bool
}

func (m LegalMove) UCI() string {
	return string(m.From) + string(m.To) + string(m.Promotion)
}

// LegalMovesFrom lists the legal moves whose origin is sq, ordered by
// destination then promotion piece.
func LegalMovesFrom(p Position, sq Square) ([]LegalMove, error) {
	if !sq.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSquare, sq)
	}
	g, err := p.game()
	if err != nil {
		return nil, err
	}
	origin := sq.lib()
	board := g.Position().Board()
	mover := fromLibColor(g.Position().Turn())

	var out []LegalMove
	for _, mv := range g.ValidMoves() {
		if mv.S1() != origin {
			continue
		}
		dest := board.Piece(mv.S2())
		ep := mv.HasTag(nchess.EnPassant)
		capture := ep || (dest != nchess.NoPiece && fromLibColor(dest.Color()) == mover.Other())
		out = append(out, LegalMove{
			From:      sq,
			To:        Square(mv.S2().String()),
			Promotion: promotionOf(mv.Promo()),
			Capture:   capture,
			EnPassant: ep,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].To == out[j].To {
			return out[i].Promotion < out[j].Promotion
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

// Move is an applied transition between two positions.
type Move struct {
	From      Square
	To        Square
	Promotion Promotion
	SAN       string
	Capture   bool
	EnPassant bool
	Check     bool
	Before    Position
	After     Position
}

func (m Move) UCI() string {
	return string(m.From) + string(m.To) + string(m.Promotion)
}

// Apply plays from→to on p. A pawn reaching the last rank without an
// explicit promotion piece promotes to a queen.
func Apply(p Position, from, to Square, promo Promotion) (Move, error) {
	if !from.Valid() || !to.Valid() {
		return Move{}, fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	g, err := p.game()
	if err != nil {
		return Move{}, err
	}
	pos := g.Position()
	s1, s2 := from.lib(), to.lib()
	valid := g.ValidMoves()

	idx := -1
	for i := range valid {
		if valid[i].S1() != s1 || valid[i].S2() != s2 {
			continue
		}
		got := promotionOf(valid[i].Promo())
		if got == promo || (promo == NoPromotion && got == PromoQueen) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Move{}, fmt.Errorf("%w: %s%s%s", ErrIllegalMove, from, to, promo)
	}
	mv := &valid[idx]

	dest := pos.Board().Piece(s2)
	mover := fromLibColor(pos.Turn())
	ep := mv.HasTag(nchess.EnPassant)
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)

	if err := g.Move(mv, nil); err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return Move{
		From:      from,
		To:        to,
		Promotion: promotionOf(mv.Promo()),
		SAN:       san,
		Capture:   ep || (dest != nchess.NoPiece && fromLibColor(dest.Color()) == mover.Other()),
		EnPassant: ep,
		Check:     mv.HasTag(nchess.Check),
		Before:    p,
		After:     Position{fen: g.FEN()},
	}, nil
}

// ApplyUCI plays a move given in long algebraic form, e.g. "e7e8q".
func ApplyUCI(p Position, uci string) (Move, error) {
	from, to, promo, err := ParseUCI(uci)
	if err != nil {
		return Move{}, err
	}
	return Apply(p, from, to, promo)
}

// ParseUCI splits a long algebraic move into its parts.
func ParseUCI(uci string) (Square, Square, Promotion, error) {
	s := strings.ToLower(strings.TrimSpace(uci))
	if len(s) != 4 && len(s) != 5 {
		return "", "", NoPromotion, fmt.Errorf("%w: malformed %q", ErrIllegalMove, uci)
	}
	from, to := Square(s[:2]), Square(s[2:4])
	if !from.Valid() || !to.Valid() {
		return "", "", NoPromotion, fmt.Errorf("%w: malformed %q", ErrIllegalMove, uci)
	}
	promo, err := ParsePromotion(s[4:])
	if err != nil {
		return "", "", NoPromotion, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return from, to, promo, nil
}
