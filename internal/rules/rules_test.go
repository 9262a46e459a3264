package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustLoad(t *testing.T, fen string) Position {
	t.Helper()
	p, err := Load(fen)
	if err != nil {
		t.Fatalf("Load(%q): %v", fen, err)
	}
	return p
}

func play(t *testing.T, p Position, moves ...string) (Position, Move) {
	t.Helper()
	var last Move
	for _, uci := range moves {
		mv, err := ApplyUCI(p, uci)
		if err != nil {
			t.Fatalf("ApplyUCI(%s): %v", uci, err)
		}
		p, last = mv.After, mv
	}
	return p, last
}

func TestStartPosition(t *testing.T) {
	p := Start()
	if p.FEN() != StartFEN {
		t.Fatalf("start fen: got %q", p.FEN())
	}
	if p.Turn() != White {
		t.Fatalf("start turn: got %v", p.Turn())
	}
	if p.Key() != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -" {
		t.Fatalf("key: got %q", p.Key())
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	for _, fen := range []string{"", "   ", "not a fen"} {
		if _, err := Load(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("Load(%q): want ErrInvalidFEN, got %v", fen, err)
		}
	}
}

func TestLegalMovesFromKnight(t *testing.T) {
	got, err := LegalMovesFrom(Start(), "g1")
	if err != nil {
		t.Fatalf("LegalMovesFrom: %v", err)
	}
	want := []LegalMove{
		{From: "g1", To: "f3"},
		{From: "g1", To: "h3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestLegalMovesFromEmptyAndOpponentSquares(t *testing.T) {
	for _, sq := range []Square{"e4", "e7", "g8"} {
		got, err := LegalMovesFrom(Start(), sq)
		if err != nil {
			t.Fatalf("LegalMovesFrom(%s): %v", sq, err)
		}
		if len(got) != 0 {
			t.Fatalf("LegalMovesFrom(%s): want none, got %v", sq, got)
		}
	}
}

func TestLegalMovesFromEnPassant(t *testing.T) {
	p := mustLoad(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	got, err := LegalMovesFrom(p, "e5")
	if err != nil {
		t.Fatalf("LegalMovesFrom: %v", err)
	}
	want := []LegalMove{
		{From: "e5", To: "e6"},
		{From: "e5", To: "f6", Capture: true, EnPassant: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRejectsIllegal(t *testing.T) {
	p := Start()
	for _, uci := range []string{"e2e5", "e7e5", "a1a1", "zz11"} {
		if _, err := ApplyUCI(p, uci); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("ApplyUCI(%s): want ErrIllegalMove, got %v", uci, err)
		}
	}
}

func TestApplyScholarsMate(t *testing.T) {
	end, last := play(t, Start(), "e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7")
	if !last.Capture || !last.Check {
		t.Fatalf("want capture with check, got %+v", last)
	}
	if last.SAN != "Qxf7#" {
		t.Fatalf("san: got %q", last.SAN)
	}
	status, err := Evaluate(end, 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if status != Checkmate || status.Draw() {
		t.Fatalf("status: got %v", status)
	}
	if !IsCheckmate(end) {
		t.Fatalf("IsCheckmate false")
	}
}

func TestApplyPromotionDefaultsToQueen(t *testing.T) {
	p := mustLoad(t, "8/P7/8/8/8/8/8/1k5K w - - 0 1")
	mv, err := Apply(p, "a7", "a8", NoPromotion)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if mv.Promotion != PromoQueen {
		t.Fatalf("promotion: got %q", mv.Promotion)
	}
	under, err := Apply(p, "a7", "a8", PromoKnight)
	if err != nil {
		t.Fatalf("Apply knight: %v", err)
	}
	if under.UCI() != "a7a8n" {
		t.Fatalf("uci: got %q", under.UCI())
	}
}

func TestEvaluateDraws(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		occ  int
		want Status
	}{
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 1, Stalemate},
		{"bare kings", "8/8/8/4k3/8/8/8/4K3 w - - 0 1", 1, InsufficientMaterial},
		{"fifty moves", "8/8/8/4k3/8/8/3R4/4K3 w - - 100 80", 1, FiftyMoveRule},
		{"threefold", StartFEN, 3, ThreefoldRepetition},
		{"ongoing", StartFEN, 2, Ongoing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(mustLoad(t, tt.fen), tt.occ)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			if got != Ongoing && !got.Draw() {
				t.Fatalf("%v should be a draw", got)
			}
		})
	}
}

func TestPieceAt(t *testing.T) {
	p := Start()
	if PieceAt(p, "e2") != White || PieceAt(p, "e7") != Black || PieceAt(p, "e4") != NoColor {
		t.Fatalf("PieceAt mismatch")
	}
}

func TestParseUCI(t *testing.T) {
	from, to, promo, err := ParseUCI("E7E8Q")
	if err != nil {
		t.Fatalf("ParseUCI: %v", err)
	}
	if from != "e7" || to != "e8" || promo != PromoQueen {
		t.Fatalf("got %s %s %s", from, to, promo)
	}
	for _, bad := range []string{"", "e7", "e7e8k", "i1a1"} {
		if _, _, _, err := ParseUCI(bad); err == nil {
			t.Fatalf("ParseUCI(%q): want error", bad)
		}
	}
}

func TestMaterialOf(t *testing.T) {
	m, err := MaterialOf(Start())
	if err != nil {
		t.Fatalf("MaterialOf: %v", err)
	}
	if m.White != 39 || m.Black != 39 || m.Diff() != 0 || len(m.LostWhite) != 0 {
		t.Fatalf("start material %+v", m)
	}

	// white is missing the queen and a pawn; black promoted a pawn to a knight
	p, err := Load("rnbqkbnr/ppppppp1/8/8/8/8/PPPPPPP1/RNB1KBNn w Qkq - 0 1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m, err = MaterialOf(p)
	if err != nil {
		t.Fatalf("MaterialOf: %v", err)
	}
	if m.White != 39-9-1-5 || m.Black != 39-1+3 {
		t.Fatalf("material %+v", m)
	}
	if diff := cmp.Diff([]string{"q", "r", "p"}, m.LostWhite); diff != "" {
		t.Fatalf("lost white (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string(nil), m.LostBlack); diff != "" {
		t.Fatalf("lost black (-want +got):\n%s", diff)
	}
}

func TestOpeningOf(t *testing.T) {
	eco, name := OpeningOf([]string{"e4", "e5", "Nf3", "Nc6", "Bc4"})
	if eco == "" || !strings.Contains(name, "Italian") {
		t.Fatalf("opening %q %q", eco, name)
	}
	if eco, name := OpeningOf(nil); eco != "" || name != "" {
		t.Fatalf("empty line named %q %q", eco, name)
	}
}

func TestKeyIgnoresUncapturableEnPassantSquare(t *testing.T) {
	afterPush := mustLoad(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	plain := mustLoad(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 4 3")
	if afterPush.Key() != plain.Key() {
		t.Fatalf("keys differ: %q vs %q", afterPush.Key(), plain.Key())
	}

	capturable := mustLoad(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	if !strings.HasSuffix(capturable.Key(), " f6") {
		t.Fatalf("capturable en-passant square dropped: %q", capturable.Key())
	}
}
