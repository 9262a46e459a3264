package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

func TestLegalDestinationsPawn(t *testing.T) {
	got := LegalDestinations(rules.Start(), "e2")
	want := []Destination{{Square: "e3"}, {Square: "e4"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("destinations (-want +got):\n%s", diff)
	}
}

func TestLegalDestinationsIdempotent(t *testing.T) {
	pos, err := rules.Load("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := LegalDestinations(pos, "f3")
	second := LegalDestinations(pos, "f3")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("not idempotent:\n%s", diff)
	}
	var captures int
	for _, d := range first {
		if d.IsCapture {
			captures++
			if d.Square != "e5" {
				t.Fatalf("unexpected capture on %s", d.Square)
			}
		}
	}
	if captures != 1 {
		t.Fatalf("captures: got %d want 1", captures)
	}
}

func TestLegalDestinationsEmptyForNonMovers(t *testing.T) {
	for _, sq := range []rules.Square{"e4", "e7", "", "z9"} {
		if got := LegalDestinations(rules.Start(), sq); len(got) != 0 {
			t.Fatalf("LegalDestinations(%q): want empty, got %v", sq, got)
		}
	}
}

func TestPromotionCollapses(t *testing.T) {
	pos, err := rules.Load("1n6/P7/8/8/8/8/8/k6K w - - 0 1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := LegalDestinations(pos, "a7")
	want := []Destination{{Square: "a8"}, {Square: "b8", IsCapture: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("destinations (-want +got):\n%s", diff)
	}
}

func TestStateSelectToggle(t *testing.T) {
	var s State
	pos := rules.Start()
	if s.Select(pos, "e7") {
		t.Fatalf("selecting an opponent piece should be ignored")
	}
	if !s.Select(pos, "g1") || s.Origin != "g1" || !s.Contains("f3") {
		t.Fatalf("select g1: %+v", s)
	}
	if !s.Select(pos, "b1") || s.Origin != "b1" || s.Contains("f3") {
		t.Fatalf("reselect b1: %+v", s)
	}
	if !s.Select(pos, "b1") || s.Selected() {
		t.Fatalf("second click should clear: %+v", s)
	}
}
