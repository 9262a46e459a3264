package chess

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-chess-trainer/internal/chess/uci"
)

type scriptedEngine struct {
	mu   sync.Mutex
	cmds []string
	best string
	hang bool
}

func (f *scriptedEngine) spawn(ctx context.Context, opt uci.Options) (*uci.Session, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go func() {
		defer outW.Close()
		sc := bufio.NewScanner(inR)
		for sc.Scan() {
			line := sc.Text()
			f.mu.Lock()
			f.cmds = append(f.cmds, line)
			best, hang := f.best, f.hang
			f.mu.Unlock()
			var reply string
			switch {
			case line == "uci":
				reply = "uciok\n"
			case line == "isready":
				reply = "readyok\n"
			case strings.HasPrefix(line, "go") && !hang:
				reply = "bestmove " + best + "\n"
			}
			if reply != "" {
				if _, err := io.WriteString(outW, reply); err != nil {
					return
				}
			}
		}
	}()
	return uci.NewPipeSession(ctx, inW, outR, opt)
}

func (f *scriptedEngine) sawCommand(cmd string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cmds {
		if c == cmd {
			return true
		}
	}
	return false
}

func newScriptedEngine(t *testing.T, f *scriptedEngine) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{Capacity: 1, Spawn: f.spawn})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineBestMove(t *testing.T) {
	f := &scriptedEngine{best: "g8f6"}
	e := newScriptedEngine(t, f)

	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	mv, err := e.BestMove(context.Background(), fen, StrengthFor(1320))
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if mv != "g8f6" {
		t.Fatalf("move: got %q", mv)
	}
	for _, want := range []string{
		"uci",
		"setoption name UCI_LimitStrength value true",
		"setoption name UCI_Elo value 1320",
		"setoption name Skill Level value 0",
		"ucinewgame",
		"position fen " + fen,
		"go depth 1",
	} {
		if !f.sawCommand(want) {
			t.Fatalf("engine never received %q", want)
		}
	}
}

func TestEngineNoMove(t *testing.T) {
	e := newScriptedEngine(t, &scriptedEngine{best: "(none)"})
	_, err := e.BestMove(context.Background(), "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", StrengthFor(3190))
	if !errors.Is(err, ErrNoMove) {
		t.Fatalf("want ErrNoMove, got %v", err)
	}
}

func TestEngineCancelDiscardsProcess(t *testing.T) {
	f := &scriptedEngine{hang: true}
	e := newScriptedEngine(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := e.BestMove(ctx, "startpos", StrengthFor(2000)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	// the hung session was thrown away, so a fresh one answers
	f.mu.Lock()
	f.hang = false
	f.best = "e2e4"
	f.mu.Unlock()
	mv, err := e.BestMove(context.Background(), "startpos", StrengthFor(2000))
	if err != nil {
		t.Fatalf("BestMove after cancel: %v", err)
	}
	if mv != "e2e4" {
		t.Fatalf("move: got %q", mv)
	}
}
