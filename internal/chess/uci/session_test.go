package uci

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeEngine scripts the engine side of a session over in-memory pipes.
type fakeEngine struct {
	mu   sync.Mutex
	cmds []string
	best string
	hang bool
}

func (f *fakeEngine) start() (io.WriteCloser, io.Reader) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go func() {
		defer outW.Close()
		sc := bufio.NewScanner(inR)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			f.mu.Lock()
			f.cmds = append(f.cmds, line)
			best, hang := f.best, f.hang
			f.mu.Unlock()

			var reply string
			switch {
			case line == "uci":
				reply = "id name fake\nuciok\n"
			case line == "isready":
				reply = "readyok\n"
			case strings.HasPrefix(line, "go"):
				if hang {
					continue
				}
				reply = "info depth 1 score cp 10 pv d2d4\ninfo depth 3 score cp 25 pv e2e4 e7e5\nbestmove " + best + " ponder e7e5\n"
			}
			if reply != "" {
				if _, err := io.WriteString(outW, reply); err != nil {
					return
				}
			}
		}
	}()
	return inW, outR
}

func (f *fakeEngine) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

func newFakeSession(t *testing.T, f *fakeEngine, opt Options) *Session {
	t.Helper()
	stdin, stdout := f.start()
	s, err := NewPipeSession(context.Background(), stdin, stdout, opt)
	if err != nil {
		t.Fatalf("NewPipeSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandshakeSendsStrengthOptions(t *testing.T) {
	f := &fakeEngine{best: "e2e4"}
	newFakeSession(t, f, Options{LimitStrength: true, Elo: 1500, SkillLevel: 3})

	want := []string{
		"uci",
		"setoption name UCI_LimitStrength value true",
		"setoption name UCI_Elo value 1500",
		"setoption name Skill Level value 3",
		"isready",
	}
	if diff := cmp.Diff(want, f.commands()); diff != "" {
		t.Fatalf("handshake (-want +got):\n%s", diff)
	}
}

func TestSearchParsesBestMove(t *testing.T) {
	f := &fakeEngine{best: "e2e4"}
	s := newFakeSession(t, f, Options{SkillLevel: 20})

	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	resp, err := s.Search(context.Background(), SearchRequest{FEN: fen, Limits: Limits{Depth: 5}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := SearchResponse{BestMove: "e2e4", Ponder: "e7e5", Depth: 3, ScoreCP: 25}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("response (-want +got):\n%s", diff)
	}

	cmds := f.commands()
	tail := cmds[len(cmds)-2:]
	if diff := cmp.Diff([]string{"position fen " + fen, "go depth 5"}, tail); diff != "" {
		t.Fatalf("search commands (-want +got):\n%s", diff)
	}
}

func TestSearchNoMove(t *testing.T) {
	f := &fakeEngine{best: NoMove}
	s := newFakeSession(t, f, Options{})
	resp, err := s.Search(context.Background(), SearchRequest{FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Limits: Limits{Depth: 1}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "" {
		t.Fatalf("want empty best move, got %q", resp.BestMove)
	}
}

func TestSearchCancelled(t *testing.T) {
	f := &fakeEngine{hang: true}
	s := newFakeSession(t, f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := s.Search(ctx, SearchRequest{FEN: "startpos", Limits: Limits{Depth: 20}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestBuildGoTokens(t *testing.T) {
	got, err := buildGoTokens(Limits{Depth: 7})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "depth", "7"}, got); diff != "" {
		t.Fatalf("tokens (-want +got):\n%s", diff)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("empty limits should fail")
	}
}

func TestValidateOptions(t *testing.T) {
	bad := []Options{{SkillLevel: -1}, {SkillLevel: 21}, {Elo: 1000}, {Elo: 4000}, {HashMB: -1}}
	for _, opt := range bad {
		if err := validateOptions(opt); err == nil {
			t.Fatalf("validateOptions(%+v): want error", opt)
		}
	}
	if err := validateOptions(Options{LimitStrength: true, Elo: 1320}); err != nil {
		t.Fatalf("validateOptions: %v", err)
	}
}

func TestPoolReusesAndDiscards(t *testing.T) {
	var mu sync.Mutex
	spawned := 0
	pool, err := NewPool(PoolConfig{
		PerOptionsCapacity: 1,
		Spawn: func(ctx context.Context, opt Options) (*Session, error) {
			mu.Lock()
			spawned++
			mu.Unlock()
			stdin, stdout := (&fakeEngine{best: "e2e4"}).start()
			return NewPipeSession(ctx, stdin, stdout, opt)
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	opt := Options{LimitStrength: true, Elo: 1400, SkillLevel: 1}
	s1, err := pool.Acquire(ctx, opt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(s1, nil)

	s2, err := pool.Acquire(ctx, opt)
	if err != nil {
		t.Fatalf("Acquire again: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected idle session to be reused")
	}
	pool.Release(s2, errors.New("search cancelled"))

	s3, err := pool.Acquire(ctx, opt)
	if err != nil {
		t.Fatalf("Acquire after discard: %v", err)
	}
	if s3 == s2 {
		t.Fatalf("discarded session was handed out again")
	}
	pool.Release(s3, nil)

	mu.Lock()
	defer mu.Unlock()
	if spawned != 2 {
		t.Fatalf("spawned: got %d want 2", spawned)
	}
}

func TestPoolBlocksAtCapacity(t *testing.T) {
	pool, err := NewPool(PoolConfig{
		PerOptionsCapacity: 1,
		Spawn: func(ctx context.Context, opt Options) (*Session, error) {
			stdin, stdout := (&fakeEngine{best: "e2e4"}).start()
			return NewPipeSession(ctx, stdin, stdout, opt)
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	held, err := pool.Acquire(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer pool.Release(held, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx, Options{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("want error without binary path")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/stockfish"}); err == nil {
		t.Fatalf("want error for missing binary")
	}
}

func TestPoolClosedRefusesAndDiscardsReturns(t *testing.T) {
	pool, err := NewPool(PoolConfig{
		Spawn: func(ctx context.Context, opt Options) (*Session, error) {
			stdin, stdout := (&fakeEngine{best: "e2e4"}).start()
			return NewPipeSession(ctx, stdin, stdout, opt)
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	held, err := pool.Acquire(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	pool.Release(held, nil)
	if _, err := pool.Acquire(context.Background(), Options{}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("want ErrPoolClosed, got %v", err)
	}
}
