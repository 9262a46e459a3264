package chessbuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/Cheese-chess-trainer/internal/config"
	"github.com/park285/Cheese-chess-trainer/internal/store"
)

func TestNewWithoutExternalServices(t *testing.T) {
	cfg := config.Defaults()
	deps, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()

	if deps.Engine != nil {
		t.Fatalf("engine started without a binary path")
	}
	if _, ok := deps.Port.(*store.Memory); !ok {
		t.Fatalf("port %T, want *store.Memory", deps.Port)
	}
	if deps.Puzzles != nil || deps.Server == nil || deps.Catalog == nil {
		t.Fatalf("deps %+v", deps)
	}
}

func TestNewWithRedisAndPuzzles(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "puzzles.yaml")
	body := "- id: p1\n  fen: \"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1\"\n  moves: e2e4\n  convention: player_first\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := config.Defaults()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.PuzzleFile = path
	deps, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()

	if _, ok := deps.Port.(*store.Redis); !ok {
		t.Fatalf("port %T, want *store.Redis", deps.Port)
	}
	if deps.Puzzles == nil {
		t.Fatalf("puzzle source not wired")
	}
}

func TestNewFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{"unreachable redis", func(c *config.AppConfig) { c.RedisURL = "redis://127.0.0.1:1/0" }},
		{"bad redis scheme", func(c *config.AppConfig) { c.RedisURL = "http://localhost" }},
		{"missing puzzle file", func(c *config.AppConfig) { c.PuzzleFile = filepath.Join(t.TempDir(), "none.yaml") }},
		{"missing messages dir", func(c *config.AppConfig) { c.MessagesDir = filepath.Join(t.TempDir(), "none") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(cfg)
			if deps, err := New(cfg, nil); err == nil {
				_ = deps.Close()
				t.Fatalf("want error")
			}
		})
	}
	if _, err := New(nil, nil); err == nil {
		t.Fatalf("nil config accepted")
	}
}
