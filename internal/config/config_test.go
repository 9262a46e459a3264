package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRAINER_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
	if cfg.EngineAvailable() {
		t.Fatalf("engine available without a binary path")
	}
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	body := `
listen_addr: ":9000"
stockfish_path: /usr/games/stockfish
engine_pool_capacity: 4
history_ttl: 12h
auto_move_delay: 1500ms
puzzle_end_redirect: /learn
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TRAINER_CONFIG", path)
	t.Setenv("ENGINE_POOL_CAPACITY", "3")
	t.Setenv("DEFAULT_RATING", "2000")
	t.Setenv("PUZZLE_AUTO_MOVE_DELAY", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	want.ListenAddr = ":9000"
	want.StockfishPath = "/usr/games/stockfish"
	want.EnginePoolCapacity = 3
	want.HistoryTTL = 12 * time.Hour
	want.AutoMoveDelay = 3 * time.Second
	want.PuzzleEndRedirect = "/learn"
	want.DefaultRating = 2000
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
	if !cfg.EngineAvailable() {
		t.Fatalf("engine should be available")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad int", map[string]string{"ENGINE_THREADS": "many"}, "ENGINE_THREADS"},
		{"bad bool", map[string]string{"ENGINE_ENABLED": "perhaps"}, "ENGINE_ENABLED"},
		{"bad duration", map[string]string{"HISTORY_TTL": "forever"}, "HISTORY_TTL"},
		{"zero capacity", map[string]string{"ENGINE_POOL_CAPACITY": "0"}, "ENGINE_POOL_CAPACITY"},
		{"negative time", map[string]string{"DEFAULT_TIME_LIMIT": "-5"}, "DEFAULT_TIME_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRAINER_CONFIG", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
