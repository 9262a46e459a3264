// Package config loads trainer settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	StockfishPath      string        `yaml:"stockfish_path"`
	EngineEnabled      bool          `yaml:"engine_enabled"`
	EnginePoolCapacity int           `yaml:"engine_pool_capacity"`
	EngineThreads      int           `yaml:"engine_threads"`
	EngineHashMB       int           `yaml:"engine_hash_mb"`
	EngineTimeout      time.Duration `yaml:"engine_timeout"`

	RedisURL   string        `yaml:"redis_url"`
	HistoryTTL time.Duration `yaml:"history_ttl"`

	PuzzleFile        string        `yaml:"puzzle_file"`
	PuzzleEndRedirect string        `yaml:"puzzle_end_redirect"`
	AutoMoveDelay     time.Duration `yaml:"auto_move_delay"`

	DefaultTimeLimitSec int `yaml:"default_time_limit"`
	DefaultRating       int `yaml:"default_rating"`

	MessagesDir string `yaml:"messages_dir"`
}

func Defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:          ":8080",
		EngineEnabled:       true,
		EnginePoolCapacity:  2,
		EngineThreads:       1,
		EngineHashMB:        16,
		EngineTimeout:       45 * time.Second,
		HistoryTTL:          7 * 24 * time.Hour,
		PuzzleEndRedirect:   "/puzzles",
		AutoMoveDelay:       2 * time.Second,
		DefaultTimeLimitSec: 600,
		DefaultRating:       1500,
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// TRAINER_CONFIG variable is consulted, and no file is read if both are
// unset.
func Load(path string) (*AppConfig, error) {
	cfg := Defaults()

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("TRAINER_CONFIG"))
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.StockfishPath, "STOCKFISH_PATH")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.PuzzleFile, "PUZZLE_FILE")
	setString(&c.PuzzleEndRedirect, "PUZZLE_END_REDIRECT")
	setString(&c.MessagesDir, "MESSAGES_DIR")

	var errs []error
	errs = append(errs,
		setBool(&c.EngineEnabled, "ENGINE_ENABLED"),
		setInt(&c.EnginePoolCapacity, "ENGINE_POOL_CAPACITY"),
		setInt(&c.EngineThreads, "ENGINE_THREADS"),
		setInt(&c.EngineHashMB, "ENGINE_HASH_MB"),
		setDuration(&c.EngineTimeout, "ENGINE_TIMEOUT"),
		setDuration(&c.HistoryTTL, "HISTORY_TTL"),
		setDuration(&c.AutoMoveDelay, "PUZZLE_AUTO_MOVE_DELAY"),
		setInt(&c.DefaultTimeLimitSec, "DEFAULT_TIME_LIMIT"),
		setInt(&c.DefaultRating, "DEFAULT_RATING"),
	)
	return errors.Join(errs...)
}

// Validate rejects values the services cannot run with.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.EnginePoolCapacity <= 0 {
		return fmt.Errorf("ENGINE_POOL_CAPACITY must be > 0, got %d", c.EnginePoolCapacity)
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be > 0, got %s", c.EngineTimeout)
	}
	if c.AutoMoveDelay <= 0 {
		return fmt.Errorf("PUZZLE_AUTO_MOVE_DELAY must be > 0, got %s", c.AutoMoveDelay)
	}
	if c.DefaultTimeLimitSec < 0 {
		return fmt.Errorf("DEFAULT_TIME_LIMIT must be >= 0, got %d", c.DefaultTimeLimitSec)
	}
	if c.DefaultRating <= 0 {
		return fmt.Errorf("DEFAULT_RATING must be > 0, got %d", c.DefaultRating)
	}
	return nil
}

// EngineAvailable reports whether an engine should be started.
func (c *AppConfig) EngineAvailable() bool {
	return c.EngineEnabled && strings.TrimSpace(c.StockfishPath) != ""
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// setDuration accepts Go durations ("90s") or bare seconds.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
