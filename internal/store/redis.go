// Package store persists move history snapshots for the game session.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-chess-trainer/internal/history"
)

const (
	DefaultTTL = 7 * 24 * time.Hour
	keyPrefix  = "trainer:history:"
)

// Redis keeps one JSON snapshot per key with a sliding TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// OpenRedis connects to raw (redis:// or rediss://) and pings the server.
func OpenRedis(ctx context.Context, raw string, ttl time.Duration) (*Redis, error) {
	opts, err := parseRedisURL(raw)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(rdb, ttl), nil
}

// parseRedisURL wraps redis.ParseURL, which handles rediss:// TLS,
// username, password and DB selection.
func parseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

func (s *Redis) key(k string) string { return keyPrefix + strings.TrimSpace(k) }

func (s *Redis) Save(ctx context.Context, key string, snap history.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), raw, s.ttl).Err()
}

func (s *Redis) Load(ctx context.Context, key string) (history.Snapshot, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return history.Snapshot{}, false, nil
	}
	if err != nil {
		return history.Snapshot{}, false, err
	}
	var snap history.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return history.Snapshot{}, false, fmt.Errorf("decode history %q: %w", key, err)
	}
	return snap, true, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *Redis) Close() error { return s.rdb.Close() }
