package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-chess-trainer/internal/history"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

type port interface {
	history.Port
	Delete(ctx context.Context, key string) error
}

func sampleSnapshot(t *testing.T) history.Snapshot {
	t.Helper()
	h := history.New(rules.Start())
	pos := rules.Start()
	for _, uci := range []string{"e2e4", "c7c5", "g1f3"} {
		mv, err := rules.ApplyUCI(pos, uci)
		if err != nil {
			t.Fatalf("ApplyUCI(%s): %v", uci, err)
		}
		h.Append(mv.After, mv.SAN)
		pos = mv.After
	}
	return h.Snapshot()
}

func newRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, ttl), mr
}

func TestStoresRoundTrip(t *testing.T) {
	rs, _ := newRedis(t, time.Hour)
	stores := map[string]port{"redis": rs, "memory": NewMemory()}
	want := sampleSnapshot(t)
	ctx := context.Background()

	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := st.Load(ctx, "game-1"); err != nil || ok {
				t.Fatalf("Load before save: ok=%v err=%v", ok, err)
			}
			if err := st.Save(ctx, "game-1", want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, ok, err := st.Load(ctx, "game-1")
			if err != nil || !ok {
				t.Fatalf("Load: ok=%v err=%v", ok, err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("snapshot (-want +got):\n%s", diff)
			}
			if _, err := history.Restore(got); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if err := st.Delete(ctx, "game-1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := st.Load(ctx, "game-1"); ok {
				t.Fatalf("snapshot survived Delete")
			}
		})
	}
}

func TestRedisKeyAndTTL(t *testing.T) {
	rs, mr := newRedis(t, 30*time.Minute)
	if err := rs.Save(context.Background(), "abc", sampleSnapshot(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !mr.Exists("trainer:history:abc") {
		t.Fatalf("key not written under prefix; keys=%v", mr.Keys())
	}
	if ttl := mr.TTL("trainer:history:abc"); ttl != 30*time.Minute {
		t.Fatalf("ttl %v", ttl)
	}
	mr.FastForward(31 * time.Minute)
	if _, ok, _ := rs.Load(context.Background(), "abc"); ok {
		t.Fatalf("expired snapshot still loaded")
	}
}

func TestRedisCorruptValue(t *testing.T) {
	rs, mr := newRedis(t, 0)
	if err := mr.Set("trainer:history:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := rs.Load(context.Background(), "bad"); err == nil {
		t.Fatalf("corrupt value decoded")
	}
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	rs, err := OpenRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), 0)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer rs.Close()
	if rs.ttl != DefaultTTL {
		t.Fatalf("default ttl %v", rs.ttl)
	}

	if _, err := OpenRedis(context.Background(), "http://localhost:6379", 0); err == nil {
		t.Fatalf("http scheme accepted")
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@cache:6380/3")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 3 || opts.TLSConfig != nil {
		t.Fatalf("opts %+v", opts)
	}

	opts, err = parseRedisURL("rediss://trainer:pw@cache.internal:6390/1")
	if err != nil {
		t.Fatalf("parseRedisURL rediss: %v", err)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.ServerName != "cache.internal" {
		t.Fatalf("rediss without TLS: %+v", opts)
	}
	if opts.Username != "trainer" || opts.Password != "pw" || opts.DB != 1 {
		t.Fatalf("opts %+v", opts)
	}

	for _, bad := range []string{"http://localhost", "redis://cache/notadb"} {
		if _, err := parseRedisURL(bad); err == nil {
			t.Fatalf("%q accepted", bad)
		}
	}
}
