package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/xpresstask/core/internal/infrastructure/logger"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return s, rdb
}

func TestRedisStore_BurstThenDeny(t *testing.T) {
	_, rdb := newMiniRedis(t)
	store := NewRedisStore(rdb, logger.NewNop(), 1, 2)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		allowed, err := store.Allow("10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, allowed, err)
		}
	}

	allowed, err := store.Allow("10.0.0.1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("expected third request to be denied")
	}

	// Another identifier has its own bucket.
	if allowed, _ := store.Allow("10.0.0.2"); !allowed {
		t.Fatalf("expected separate bucket per identifier")
	}
}

func TestRedisStore_Refills(t *testing.T) {
	_, rdb := newMiniRedis(t)
	store := NewRedisStore(rdb, logger.NewNop(), 2, 1)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	if allowed, _ := store.Allow("client"); !allowed {
		t.Fatalf("expected first request to pass")
	}
	if allowed, _ := store.Allow("client"); allowed {
		t.Fatalf("expected bucket to be empty")
	}

	now = now.Add(600 * time.Millisecond)
	if allowed, _ := store.Allow("client"); !allowed {
		t.Fatalf("expected token after refill")
	}
}

func TestRedisStore_StoresBucketUnderPrefix(t *testing.T) {
	s, rdb := newMiniRedis(t)
	store := NewRedisStore(rdb, logger.NewNop(), 5, 5)

	if _, err := store.Allow("abc"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !s.Exists(defaultKeyPrefix + "abc") {
		t.Fatalf("expected bucket key %q", defaultKeyPrefix+"abc")
	}
	ttl := s.TTL(defaultKeyPrefix + "abc")
	if ttl <= 0 {
		t.Fatalf("expected bucket to expire, ttl=%v", ttl)
	}

	tokens, err := rdb.HGet(context.Background(), defaultKeyPrefix+"abc", "tokens").Float64()
	if err != nil {
		t.Fatalf("hget tokens: %v", err)
	}
	if tokens > 4.1 {
		t.Fatalf("expected one token taken, got %.2f", tokens)
	}
}

func TestRedisStore_FailsOpen(t *testing.T) {
	s, rdb := newMiniRedis(t)
	store := NewRedisStore(rdb, logger.NewNop(), 1, 1)
	s.Close()

	allowed, err := store.Allow("client")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected request to pass when redis is down")
	}
}
