package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryReplayGuard(t *testing.T) {
	g := NewMemoryReplayGuard(time.Hour)
	defer g.Stop()
	ctx := context.Background()

	if seen, err := g.Seen(ctx, "app-store:uuid-1"); err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	if seen, _ := g.Seen(ctx, "app-store:uuid-1"); !seen {
		t.Fatalf("second delivery should be a replay")
	}
	if seen, _ := g.Seen(ctx, "app-store:uuid-2"); seen {
		t.Fatalf("different key reported as replay")
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", g.Len())
	}

	if err := g.Forget(ctx, "app-store:uuid-1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if seen, _ := g.Seen(ctx, "app-store:uuid-1"); seen {
		t.Fatalf("forgotten key should be accepted again")
	}
}

func TestMemoryReplayGuardExpiry(t *testing.T) {
	g := NewMemoryReplayGuard(10 * time.Millisecond)
	defer g.Stop()
	ctx := context.Background()

	g.Seen(ctx, "k")
	time.Sleep(20 * time.Millisecond)
	if seen, _ := g.Seen(ctx, "k"); seen {
		t.Fatalf("expired record should not count as a replay")
	}

	time.Sleep(20 * time.Millisecond)
	g.cleanup()
	if g.Len() != 0 {
		t.Fatalf("cleanup left %d records", g.Len())
	}
}

func TestRedisReplayGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	g := NewRedisReplayGuard(client, time.Hour)
	ctx := context.Background()

	if seen, err := g.Seen(ctx, "google-play:136969346945"); err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	if seen, err := g.Seen(ctx, "google-play:136969346945"); err != nil || !seen {
		t.Fatalf("second delivery: seen=%v err=%v", seen, err)
	}

	key := "iap:replay:" + hashKey("google-play:136969346945")
	if !mr.Exists(key) {
		t.Fatalf("expected %s in redis, keys: %v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := g.Forget(ctx, "google-play:136969346945"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if seen, _ := g.Seen(ctx, "google-play:136969346945"); seen {
		t.Fatalf("forgotten key should be accepted again")
	}

	mr.FastForward(2 * time.Hour)
	if seen, _ := g.Seen(ctx, "google-play:136969346945"); seen {
		t.Fatalf("expired key should be accepted again")
	}
}

func TestRedisReplayGuardError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	g := NewRedisReplayGuard(client, time.Hour)
	if _, err := g.Seen(context.Background(), "k"); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
