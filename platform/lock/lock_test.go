package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockerRefusesSecondHolder(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, "visit-response:")
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "v1", 10*time.Second)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "v1", 10*time.Second); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}

	release(ctx)
	again, err := locker.Acquire(ctx, "v1", 10*time.Second)
	if err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	again(ctx)
}

func TestRedisLockerNamespacesKey(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "app:lock:")
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "visit-response:v1", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release(ctx)

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "app:lock:visit-response:v1" {
		t.Fatalf("expected single namespaced key, got %v", keys)
	}
}

func TestRedisLockerExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "visit-response:")
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "v2", 5*time.Second); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	mr.FastForward(6 * time.Second)

	if _, err := locker.Acquire(ctx, "v2", 5*time.Second); err != nil {
		t.Fatalf("expected lock to expire, got %v", err)
	}
}

func TestRedisLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "visit-response:")
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "v3", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := locker.Acquire(ctx, "v3", 10*time.Second); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	stale(ctx)
	if !mr.Exists("visit-response:v3") {
		t.Fatalf("expected stale release to leave the new holder's key in place")
	}
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "v1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "v1", time.Second); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
	release(ctx)
	if _, err := locker.Acquire(ctx, "v1", time.Second); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := locker.Acquire(ctx, "v1", time.Second); err != nil {
		t.Fatalf("expected acquire after expiry, got %v", err)
	}
}
