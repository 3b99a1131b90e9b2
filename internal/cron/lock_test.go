package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const testLockKey = "nf:lock:cron-worker:test"

type memoryLocks struct {
	values map[string]string
}

func (m *memoryLocks) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLocks) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func newTestLock(t *testing.T, store *memoryLocks, holder string) *RedisLock {
	t.Helper()
	lock, err := NewRedisLock(store, testLockKey, holder, 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	return lock
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := &memoryLocks{values: map[string]string{}}
	first := newTestLock(t, store, "worker-a")
	second := newTestLock(t, store, "worker-b")
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire, got ok=%v err=%v", ok, err)
	}
	if !strings.HasPrefix(store.values[testLockKey], "worker-a/") {
		t.Fatalf("expected holder in lock value, got %q", store.values[testLockKey])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("expected second acquire to be refused")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release without acquire should be a no-op, got %v", err)
	}
	if _, ok := store.values[testLockKey]; !ok {
		t.Fatal("non-owner release must keep the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release")
	}
}

func TestRedisLockReportsLostLock(t *testing.T) {
	store := &memoryLocks{values: map[string]string{}}
	lock := newTestLock(t, store, "worker-a")
	ctx := context.Background()

	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	// expired, then taken by another worker
	store.values[testLockKey] = "worker-b/other"

	if err := lock.Release(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
	if store.values[testLockKey] != "worker-b/other" {
		t.Fatal("the other worker's lock must survive")
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
	if lock.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", lock.ttl)
	}
}
