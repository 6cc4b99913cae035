package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryRedis struct {
	data map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := &memoryRedis{data: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "cq:lock:cron-worker:test", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "cq:lock:cron-worker:test", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second instance must not acquire a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.data["cq:lock:cron-worker:test"]; !held {
		t.Fatal("non-owner release must not drop the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("lock should be free after release")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewRedisLock(&memoryRedis{}, "", 0); err == nil {
		t.Fatal("expected error without key")
	}
}

func TestRedisLockLeavesTakenOverLeaseAlone(t *testing.T) {
	store := &memoryRedis{data: map[string]string{}}
	ctx := context.Background()
	lock, _ := NewRedisLock(store, "cq:lock:cron-worker:test", time.Minute)

	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	if !strings.HasPrefix(lock.Holder(), lock.holder+":") {
		t.Fatalf("holder should carry host and pid, got %q", lock.Holder())
	}

	// the lease expired and another worker took it
	store.data["cq:lock:cron-worker:test"] = "other-host:1:token"
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["cq:lock:cron-worker:test"] != "other-host:1:token" {
		t.Fatal("release must not drop another worker's lease")
	}
	if lock.Holder() != "" {
		t.Fatal("holder should be cleared after release")
	}
}
