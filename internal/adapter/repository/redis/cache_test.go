package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "taxcodes:acme:SR", []byte(`[{"code":"SR"}]`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "taxcodes:acme:SR")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(val) != `[{"code":"SR"}]` {
		t.Fatalf("unexpected value %s", val)
	}

	if !mr.Exists("taxledger:cache:taxcodes:acme:SR") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}
}

func TestCacheMissAndExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if _, err := cache.Get(ctx, "absent"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := cache.Set(ctx, "short", []byte("x"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "foo"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss getting deleted key, got %v", err)
	}
}

func TestCacheServerDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	cache := NewCache(client)
	_, err := cache.Get(context.Background(), "foo")
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
