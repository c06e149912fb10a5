package cacheinfra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type redisUser struct {
	ID   int    `msgpack:"id"`
	Name string `msgpack:"name"`
}

func newTestRedisTier(t *testing.T, ttl time.Duration) (*RedisTier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := RedisConfig{Addrs: []string{mr.Addr()}, KeyPrefix: "test:", TTL: ttl}
	tier, err := NewRedisTier("shared", cfg, nil)
	if err != nil {
		t.Fatalf("failed to build redis tier: %v", err)
	}
	t.Cleanup(func() { _ = tier.Close() })
	return tier, mr
}

func TestRedisTier_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tier, mr := newTestRedisTier(t, 0)

	if _, ok, err := tier.Get(ctx, "users::1"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := tier.Put(ctx, "users::1", redisUser{ID: 1, Name: "alice"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if !mr.Exists("test:users::1") {
		t.Fatal("expected prefixed key in redis")
	}

	v, ok, err := tier.Get(ctx, "users::1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}

	enc, isEncoded := v.(Encoded)
	if !isEncoded {
		t.Fatalf("expected Encoded value, got %T", v)
	}

	var got redisUser
	if err := enc.DecodeInto(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != (redisUser{ID: 1, Name: "alice"}) {
		t.Errorf("unexpected decoded value: %+v", got)
	}
}

func TestRedisTier_Tombstone(t *testing.T) {
	ctx := context.Background()
	tier, _ := newTestRedisTier(t, 0)

	if err := tier.Put(ctx, "users::9", Tombstone{}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	v, ok, err := tier.Get(ctx, "users::9")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !IsTombstone(v) {
		t.Errorf("expected tombstone, got %T", v)
	}
}

func TestRedisTier_TTL(t *testing.T) {
	ctx := context.Background()
	tier, mr := newTestRedisTier(t, time.Minute)

	if err := tier.Put(ctx, "users::1", "alice"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if ttl := mr.TTL("test:users::1"); ttl != time.Minute {
		t.Errorf("expected ttl of 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := tier.Get(ctx, "users::1"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisTier_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	tier, mr := newTestRedisTier(t, 0)

	for _, key := range []string{"users::1", "users::2", "teams::1"} {
		if err := tier.Put(ctx, key, key); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	if err := tier.Delete(ctx, "teams::1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := tier.DeleteByPrefix(ctx, "users::"); err != nil {
		t.Fatalf("delete by prefix failed: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("expected no keys left, got %v", keys)
	}
}

func TestRedisTier_ReadFailure(t *testing.T) {
	ctx := context.Background()
	tier, mr := newTestRedisTier(t, 0)
	mr.Close()

	if _, _, err := tier.Get(ctx, "users::1"); err == nil {
		t.Error("expected read error when redis is down")
	}
	if err := tier.Put(ctx, "users::1", "x"); err == nil {
		t.Error("expected write error when redis is down")
	}
}
