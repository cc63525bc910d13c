package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	if err := mc.Set(ctx, "quote:TCS", payload{Symbol: "TCS", Price: 3500.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	if err := mc.Get(ctx, "quote:TCS", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Symbol != "TCS" || got.Price != 3500.5 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var dest string
	if err := mc.Get(context.Background(), "absent", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	var dest string
	if err := mc.Get(ctx, "k", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCacheReplace(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "old", time.Minute)
	_ = mc.Set(ctx, "k", "new", time.Minute)

	var dest string
	if err := mc.Get(ctx, "k", &dest); err != nil {
		t.Fatalf("get: %v", err)
	}
	if dest != "new" {
		t.Fatalf("expected replacement, got %q", dest)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(2 * time.Millisecond)
	_ = mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(2 * time.Millisecond)
	_ = mc.Set(ctx, "c", 3, time.Minute)

	var dest int
	if err := mc.Get(ctx, "a", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected oldest key evicted, got %v", err)
	}
	if err := mc.Get(ctx, "c", &dest); err != nil {
		t.Fatalf("newest key missing: %v", err)
	}
}
