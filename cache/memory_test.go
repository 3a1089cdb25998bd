package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_LoadStoreRemove(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if val, ok := c.Load(ctx, "nonexistent"); ok || val != nil {
		t.Errorf("Load on empty cache = %v, %v; want nil, false", val, ok)
	}

	root := map[string]int{"a": 1}
	if err := c.Store(ctx, "root", root); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok := c.Load(ctx, "root")
	if !ok {
		t.Fatal("Load after Store should return ok=true")
	}
	// Values are held by reference.
	got.(map[string]int)["b"] = 2
	if root["b"] != 2 {
		t.Error("expected Load to return the stored reference")
	}

	if err := c.Remove(ctx, "root"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := c.Load(ctx, "root"); ok {
		t.Error("Load after Remove should return ok=false")
	}
	if err := c.Remove(ctx, "root"); err != nil {
		t.Errorf("Remove should be idempotent, got %v", err)
	}
}

func TestMemoryCache_StoreRejectsInvalidKey(t *testing.T) {
	c := NewMemoryCache()
	if err := c.Store(context.Background(), "", 1); err != ErrInvalidKey {
		t.Errorf("Store(\"\") = %v, want ErrInvalidKey", err)
	}
}

func TestMemoryCache_ClearAll(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = c.Store(ctx, fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after ClearAll = %d, want 0", c.Len())
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewMemoryCache(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = c.Store(ctx, "k", "v")
	if _, ok := c.Load(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Load(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Error("expected expired entry to be collected")
	}
}

func TestMemoryCache_NoTTLByDefault(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewMemoryCache(WithClock(func() time.Time { return now }))
	_ = c.Store(context.Background(), "k", "v")
	now = now.Add(24 * 365 * time.Hour)
	if _, ok := c.Load(context.Background(), "k"); !ok {
		t.Error("entries without TTL must not expire")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Store(ctx, key, i)
			c.Load(ctx, key)
			if i%10 == 0 {
				_ = c.Remove(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
