package repository

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/stock-reservation/internal/clock"
)

func newStore() (*MemoryStore, *clock.Manual) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewMemoryStore(clk), clk
}

func TestMemoryStore_TTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, clk := newStore()

	if err := store.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set(ctx, "k2", []byte("v2"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil || string(got) != "v1" {
		t.Fatalf("unexpected get: %q %v", got, err)
	}

	clk.Advance(time.Minute)

	if _, err := store.Get(ctx, "k1"); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound after TTL lapse, got %v", err)
	}
	// No-TTL entries never lapse.
	if _, err := store.Get(ctx, "k2"); err != nil {
		t.Fatalf("expected k2 to survive, got %v", err)
	}
}

func TestMemoryStore_ListPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, clk := newStore()

	_ = store.Set(ctx, "a:1", []byte("x"), time.Minute)
	_ = store.Set(ctx, "a:2", []byte("y"), 10*time.Minute)
	_ = store.Set(ctx, "b:1", []byte("z"), 10*time.Minute)

	keys, err := store.ListPrefix(ctx, "a:")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}

	clk.Advance(2 * time.Minute)

	keys, err = store.ListPrefix(ctx, "a:")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "a:2" {
		t.Fatalf("expected lapsed key excluded, got %v", keys)
	}
}

func TestMemoryStore_DeleteCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, clk := newStore()

	_ = store.Set(ctx, "k1", []byte("x"), time.Minute)
	_ = store.Set(ctx, "k2", []byte("y"), 0)
	clk.Advance(2 * time.Minute)

	// Lapsed and absent keys do not count as removed.
	n, err := store.Delete(ctx, "k1", "k2", "k3")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 live key removed: n=%d err=%v", n, err)
	}
	n, err = store.Delete(ctx, "k2")
	if err != nil || n != 0 {
		t.Fatalf("expected repeat delete to remove nothing: n=%d err=%v", n, err)
	}
}

func TestMemoryStore_IncrByCapped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newStore()

	val, ok, err := store.IncrByCapped(ctx, "cnt", 3, 5, time.Minute)
	if err != nil || !ok || val != 3 {
		t.Fatalf("unexpected result: val=%d ok=%v err=%v", val, ok, err)
	}

	// Would exceed the cap: rejected, current count returned unchanged.
	val, ok, err = store.IncrByCapped(ctx, "cnt", 3, 5, time.Minute)
	if err != nil || ok || val != 3 {
		t.Fatalf("expected rejection at cap: val=%d ok=%v err=%v", val, ok, err)
	}

	// Exactly filling the cap is allowed.
	val, ok, err = store.IncrByCapped(ctx, "cnt", 2, 5, time.Minute)
	if err != nil || !ok || val != 5 {
		t.Fatalf("expected fill to cap: val=%d ok=%v err=%v", val, ok, err)
	}
}

func TestMemoryStore_DecrByFloor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newStore()

	_, _, _ = store.IncrByCapped(ctx, "cnt", 4, 10, time.Minute)

	val, err := store.DecrByFloor(ctx, "cnt", 3)
	if err != nil || val != 1 {
		t.Fatalf("unexpected decrement: val=%d err=%v", val, err)
	}
	// Floors at zero, even on over-decrement.
	val, err = store.DecrByFloor(ctx, "cnt", 5)
	if err != nil || val != 0 {
		t.Fatalf("expected floor at zero: val=%d err=%v", val, err)
	}
	n, err := store.GetInt(ctx, "cnt")
	if err != nil || n != 0 {
		t.Fatalf("expected counter removed at zero: n=%d err=%v", n, err)
	}
}

func TestMemoryStore_CounterTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, clk := newStore()

	_, _, _ = store.IncrByCapped(ctx, "cnt", 2, 10, time.Minute)
	clk.Advance(2 * time.Minute)

	n, err := store.GetInt(ctx, "cnt")
	if err != nil || n != 0 {
		t.Fatalf("expected lapsed counter to read 0: n=%d err=%v", n, err)
	}
}
