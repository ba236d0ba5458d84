package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/inventory"
	"github.com/iliyamo/stock-reservation/internal/model"
	"github.com/iliyamo/stock-reservation/internal/repository"
)

type testEngine struct {
	manager *Manager
	calc    *Availability
	store   *repository.MemoryStore
	clock   *clock.Manual
	inv     *inventory.Static
}

func newTestEngine(stock map[string]int, opts ...ManagerOption) *testEngine {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clk)
	inv := inventory.NewStatic(stock)
	calc := NewAvailability(store, inv)
	guard := NewAbuseGuard(store, clk, DefaultMaxReservationsPerOwner)
	return &testEngine{
		manager: NewManager(store, calc, guard, clk, opts...),
		calc:    calc,
		store:   store,
		clock:   clk,
		inv:     inv,
	}
}

func mustCreate(t *testing.T, eng *testEngine, in CreateInput) model.Reservation {
	t.Helper()
	res, err := eng.manager.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return res
}

func availableNow(t *testing.T, eng *testEngine, productID string) model.StockAvailability {
	t.Helper()
	avail, err := eng.calc.GetAvailableStock(context.Background(), productID, "")
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	return avail
}

func TestManager_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reserves stock and reduces availability", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})

		res := mustCreate(t, eng, CreateInput{
			ProductID: "sku-1", Quantity: 7, Owner: model.UserOwner("alice"),
		})
		if res.Status != model.StatusActive {
			t.Fatalf("expected status active, got %s", res.Status)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation id to be set")
		}
		if !res.ExpiresAt.After(res.ReservedAt) {
			t.Fatalf("expected expires_at after reserved_at")
		}

		avail := availableNow(t, eng, "sku-1")
		if avail.AvailableStock != 3 || avail.ReservedStock != 7 || avail.TotalStock != 10 {
			t.Fatalf("unexpected availability: %+v", avail)
		}

		_, err := eng.manager.Create(ctx, CreateInput{
			ProductID: "sku-1", Quantity: 5, Owner: model.UserOwner("bob"),
		})
		var insufficient *InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if insufficient.Available != 3 {
			t.Fatalf("expected 3 available in error, got %d", insufficient.Available)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})

		if _, err := eng.manager.Create(ctx, CreateInput{ProductID: "sku-1", Quantity: 0, Owner: model.UserOwner("a")}); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
		if _, err := eng.manager.Create(ctx, CreateInput{Quantity: 1, Owner: model.UserOwner("a")}); !errors.Is(err, ErrInvalidProduct) {
			t.Fatalf("expected ErrInvalidProduct, got %v", err)
		}
		if _, err := eng.manager.Create(ctx, CreateInput{ProductID: "sku-1", Quantity: 1}); !errors.Is(err, ErrInvalidOwner) {
			t.Fatalf("expected ErrInvalidOwner, got %v", err)
		}
	})

	t.Run("enforces per-owner cap regardless of stock", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 1000})
		owner := model.SessionOwner("sess-1")

		for i := 0; i < DefaultMaxReservationsPerOwner; i++ {
			mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: owner})
		}
		_, err := eng.manager.Create(ctx, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: owner})
		if !errors.Is(err, ErrTooManyReservations) {
			t.Fatalf("expected ErrTooManyReservations, got %v", err)
		}

		// A different owner is unaffected.
		mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: model.SessionOwner("sess-2")})
	})

	t.Run("fails closed when the inventory source is down", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		eng.inv.SetDown(true)

		if _, err := eng.manager.Create(ctx, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: model.UserOwner("a")}); !errors.Is(err, ErrStockUnavailable) {
			t.Fatalf("expected ErrStockUnavailable, got %v", err)
		}
		if _, err := eng.calc.GetAvailableStock(ctx, "sku-1", ""); !errors.Is(err, ErrStockUnavailable) {
			t.Fatalf("expected availability query to fail closed, got %v", err)
		}
	})

	t.Run("separates variation buckets", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1/red": 2, "sku-1/blue": 2})

		mustCreate(t, eng, CreateInput{ProductID: "sku-1", VariationID: "red", Quantity: 2, Owner: model.UserOwner("a")})

		// Red is exhausted, blue is untouched.
		if _, err := eng.manager.Create(ctx, CreateInput{ProductID: "sku-1", VariationID: "red", Quantity: 1, Owner: model.UserOwner("b")}); err == nil {
			t.Fatalf("expected insufficient stock for red variation")
		}
		mustCreate(t, eng, CreateInput{ProductID: "sku-1", VariationID: "blue", Quantity: 2, Owner: model.UserOwner("b")})
	})
}

// TestManager_ConcurrentCreate drives more demand than stock at one bucket
// concurrently; the capped counter must admit exactly the available quantity.
func TestManager_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	const total = 5
	const attempts = 12
	eng := newTestEngine(map[string]int{"sku-hot": total})

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := eng.manager.Create(context.Background(), CreateInput{
				ProductID: "sku-hot",
				Quantity:  1,
				Owner:     model.SessionOwner(string(rune('a' + n))),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			var e *InsufficientStockError
			if !errors.As(err, &e) {
				t.Fatalf("unexpected error: %v", err)
			}
			insufficient++
		}
	}
	if succeeded != total {
		t.Fatalf("expected exactly %d successful creates, got %d", total, succeeded)
	}
	if insufficient != attempts-total {
		t.Fatalf("expected %d rejections, got %d", attempts-total, insufficient)
	}

	avail := availableNow(t, eng, "sku-hot")
	if avail.AvailableStock != 0 || avail.ReservedStock != total {
		t.Fatalf("unexpected availability after race: %+v", avail)
	}
}

func TestManager_Confirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("is idempotent and frees reserved stock", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		res := mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 2, Owner: model.UserOwner("alice")})

		ok, err := eng.manager.Confirm(ctx, res.ID)
		if err != nil || !ok {
			t.Fatalf("expected first confirm to succeed, got ok=%v err=%v", ok, err)
		}

		// The confirmed hold no longer counts as reserved.
		if avail := availableNow(t, eng, "sku-1"); avail.AvailableStock != 10 || avail.ReservedStock != 0 {
			t.Fatalf("unexpected availability after confirm: %+v", avail)
		}

		// Duplicate webhook delivery.
		ok, err = eng.manager.Confirm(ctx, res.ID)
		if err != nil {
			t.Fatalf("second confirm errored: %v", err)
		}
		if ok {
			t.Fatalf("expected second confirm to be a no-op")
		}

		got, found, err := eng.manager.Get(ctx, res.ID)
		if err != nil || !found {
			t.Fatalf("expected confirmed record retained for audit, found=%v err=%v", found, err)
		}
		if got.Status != model.StatusConfirmed || got.ConfirmedAt == nil {
			t.Fatalf("unexpected record after confirm: %+v", got)
		}

		active, err := eng.manager.ListActive(ctx, model.UserOwner("alice"))
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(active) != 0 {
			t.Fatalf("expected no active reservations after confirm, got %d", len(active))
		}
	})

	t.Run("returns false for unknown id", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		ok, err := eng.manager.Confirm(ctx, "does-not-exist")
		if err != nil || ok {
			t.Fatalf("expected false with no error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("does not resurrect an expired hold", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		res := mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: model.UserOwner("slow")})

		eng.clock.Advance(defaultReservationTTL + time.Second)

		ok, err := eng.manager.Confirm(ctx, res.ID)
		if err != nil {
			t.Fatalf("confirm errored: %v", err)
		}
		if ok {
			t.Fatalf("expected confirm of expired hold to be refused")
		}
	})
}

func TestManager_Release(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("frees stock immediately", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		res := mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 3, Owner: model.UserOwner("alice")})

		ok, err := eng.manager.Release(ctx, res.ID)
		if err != nil || !ok {
			t.Fatalf("expected release to succeed, got ok=%v err=%v", ok, err)
		}
		if avail := availableNow(t, eng, "sku-1"); avail.AvailableStock != 10 {
			t.Fatalf("expected full availability after release, got %+v", avail)
		}

		// Second release, and release of a confirmed hold, are no-ops.
		ok, err = eng.manager.Release(ctx, res.ID)
		if err != nil || ok {
			t.Fatalf("expected no-op on double release, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("absent reservation is a successful no-op", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		ok, err := eng.manager.Release(ctx, "gone")
		if err != nil || ok {
			t.Fatalf("expected no-op, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("keeps confirmed audit record", func(t *testing.T) {
		eng := newTestEngine(map[string]int{"sku-1": 10})
		res := mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: model.UserOwner("a")})
		if ok, _ := eng.manager.Confirm(ctx, res.ID); !ok {
			t.Fatalf("confirm failed")
		}

		ok, err := eng.manager.Release(ctx, res.ID)
		if err != nil || ok {
			t.Fatalf("expected release of confirmed hold to be a no-op, got ok=%v err=%v", ok, err)
		}
		if _, found, _ := eng.manager.Get(ctx, res.ID); !found {
			t.Fatalf("expected audit record to survive release attempt")
		}
	})
}

func TestManager_ListActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	eng := newTestEngine(map[string]int{"sku-1": 100})
	owner := model.UserOwner("alice")

	mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 1, Owner: owner})
	eng.clock.Advance(defaultReservationTTL + time.Minute)
	fresh := mustCreate(t, eng, CreateInput{ProductID: "sku-1", Quantity: 2, Owner: owner})

	active, err := eng.manager.ListActive(ctx, owner)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh reservation, got %+v", active)
	}
}
