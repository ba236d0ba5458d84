// Package service implements the reservation engine: availability
// calculation, the per-owner abuse guard, the reservation lifecycle manager
// and the expiry sweeper. All mutable state lives in a ReservationStore;
// the services themselves are stateless and safe for concurrent use.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/inventory"
	"github.com/iliyamo/stock-reservation/internal/model"
	"github.com/iliyamo/stock-reservation/internal/repository"
)

// Availability computes available stock for a bucket from the authoritative
// total and the bucket's active-reservation counter. Reading the counter
// instead of scanning every record keeps the query O(1) and means the answer
// reflects exactly the quantity the capped increment has admitted.
type Availability struct {
	store repository.ReservationStore
	inv   inventory.Source
}

// NewAvailability returns a calculator over the given store and source.
func NewAvailability(store repository.ReservationStore, inv inventory.Source) *Availability {
	return &Availability{store: store, inv: inv}
}

// GetAvailableStock reports total, reserved and available stock for a
// product or variation. The call is read-only. When the inventory source is
// unreachable it returns ErrStockUnavailable; when the store is unreachable
// it returns repository.ErrStoreUnavailable. In both cases callers must
// treat availability as unknown and refuse new reservations.
func (a *Availability) GetAvailableStock(ctx context.Context, productID, variationID string) (model.StockAvailability, error) {
	total, err := a.inv.TotalStock(ctx, productID, variationID)
	if err != nil {
		if errors.Is(err, inventory.ErrUnavailable) {
			return model.StockAvailability{}, fmt.Errorf("%w: %v", ErrStockUnavailable, err)
		}
		return model.StockAvailability{}, err
	}

	reserved, err := a.store.GetInt(ctx, repository.CounterKey(model.Bucket(productID, variationID)))
	if err != nil {
		return model.StockAvailability{}, err
	}

	available := total - int(reserved)
	if available < 0 {
		available = 0
	}
	return model.StockAvailability{
		AvailableStock: available,
		TotalStock:     total,
		ReservedStock:  int(reserved),
	}, nil
}

// listActiveByOwner loads an owner's reservations through the owner index
// and keeps only those still active by wall clock. Index entries whose
// record has already vanished are skipped; they are cleaned up lazily by
// TTL or the sweeper.
func listActiveByOwner(ctx context.Context, store repository.ReservationStore, clk clock.Clock, owner model.Owner) ([]model.Reservation, error) {
	keys, err := store.ListPrefix(ctx, repository.OwnerKeyPrefix(owner))
	if err != nil {
		return nil, err
	}
	now := clk.Now()
	out := make([]model.Reservation, 0, len(keys))
	for _, key := range keys {
		recordKey, err := store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		raw, err := store.Get(ctx, string(recordKey))
		if err != nil {
			if errors.Is(err, repository.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		res, err := decodeReservation(raw)
		if err != nil {
			continue
		}
		if res.ActiveAt(now) {
			out = append(out, res)
		}
	}
	return out, nil
}
