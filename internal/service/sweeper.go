package service

import (
	"context"
	"errors"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/metrics"
	"github.com/iliyamo/stock-reservation/internal/model"
	"github.com/iliyamo/stock-reservation/internal/repository"
)

// Sweeper removes reservations whose declared expiry has passed and settles
// the per-bucket counters. Native TTL eviction is the first line of expiry;
// the sweep is the backstop against clock drift, misconfigured TTLs and
// backends that evict late or not at all. It runs on an external schedule
// (cron or a timer loop in cmd/sweeper), never as a thread owned by the
// manager, and is safe to run concurrently with every manager operation:
// each counter decrement corresponds to one record this sweep itself
// removed, so a create, confirm or release landing mid-sweep is never
// undone. Counters left behind by natively evicted records are not swept;
// they expire on their own TTL, which until then only under-reports
// availability, never overselling.
type Sweeper struct {
	store repository.ReservationStore
	clock clock.Clock
}

// NewSweeper returns a sweeper over the given store.
func NewSweeper(store repository.ReservationStore, clk clock.Clock) *Sweeper {
	return &Sweeper{store: store, clock: clk}
}

// CleanupExpired scans the reservation namespace, deletes every record still
// in status active whose ExpiresAt has passed, and returns how many were
// removed. Confirmed records are never touched: a sweep racing a confirm
// must not delete what just became an audit record. The bucket counter is
// decremented by each removed record's quantity, gated on this sweep having
// won the record delete, so a release arriving between read and delete
// settles the counter exactly once.
func (s *Sweeper) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := s.store.ListPrefix(ctx, repository.RecordKeyPrefix())
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	removed := 0

	for _, key := range keys {
		raw, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrKeyNotFound) {
				continue // evicted between scan and read
			}
			return removed, err
		}
		res, err := decodeReservation(raw)
		if err != nil {
			continue
		}
		if res.Status != model.StatusActive || now.Before(res.ExpiresAt) {
			continue
		}
		n, err := s.store.Delete(ctx, key)
		if err != nil {
			return removed, err
		}
		if _, err := s.store.Delete(ctx, repository.IDKey(res.ID), repository.OwnerKey(res.Owner, res.ID)); err != nil {
			return removed, err
		}
		if n == 0 {
			// Someone else collected the record first and owns the settle.
			continue
		}
		if _, err := s.store.DecrByFloor(ctx, repository.CounterKey(res.Bucket()), int64(res.Quantity)); err != nil {
			return removed, err
		}
		removed++
	}

	metrics.ReservationsSwept.Add(float64(removed))
	return removed, nil
}
