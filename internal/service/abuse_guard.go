package service

import (
	"context"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/model"
	"github.com/iliyamo/stock-reservation/internal/repository"
)

// DefaultMaxReservationsPerOwner caps how many concurrent active holds one
// owner may accumulate, regardless of stock levels.
const DefaultMaxReservationsPerOwner = 10

// AbuseGuard enforces the per-owner cap on concurrent active reservations.
// Counting is done against the wall clock, not storage eviction timing: a
// hold whose expiry has passed no longer consumes a slot even if the backend
// has not purged the record yet.
type AbuseGuard struct {
	store repository.ReservationStore
	clock clock.Clock
	max   int
}

// NewAbuseGuard returns a guard with the given cap; a non-positive max falls
// back to DefaultMaxReservationsPerOwner.
func NewAbuseGuard(store repository.ReservationStore, clk clock.Clock, max int) *AbuseGuard {
	if max <= 0 {
		max = DefaultMaxReservationsPerOwner
	}
	return &AbuseGuard{store: store, clock: clk, max: max}
}

// Check reports whether the owner may create another reservation, along with
// the number of active holds currently counted against them.
func (g *AbuseGuard) Check(ctx context.Context, owner model.Owner) (bool, int, error) {
	active, err := listActiveByOwner(ctx, g.store, g.clock, owner)
	if err != nil {
		return false, 0, err
	}
	return len(active) < g.max, len(active), nil
}
