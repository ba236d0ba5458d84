package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/metrics"
	"github.com/iliyamo/stock-reservation/internal/model"
	"github.com/iliyamo/stock-reservation/internal/repository"
)

const (
	// defaultReservationTTL is how long a hold stays valid after creation.
	// There is no renewal operation: the window is fixed at create time.
	defaultReservationTTL = 15 * time.Minute

	// defaultAuditTTL is how long a confirmed reservation remains readable
	// for diagnostics after checkout completed.
	defaultAuditTTL = 24 * time.Hour

	// evictionGrace is added to the storage TTL of active records so that
	// release and the sweeper normally settle the bucket counter before
	// native eviction removes the record out from under them. Logical
	// expiry is always decided by ExpiresAt, never by this grace.
	evictionGrace = 5 * time.Minute
)

// Manager owns the reservation state machine. All writes to reservation
// state go through its Create, Confirm and Release entry points (plus the
// sweeper's cleanup); no other component touches the records.
type Manager struct {
	store    repository.ReservationStore
	calc     *Availability
	guard    *AbuseGuard
	clock    clock.Clock
	ttl      time.Duration
	auditTTL time.Duration
}

// ManagerOption tunes a Manager at construction time.
type ManagerOption func(*Manager)

// WithReservationTTL overrides how long new holds stay valid.
func WithReservationTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithAuditTTL overrides how long confirmed holds remain inspectable.
func WithAuditTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.auditTTL = d
		}
	}
}

// NewManager wires the manager with its collaborators.
func NewManager(store repository.ReservationStore, calc *Availability, guard *AbuseGuard, clk clock.Clock, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		calc:     calc,
		guard:    guard,
		clock:    clk,
		ttl:      defaultReservationTTL,
		auditTTL: defaultAuditTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateInput carries the parameters of a reservation attempt.
type CreateInput struct {
	ProductID     string
	VariationID   string
	Quantity      int
	Owner         model.Owner
	CorrelationID string
}

// Create places a new hold. The order of checks is fixed: validation, the
// per-owner cap, then stock. The stock check is enforced by a capped atomic
// increment of the bucket counter, so two concurrent calls can never both
// claim the last unit; whichever loses observes the reduced availability and
// fails with InsufficientStockError.
func (m *Manager) Create(ctx context.Context, in CreateInput) (model.Reservation, error) {
	if in.Quantity <= 0 {
		metrics.ReservationsRejected.WithLabelValues("invalid").Inc()
		return model.Reservation{}, ErrInvalidQuantity
	}
	if in.ProductID == "" {
		metrics.ReservationsRejected.WithLabelValues("invalid").Inc()
		return model.Reservation{}, ErrInvalidProduct
	}
	if in.Owner.IsZero() {
		metrics.ReservationsRejected.WithLabelValues("invalid").Inc()
		return model.Reservation{}, ErrInvalidOwner
	}

	allowed, _, err := m.guard.Check(ctx, in.Owner)
	if err != nil {
		return model.Reservation{}, err
	}
	if !allowed {
		metrics.ReservationsRejected.WithLabelValues("too_many").Inc()
		return model.Reservation{}, ErrTooManyReservations
	}

	avail, err := m.calc.GetAvailableStock(ctx, in.ProductID, in.VariationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if avail.AvailableStock < in.Quantity {
		metrics.ReservationsRejected.WithLabelValues("insufficient_stock").Inc()
		return model.Reservation{}, &InsufficientStockError{Available: avail.AvailableStock}
	}

	now := m.clock.Now()
	res := model.Reservation{
		ID:            uuid.NewString(),
		ProductID:     in.ProductID,
		VariationID:   in.VariationID,
		Quantity:      in.Quantity,
		Owner:         in.Owner,
		Status:        model.StatusActive,
		ReservedAt:    now,
		ExpiresAt:     now.Add(m.ttl),
		CorrelationID: in.CorrelationID,
	}

	bucket := res.Bucket()
	recordTTL := m.ttl + evictionGrace

	// The availability check above is advisory; this increment is the real
	// gate. On rejection the returned count tells us what actually remains.
	cur, ok, err := m.store.IncrByCapped(ctx, repository.CounterKey(bucket),
		int64(in.Quantity), int64(avail.TotalStock), recordTTL)
	if err != nil {
		return model.Reservation{}, err
	}
	if !ok {
		remaining := avail.TotalStock - int(cur)
		if remaining < 0 {
			remaining = 0
		}
		metrics.ReservationsRejected.WithLabelValues("insufficient_stock").Inc()
		return model.Reservation{}, &InsufficientStockError{Available: remaining}
	}

	raw, err := json.Marshal(res)
	if err != nil {
		_, _ = m.store.DecrByFloor(ctx, repository.CounterKey(bucket), int64(in.Quantity))
		return model.Reservation{}, err
	}

	recordKey := repository.RecordKey(bucket, res.ID)
	if err := m.store.Set(ctx, recordKey, raw, recordTTL); err != nil {
		_, _ = m.store.DecrByFloor(ctx, repository.CounterKey(bucket), int64(in.Quantity))
		return model.Reservation{}, err
	}
	if err := m.store.Set(ctx, repository.IDKey(res.ID), []byte(recordKey), recordTTL); err != nil {
		m.rollbackCreate(ctx, res, recordKey, "")
		return model.Reservation{}, err
	}
	if err := m.store.Set(ctx, repository.OwnerKey(res.Owner, res.ID), []byte(recordKey), recordTTL); err != nil {
		m.rollbackCreate(ctx, res, recordKey, repository.IDKey(res.ID))
		return model.Reservation{}, err
	}

	metrics.ReservationsCreated.Inc()
	return res, nil
}

// rollbackCreate undoes a partially written reservation so a failed create
// never leaks held quantity. Best effort: a decrement lost here leaves the
// counter high until its TTL lapses, under-reporting availability but never
// overselling.
func (m *Manager) rollbackCreate(ctx context.Context, res model.Reservation, keys ...string) {
	present := keys[:0]
	for _, k := range keys {
		if k != "" {
			present = append(present, k)
		}
	}
	_, _ = m.store.Delete(ctx, present...)
	_, _ = m.store.DecrByFloor(ctx, repository.CounterKey(res.Bucket()), int64(res.Quantity))
}

// Confirm transitions an active hold to confirmed after a successful
// payment. The record is kept under the audit retention TTL instead of being
// deleted, and stops counting against available stock. Idempotent: a second
// confirm, or a confirm of a missing or expired hold, returns false with no
// error so duplicate payment webhooks are harmless. Confirm does not touch
// the authoritative stock count; decrementing it belongs to order creation.
func (m *Manager) Confirm(ctx context.Context, reservationID string) (bool, error) {
	res, recordKey, found, err := m.lookup(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if !found || res.Status != model.StatusActive {
		return false, nil
	}
	now := m.clock.Now()
	if !now.Before(res.ExpiresAt) {
		// Lapsed before payment landed; expiry wins, the sweeper or TTL
		// will collect the record.
		return false, nil
	}

	res.Status = model.StatusConfirmed
	res.ConfirmedAt = &now
	raw, err := json.Marshal(res)
	if err != nil {
		return false, err
	}
	if err := m.store.Set(ctx, recordKey, raw, m.auditTTL); err != nil {
		return false, err
	}
	if err := m.store.Set(ctx, repository.IDKey(res.ID), []byte(recordKey), m.auditTTL); err != nil {
		return false, err
	}
	_, _ = m.store.Delete(ctx, repository.OwnerKey(res.Owner, res.ID))
	if _, err := m.store.DecrByFloor(ctx, repository.CounterKey(res.Bucket()), int64(res.Quantity)); err != nil {
		return false, err
	}

	metrics.ReservationsConfirmed.Inc()
	return true, nil
}

// Release cancels a hold and returns its quantity to the pool immediately,
// with no TTL wait. Idempotent: releasing a missing or already-terminal
// reservation is a successful no-op returning false, never an error, because
// user cancellations and payment-failure callbacks race each other and
// natural expiry.
func (m *Manager) Release(ctx context.Context, reservationID string) (bool, error) {
	res, recordKey, found, err := m.lookup(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if res.Status != model.StatusActive {
		// Confirmed records stay for audit; nothing to free either way.
		return false, nil
	}

	removed, err := m.store.Delete(ctx, recordKey)
	if err != nil {
		return false, err
	}
	if _, err := m.store.Delete(ctx, repository.IDKey(res.ID), repository.OwnerKey(res.Owner, res.ID)); err != nil {
		return false, err
	}
	if removed == 0 {
		// The sweeper collected the record between lookup and delete and
		// settled the counter itself.
		return false, nil
	}
	// The hold was counted even if its wall-clock expiry already passed, so
	// settle the counter for the record this call removed.
	if _, err := m.store.DecrByFloor(ctx, repository.CounterKey(res.Bucket()), int64(res.Quantity)); err != nil {
		return false, err
	}

	metrics.ReservationsReleased.Inc()
	return true, nil
}

// Get returns the reservation with the given id regardless of status, for
// diagnostics and event publishing. The boolean reports existence.
func (m *Manager) Get(ctx context.Context, reservationID string) (model.Reservation, bool, error) {
	res, _, found, err := m.lookup(ctx, reservationID)
	return res, found, err
}

// ListActive returns the owner's active, non-expired reservations.
func (m *Manager) ListActive(ctx context.Context, owner model.Owner) ([]model.Reservation, error) {
	return listActiveByOwner(ctx, m.store, m.clock, owner)
}

// lookup resolves a reservation id to its record via the id index. Records
// are partitioned by bucket, so the bare id a payment callback carries is
// not enough to address the record directly.
func (m *Manager) lookup(ctx context.Context, reservationID string) (model.Reservation, string, bool, error) {
	if reservationID == "" {
		return model.Reservation{}, "", false, nil
	}
	recordKey, err := m.store.Get(ctx, repository.IDKey(reservationID))
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return model.Reservation{}, "", false, nil
		}
		return model.Reservation{}, "", false, err
	}
	raw, err := m.store.Get(ctx, string(recordKey))
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			// Record evicted but index survived; drop the stale entry.
			_, _ = m.store.Delete(ctx, repository.IDKey(reservationID))
			return model.Reservation{}, "", false, nil
		}
		return model.Reservation{}, "", false, err
	}
	res, err := decodeReservation(raw)
	if err != nil {
		return model.Reservation{}, "", false, err
	}
	return res, string(recordKey), true, nil
}

func decodeReservation(raw []byte) (model.Reservation, error) {
	var res model.Reservation
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}
