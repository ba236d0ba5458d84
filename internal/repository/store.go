package repository

import (
	"context"
	"time"

	"github.com/iliyamo/stock-reservation/internal/model"
)

// ReservationStore is the TTL-capable key-value backend all reservation
// state lives in. It carries no business logic; the service layer composes
// these primitives into the create/confirm/release lifecycle.
//
// IncrByCapped and DecrByFloor exist so that reserving stock is a single
// atomic operation on the store: two concurrent creates can never both pass
// an availability check that only one of them should pass.
type ReservationStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound when the
	// key is absent or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key with the given TTL. A ttl of zero stores
	// the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys and returns how many of them were
	// present and live. Deleting an absent key is a no-op; the count lets
	// callers detect losing a delete race to another writer.
	Delete(ctx context.Context, keys ...string) (int64, error)
	// ListPrefix returns all keys beginning with prefix. The result is a
	// point-in-time snapshot, not a consistent view.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
	// GetInt reads the counter stored under key; absent counters read as 0.
	GetInt(ctx context.Context, key string) (int64, error)
	// IncrByCapped atomically adds delta to the counter under key unless the
	// result would exceed limit. It returns the counter value after the
	// operation and whether the increment was applied; on rejection the
	// returned value is the unchanged current count. An applied increment
	// refreshes the counter's TTL.
	IncrByCapped(ctx context.Context, key string, delta, limit int64, ttl time.Duration) (int64, bool, error)
	// DecrByFloor atomically subtracts delta from the counter under key,
	// never going below zero. A counter that reaches zero is removed.
	DecrByFloor(ctx context.Context, key string, delta int64) (int64, error)
}

// Key layout. Reservation records are partitioned by stock bucket; the id
// index provides the reverse path from a bare reservation id (all a payment
// webhook carries) back to the bucket, and the owner index enumerates one
// owner's holds for the abuse guard and "your held items" listings.
//
//	resv:item:<bucket>:<id>   -> JSON-encoded model.Reservation
//	resv:count:<bucket>       -> units currently held by active reservations
//	resv:id:<id>              -> record key (reverse lookup)
//	resv:owner:<kind>:<oid>:<id> -> record key (owner index)
const (
	recordPrefix  = "resv:item:"
	counterPrefix = "resv:count:"
	idPrefix      = "resv:id:"
	ownerPrefix   = "resv:owner:"
)

// RecordKey returns the storage key of a reservation record.
func RecordKey(bucket, id string) string {
	return recordPrefix + bucket + ":" + id
}

// RecordKeyPrefix returns the prefix under which all reservation records live.
func RecordKeyPrefix() string {
	return recordPrefix
}

// CounterKey returns the storage key of a bucket's active-quantity counter.
func CounterKey(bucket string) string {
	return counterPrefix + bucket
}

// IDKey returns the storage key of the id -> record reverse index entry.
func IDKey(id string) string {
	return idPrefix + id
}

// OwnerKey returns the storage key of an owner-index entry.
func OwnerKey(owner model.Owner, id string) string {
	return ownerPrefix + owner.String() + ":" + id
}

// OwnerKeyPrefix returns the prefix under which one owner's index entries live.
func OwnerKeyPrefix(owner model.Owner) string {
	return ownerPrefix + owner.String() + ":"
}
