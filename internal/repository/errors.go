// Package repository defines the reservation store abstraction and its
// implementations. Sentinel errors declared here let higher layers such as
// the reservation service distinguish "record is simply gone" (a normal
// outcome for expired or already-released holds) from "the backing store
// cannot be reached" (the one transient-infrastructure failure, on which the
// engine fails closed and never creates a reservation speculatively).
package repository

import "errors"

// ErrKeyNotFound is returned by Get when no value exists under the key, or
// when the value's TTL has elapsed. Callers treat this as a normal state,
// not a failure.
var ErrKeyNotFound = errors.New("key not found")

// ErrStoreUnavailable is returned when the backing store cannot be reached.
// The service layer maps this to a "temporarily unavailable, retry" outcome
// and never falls back to guessing.
var ErrStoreUnavailable = errors.New("reservation store unavailable")
