package service

import (
	"errors"
	"fmt"
)

// Business-rule outcomes are returned as typed errors so the checkout UI can
// tell "reduce your quantity" apart from "you hold too much already" and
// "try again later". None of them indicates an engine fault.
var (
	// ErrInvalidQuantity is returned when the requested quantity is not a
	// positive integer.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidProduct is returned when the product id is missing.
	ErrInvalidProduct = errors.New("product id required")

	// ErrInvalidOwner is returned when no holder identity was supplied.
	ErrInvalidOwner = errors.New("owner identity required")

	// ErrTooManyReservations is returned when the owner already holds the
	// maximum number of concurrent active reservations.
	ErrTooManyReservations = errors.New("too many active reservations")

	// ErrStockUnavailable is returned when the inventory source cannot be
	// reached. The engine fails closed: unknown availability refuses new
	// reservations rather than guessing.
	ErrStockUnavailable = errors.New("stock level unavailable")
)

// InsufficientStockError reports that the requested quantity exceeds what is
// currently available, carrying the actual availability so the caller can
// offer a smaller quantity.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}
