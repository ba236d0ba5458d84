package model

import "time"

// Status is the lifecycle state of a reservation. Transitions are one-way:
// an active hold becomes confirmed, released or expired, and none of the
// three terminal states ever returns to active.
type Status string

const (
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusReleased  Status = "released"
	StatusExpired   Status = "expired"
)

// Reservation is a temporary hold on a quantity of a product (or product
// variation) for one owner during checkout. While active it counts against
// the available stock reported for its bucket; once confirmed, released or
// expired it does not.
//
// Fields:
//
//	ID            – opaque, collision-resistant identifier (UUIDv4).
//	ProductID     – product whose stock is held.
//	VariationID   – optional variation; empty for products without variations.
//	Quantity      – units held; always > 0.
//	Owner         – who holds the reservation (user or anonymous session).
//	Status        – lifecycle state, see Status.
//	ReservedAt    – when the hold was created.
//	ExpiresAt     – when the hold lapses; always after ReservedAt.
//	ConfirmedAt   – set when checkout completed and the hold was confirmed.
//	CorrelationID – optional link to the originating checkout attempt.
type Reservation struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	VariationID   string     `json:"variation_id,omitempty"`
	Quantity      int        `json:"quantity"`
	Owner         Owner      `json:"owner"`
	Status        Status     `json:"status"`
	ReservedAt    time.Time  `json:"reserved_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// Bucket returns the stock bucket this reservation holds against.
func (r Reservation) Bucket() string {
	return Bucket(r.ProductID, r.VariationID)
}

// ActiveAt reports whether the reservation is an active, non-expired hold at
// the given instant. Expiry is decided by comparing ExpiresAt to the caller's
// clock, never by whether the storage backend has evicted the record yet.
func (r Reservation) ActiveAt(now time.Time) bool {
	return r.Status == StatusActive && now.Before(r.ExpiresAt)
}

// Bucket builds the stock-bucket key for a product and optional variation.
// The separator is "/" so bucket names compose cleanly with the ":"-delimited
// storage key namespace.
func Bucket(productID, variationID string) string {
	if variationID == "" {
		return productID
	}
	return productID + "/" + variationID
}

// StockAvailability is the result of an availability query for one bucket.
// AvailableStock is clamped at zero; ReservedStock is reported as observed
// even if a shrinking total briefly makes it exceed TotalStock.
type StockAvailability struct {
	AvailableStock int `json:"available_stock"`
	TotalStock     int `json:"total_stock"`
	ReservedStock  int `json:"reserved_stock"`
}
