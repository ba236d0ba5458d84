// Package queue defines the messages exchanged over the broker plus the
// publisher and consumer for them.
package queue

// ReservationConfirmedEvent is published when a hold is confirmed by the
// payment flow. It carries enough for downstream consumers to log or feed
// analytics without querying reservation storage, whose audit records are
// TTL-bound.
type ReservationConfirmedEvent struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	VariationID   string `json:"variation_id,omitempty"`
	Quantity      int    `json:"quantity"`
	Owner         string `json:"owner"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ConfirmedAt   string `json:"confirmed_at"`
}
