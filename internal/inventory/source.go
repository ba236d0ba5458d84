// Package inventory abstracts the authoritative stock count consumed by the
// reservation engine. The engine never writes stock; it only brokers
// temporary holds against whatever total the source reports.
package inventory

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the source cannot be reached. Callers must
// fail closed: no availability answer means no new reservations.
var ErrUnavailable = errors.New("inventory source unavailable")

// Source reports the authoritative total stock for a product or product
// variation. A product the source does not know has a total of zero.
type Source interface {
	TotalStock(ctx context.Context, productID, variationID string) (int, error)
}
