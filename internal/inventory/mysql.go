package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MySQLSource reads total stock from the commerce database's product_stock
// table. Variation-less products are stored with an empty variation_id.
type MySQLSource struct {
	db *sql.DB
}

// NewMySQLSource returns a source bound to the provided database.
func NewMySQLSource(db *sql.DB) *MySQLSource {
	return &MySQLSource{db: db}
}

func (s *MySQLSource) TotalStock(ctx context.Context, productID, variationID string) (int, error) {
	const q = `SELECT total_stock FROM product_stock WHERE product_id = ? AND variation_id = ?`
	var total int
	err := s.db.QueryRowContext(ctx, q, productID, variationID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown product: nothing to reserve, but the source answered.
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return total, nil
}
