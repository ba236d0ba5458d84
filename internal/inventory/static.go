package inventory

import (
	"context"
	"sync"

	"github.com/iliyamo/stock-reservation/internal/model"
)

// Static is an in-memory Source keyed by stock bucket. It backs tests and
// local development without a database.
type Static struct {
	mu    sync.RWMutex
	stock map[string]int
	down  bool
}

// NewStatic returns a source seeded with the given bucket -> total mapping.
func NewStatic(stock map[string]int) *Static {
	cp := make(map[string]int, len(stock))
	for k, v := range stock {
		cp[k] = v
	}
	return &Static{stock: cp}
}

func (s *Static) TotalStock(_ context.Context, productID, variationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return 0, ErrUnavailable
	}
	return s.stock[model.Bucket(productID, variationID)], nil
}

// SetStock updates the total for a bucket.
func (s *Static) SetStock(bucket string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[bucket] = total
}

// SetDown toggles simulated unreachability.
func (s *Static) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}
