package repository

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/stock-reservation/internal/clock"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process ReservationStore used by tests and local
// development. TTLs are honoured against the injected clock: a read of a
// lapsed entry behaves exactly like a read of a missing key, which lets
// tests advance time instead of sleeping.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

// NewMemoryStore returns an empty store reading time from clk.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   clk,
	}
}

// live returns the entry under key if present and not lapsed. Lapsed entries
// are removed on access. Caller must hold the mutex.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.clock.Now().Add(ttl)
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	val := make([]byte, len(e.value))
	copy(val, e.value)
	return val, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	val := make([]byte, len(value))
	copy(val, value)
	s.entries[key] = memoryEntry{value: val, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		// Lapsed entries count as already gone, matching a TTL backend.
		if _, ok := s.live(k); ok {
			n++
		}
		delete(s.entries, k)
	}
	return n, nil
}

func (s *MemoryStore) ListPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := s.live(k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) GetInt(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter(key), nil
}

func (s *MemoryStore) IncrByCapped(_ context.Context, key string, delta, limit int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.counter(key)
	if cur+delta > limit {
		return cur, false, nil
	}
	cur += delta
	s.entries[key] = memoryEntry{
		value:     []byte(strconv.FormatInt(cur, 10)),
		expiresAt: s.expiry(ttl),
	}
	return cur, true, nil
}

func (s *MemoryStore) DecrByFloor(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.counter(key) - delta
	if cur <= 0 {
		delete(s.entries, key)
		return 0, nil
	}
	e := s.entries[key]
	e.value = []byte(strconv.FormatInt(cur, 10))
	s.entries[key] = e
	return cur, nil
}

// counter reads the live counter under key; absent or lapsed reads as 0.
// Caller must hold the mutex.
func (s *MemoryStore) counter(key string) int64 {
	e, ok := s.live(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
