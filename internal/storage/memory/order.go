// Package memory provides mutex-guarded in-memory implementations of the
// domain repositories. Used by unit tests and as a zero-dependency dev mode
// when no database URL is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/herevemarket/orders-api/internal/domain/order"
)

var _ order.Repository = (*OrderStore)(nil)

// OrderStore keeps orders in memory. Reads hand out deep copies so callers
// always see a consistent snapshot of one order; writes are version-checked
// like the PostgreSQL store.
type OrderStore struct {
	mu      sync.RWMutex
	orders  map[string]*order.Order
	numbers map[string]string // number -> id
}

// NewOrderStore returns an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:  make(map[string]*order.Order),
		numbers: make(map[string]string),
	}
}

// Create stores a new order and assigns version 1.
func (s *OrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.numbers[o.Number]; exists {
		return order.ErrDuplicateNumber
	}
	o.Version = 1
	s.orders[o.ID] = o.Clone()
	s.numbers[o.Number] = o.ID
	return nil
}

// GetByID returns a snapshot of the order with the given surrogate id.
func (s *OrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

// GetByNumber returns a snapshot of the order with the given number.
func (s *OrderStore) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.numbers[number]
	if !ok {
		return nil, order.ErrNotFound
	}
	return s.orders[id].Clone(), nil
}

// Update replaces the stored order if the caller's version matches,
// incrementing the version. A stale version fails with ErrVersionConflict.
func (s *OrderStore) Update(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if stored.Version != o.Version {
		return order.ErrVersionConflict
	}
	o.Version++
	s.orders[o.ID] = o.Clone()
	return nil
}

// List returns snapshots of all orders matching the filter, newest first.
func (s *OrderStore) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]order.Order, 0)
	for _, o := range s.orders {
		if f.Matches(o) {
			matched = append(matched, *o.Clone())
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}
