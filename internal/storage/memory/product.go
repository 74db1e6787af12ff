package memory

import (
	"context"
	"sync"

	"github.com/herevemarket/orders-api/internal/domain/product"
)

var _ product.Repository = (*ProductCatalog)(nil)

// ProductCatalog is an in-memory product repository for tests and dev mode.
type ProductCatalog struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

// NewProductCatalog returns a catalog preloaded with the given products.
func NewProductCatalog(products ...product.Product) *ProductCatalog {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &ProductCatalog{products: byID}
}

// Add inserts or replaces a product.
func (c *ProductCatalog) Add(p product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// GetByIDs returns the active products among ids. Missing ids are simply
// absent from the result; the caller decides whether that is an error.
func (c *ProductCatalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := c.products[id]; ok && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}
