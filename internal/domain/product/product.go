package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a merchant catalog item. Orders snapshot the name and unit
// price at creation time; later catalog edits never alter historical orders.
type Product struct {
	ID         string
	MerchantID string
	Name       string
	Price      decimal.Decimal
	Active     bool
}

// Repository defines the read operations the order service needs from the
// product catalog. The catalog is consulted only at order-creation time.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
