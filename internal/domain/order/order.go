// Package order implements the marketplace order lifecycle: creation,
// status transitions with commission allocation, and the query filters the
// dashboards read through.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProblematicAfter is how long an order may sit in pending before the
// dashboards flag it as stale. The flag is derived on read, never stored.
const ProblematicAfter = 24 * time.Hour

// LineItem is a single product entry within an order. Name and UnitPrice
// are snapshots taken at order time.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is the central persisted entity. The surrogate ID and the
// human-facing Number are both assigned at creation and immutable. Orders
// are never physically deleted; cancelled orders remain for auditing.
type Order struct {
	ID     string
	Number string

	HotelID    string
	MerchantID string
	// ClientID is empty for guest orders placed without an account. Such
	// orders are matched by (CustomerName, CustomerRoom) instead.
	ClientID     string
	CustomerName string
	CustomerRoom string

	Items []LineItem
	// TotalAmount is stored independently of the items and is the
	// authoritative base for commission math.
	TotalAmount decimal.Decimal

	// Commission fields stay null until the order enters confirmed, then are
	// set exactly once and satisfy merchant + platform + hotel == TotalAmount.
	MerchantCommission decimal.NullDecimal
	PlatformCommission decimal.NullDecimal
	HotelCommission    decimal.NullDecimal

	Status   Status
	PickedUp bool

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	PickedUpAt  *time.Time

	// Version tags the last write so concurrent updaters lose instead of
	// silently overwriting each other.
	Version int64
}

// Problematic reports whether the order is stuck in pending beyond the
// staleness threshold at the given instant.
func (o *Order) Problematic(now time.Time) bool {
	return o.Status == StatusPending && now.Sub(o.CreatedAt) > ProblematicAfter
}

// CommissionsSet reports whether the three-way split has been persisted.
func (o *Order) CommissionsSet() bool {
	return o.MerchantCommission.Valid && o.PlatformCommission.Valid && o.HotelCommission.Valid
}

// Clone returns a deep copy, so stores can hand out snapshots without
// exposing internal state.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]LineItem, len(o.Items))
	copy(c.Items, o.Items)
	c.ConfirmedAt = cloneTime(o.ConfirmedAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	c.PickedUpAt = cloneTime(o.PickedUpAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Filter selects orders for the query layer and the statistics aggregator.
// Zero fields are ignored. All matching is read-only.
type Filter struct {
	HotelID    string
	MerchantID string

	// ClientID matches orders linked to a client account. CustomerName and
	// CustomerRoom additionally match legacy guest orders that predate
	// client linking; when set together with ClientID the two match modes
	// are OR-ed.
	ClientID     string
	CustomerName string
	CustomerRoom string

	Statuses []Status
	// ActiveOnly restricts results to non-terminal statuses.
	ActiveOnly bool

	// CreatedFrom/CreatedTo bound CreatedAt as a half-open [from, to) range.
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// Matches reports whether o satisfies every set field of f. Store
// implementations without native query support evaluate filters with this.
func (f Filter) Matches(o *Order) bool {
	if f.HotelID != "" && o.HotelID != f.HotelID {
		return false
	}
	if f.MerchantID != "" && o.MerchantID != f.MerchantID {
		return false
	}
	if !f.matchesClient(o) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if f.ActiveOnly && !o.Status.Active() {
		return false
	}
	if !f.CreatedFrom.IsZero() && o.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && !o.CreatedAt.Before(f.CreatedTo) {
		return false
	}
	return true
}

func (f Filter) matchesClient(o *Order) bool {
	byID := f.ClientID != ""
	byGuest := f.CustomerName != "" && f.CustomerRoom != ""
	if !byID && !byGuest {
		return true
	}
	if byID && o.ClientID == f.ClientID {
		return true
	}
	if byGuest && o.ClientID == "" &&
		o.CustomerName == f.CustomerName && o.CustomerRoom == f.CustomerRoom {
		return true
	}
	return false
}

func containsStatus(haystack []Status, s Status) bool {
	for _, st := range haystack {
		if st == s {
			return true
		}
	}
	return false
}

// Repository defines persistence operations for orders. Update must be
// conditional on Order.Version and fail with ErrVersionConflict when the
// stored row has moved on, so a lost update is always detected.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, f Filter) ([]Order, error)
}
