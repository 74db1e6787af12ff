package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/herevemarket/orders-api/internal/domain/commission"
	"github.com/herevemarket/orders-api/internal/domain/money"
	"github.com/herevemarket/orders-api/internal/domain/product"
)

// ItemRequest is a single requested line in a new order.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for guest checkout.
type CreateRequest struct {
	HotelID    string
	MerchantID string
	// ClientID may be empty: guests can order without an account, in which
	// case CustomerName and CustomerRoom identify them.
	ClientID     string
	CustomerName string
	CustomerRoom string
	Items        []ItemRequest
}

// TransitionOptions carries flags that accompany specific transitions.
type TransitionOptions struct {
	// PickedUp marks the order as collected by the guest when entering
	// ready. It has no effect on other transitions.
	PickedUp bool
}

// Service owns all order mutations. Status transitions and commission
// writes for one order are applied under a per-order lock; operations on
// different orders run fully in parallel.
type Service struct {
	orders      Repository
	products    product.Repository
	commissions *commission.Calculator
	locks       *keyedMutex
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an order Service with the required collaborators.
func NewService(
	orders Repository,
	products product.Repository,
	commissions *commission.Calculator,
	opts ...Option,
) *Service {
	s := &Service{
		orders:      orders,
		products:    products,
		commissions: commissions,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request, snapshots unit prices from the catalog,
// assigns the surrogate id and the human-facing number, and persists the
// order in pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]LineItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ValidationError{Field: "items", Reason: "product " + item.ProductID + " not found"}
		}
		if err := money.Validate(p.Price); err != nil {
			return nil, &ValidationError{Field: "items", Reason: "product " + item.ProductID + " has no valid price"}
		}
		items[i] = LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
		}
		total = total.Add(items[i].Subtotal())
	}
	total = total.Round(2)

	now := s.now()
	o := &Order{
		ID:           uuid.New().String(),
		Number:       NewNumber(now),
		HotelID:      req.HotelID,
		MerchantID:   req.MerchantID,
		ClientID:     req.ClientID,
		CustomerName: req.CustomerName,
		CustomerRoom: req.CustomerRoom,
		Items:        items,
		TotalAmount:  total,
		Status:       StatusPending,
		CreatedAt:    now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

func validateCreate(req CreateRequest) error {
	if req.HotelID == "" {
		return &ValidationError{Field: "hotel_id", Reason: "required"}
	}
	if req.MerchantID == "" {
		return &ValidationError{Field: "merchant_id", Reason: "required"}
	}
	if req.ClientID == "" && (req.CustomerName == "" || req.CustomerRoom == "") {
		return &ValidationError{Field: "customer", Reason: "guest orders require customer name and room"}
	}
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item required"}
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items", Reason: "product id required"}
		}
		if item.Quantity < 1 {
			return &ValidationError{Field: "items", Reason: "quantity must be at least 1"}
		}
	}
	return nil
}

// Transition moves the order to target, stamping the matching timestamp
// exactly once. Entering confirmed is the trigger point for computing and
// persisting the commission split; a previously confirmed order keeps its
// shares even if the total is later corrected.
//
// Illegal targets, including re-applying the current status, fail with
// InvalidTransitionError. When a concurrent writer wins the race the loser
// observes the post-transition state and fails the same way.
func (s *Service) Transition(ctx context.Context, id string, target Status, opts TransitionOptions) (*Order, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: o.Status, To: target}
	}

	now := s.now()
	switch target {
	case StatusConfirmed:
		if !o.CommissionsSet() {
			split, err := s.commissions.Calculate(o.TotalAmount)
			if err != nil {
				return nil, errors.Wrap(err, "calculate commissions")
			}
			o.MerchantCommission = decimal.NewNullDecimal(split.Merchant)
			o.PlatformCommission = decimal.NewNullDecimal(split.Platform)
			o.HotelCommission = decimal.NewNullDecimal(split.Hotel)
		}
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case StatusReady:
		if opts.PickedUp {
			o.PickedUp = true
			if o.PickedUpAt == nil {
				o.PickedUpAt = &now
			}
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}
	o.Status = target

	if err := s.orders.Update(ctx, o); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// Another writer got there first. Report against its result.
			fresh, getErr := s.orders.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &InvalidTransitionError{From: fresh.Status, To: target}
		}
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Get returns a single order by its surrogate id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetByNumber returns a single order by its human-facing number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	return s.orders.List(ctx, f)
}

// Problematic returns orders stuck in pending longer than ProblematicAfter,
// optionally scoped to one hotel. The flag is evaluated at call time.
func (s *Service) Problematic(ctx context.Context, hotelID string) ([]Order, error) {
	pending, err := s.orders.List(ctx, Filter{
		HotelID:  hotelID,
		Statuses: []Status{StatusPending},
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	stale := make([]Order, 0, len(pending))
	for _, o := range pending {
		if o.Problematic(now) {
			stale = append(stale, o)
		}
	}
	return stale, nil
}
