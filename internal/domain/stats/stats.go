// Package stats rolls per-order commission records into time-windowed
// summaries consumed by the dashboards. Summaries are always derived from
// the current store contents; nothing is cached or persisted, so two calls
// with the same store state and clock produce identical results.
package stats

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/herevemarket/orders-api/internal/domain/order"
)

// Period selects a rolling statistics window ending now. "today" is the
// local calendar day; week and month roll backward from the current
// instant rather than aligning to calendar boundaries.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod converts a wire string into a Period.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodToday, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", errors.Errorf("unknown statistics period %q", s)
	}
}

// Window resolves the period to a half-open [from, to) range ending at now.
func (p Period) Window(now time.Time) (from, to time.Time) {
	to = now
	switch p {
	case PeriodToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		from = now.AddDate(0, 0, -7)
	case PeriodMonth:
		from = now.AddDate(0, -1, 0)
	}
	return from, to
}

// Scope optionally restricts a summary to one hotel and/or merchant.
type Scope struct {
	HotelID    string
	MerchantID string
}

// Summary is the computed statistics snapshot for one window. Orders whose
// commissions have not been set yet contribute zero to the commission sums
// but still count toward OrderCount and TotalRevenue.
type Summary struct {
	Period string
	From   time.Time
	To     time.Time

	OrderCount         int
	TotalRevenue       decimal.Decimal
	MerchantCommission decimal.Decimal
	PlatformCommission decimal.Decimal
	HotelCommission    decimal.Decimal
	// AverageOrderValue is TotalRevenue / OrderCount rounded to 2dp, and
	// zero for an empty window.
	AverageOrderValue decimal.Decimal
}

// Aggregator computes summaries by scanning the order store.
type Aggregator struct {
	orders order.Repository
	now    func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the wall clock, used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator reading from the given store.
func NewAggregator(orders order.Repository, opts ...Option) *Aggregator {
	a := &Aggregator{
		orders: orders,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ByPeriod computes the summary for a named rolling window.
func (a *Aggregator) ByPeriod(ctx context.Context, p Period, scope Scope) (Summary, error) {
	from, to := p.Window(a.now())
	s, err := a.ByRange(ctx, from, to, scope)
	if err != nil {
		return Summary{}, err
	}
	s.Period = string(p)
	return s, nil
}

// ByRange computes the summary for an explicit [from, to) window. An empty
// window yields a zeroed summary, never an error.
func (a *Aggregator) ByRange(ctx context.Context, from, to time.Time, scope Scope) (Summary, error) {
	selected, err := a.orders.List(ctx, order.Filter{
		HotelID:     scope.HotelID,
		MerchantID:  scope.MerchantID,
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		return Summary{}, errors.Wrap(err, "list orders")
	}

	s := Summary{
		From:               from,
		To:                 to,
		OrderCount:         len(selected),
		TotalRevenue:       decimal.Zero,
		MerchantCommission: decimal.Zero,
		PlatformCommission: decimal.Zero,
		HotelCommission:    decimal.Zero,
		AverageOrderValue:  decimal.Zero,
	}
	for _, o := range selected {
		s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
		if o.MerchantCommission.Valid {
			s.MerchantCommission = s.MerchantCommission.Add(o.MerchantCommission.Decimal)
		}
		if o.PlatformCommission.Valid {
			s.PlatformCommission = s.PlatformCommission.Add(o.PlatformCommission.Decimal)
		}
		if o.HotelCommission.Valid {
			s.HotelCommission = s.HotelCommission.Add(o.HotelCommission.Decimal)
		}
	}
	if s.OrderCount > 0 {
		s.AverageOrderValue = s.TotalRevenue.DivRound(decimal.NewFromInt(int64(s.OrderCount)), 2)
	}
	return s, nil
}
