package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herevemarket/orders-api/internal/domain/commission"
	"github.com/herevemarket/orders-api/internal/domain/order"
	"github.com/herevemarket/orders-api/internal/domain/product"
	"github.com/herevemarket/orders-api/internal/storage/memory"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// testClock is a settable clock shared between the service and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestProduct(id, merchantID, name string, price decimal.Decimal) product.Product {
	return product.Product{
		ID:         id,
		MerchantID: merchantID,
		Name:       name,
		Price:      price,
		Active:     true,
	}
}

func newTestService(t *testing.T, products ...product.Product) (*order.Service, *memory.OrderStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewOrderStore()
	svc := order.NewService(
		store,
		memory.NewProductCatalog(products...),
		commission.NewCalculator(commission.DefaultPolicy()),
		order.WithClock(clock.Now),
	)
	return svc, store, clock
}

func validCreateRequest() order.CreateRequest {
	return order.CreateRequest{
		HotelID:      "hotel-1",
		MerchantID:   "merchant-1",
		CustomerName: "Ada Lovelace",
		CustomerRoom: "204",
		Items:        []order.ItemRequest{{ProductID: "p1", Quantity: 2}},
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*order.CreateRequest)
	}{
		{"missing hotel", func(r *order.CreateRequest) { r.HotelID = "" }},
		{"missing merchant", func(r *order.CreateRequest) { r.MerchantID = "" }},
		{"guest without name", func(r *order.CreateRequest) { r.CustomerName = "" }},
		{"guest without room", func(r *order.CreateRequest) { r.CustomerRoom = "" }},
		{"empty items", func(r *order.CreateRequest) { r.Items = nil }},
		{"zero quantity", func(r *order.CreateRequest) { r.Items[0].Quantity = 0 }},
		{"negative quantity", func(r *order.CreateRequest) { r.Items[0].Quantity = -3 }},
		{"missing product id", func(r *order.CreateRequest) { r.Items[0].ProductID = "" }},
		{"unknown product", func(r *order.CreateRequest) { r.Items[0].ProductID = "ghost" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t, newTestProduct("p1", "merchant-1", "Snow globe", d("9.50")))

			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			var vErr *order.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestCreate(t *testing.T) {
	svc, _, clock := newTestService(t,
		newTestProduct("p1", "merchant-1", "Snow globe", d("9.50")),
		newTestProduct("p2", "merchant-1", "Postcard set", d("4.25")),
	)

	o, err := svc.Create(context.Background(), order.CreateRequest{
		HotelID:      "hotel-1",
		MerchantID:   "merchant-1",
		ClientID:     "client-7",
		CustomerName: "Ada Lovelace",
		CustomerRoom: "204",
		Items: []order.ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Regexp(t, `^HM-\d{8}-`, o.Number)
	assert.NotEqual(t, o.ID, o.Number)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.True(t, d("23.25").Equal(o.TotalAmount), "total: got %s", o.TotalAmount)
	assert.Equal(t, clock.Now(), o.CreatedAt)

	// Commissions stay null until confirmation.
	assert.False(t, o.CommissionsSet())
	assert.Nil(t, o.ConfirmedAt)
	assert.Nil(t, o.DeliveredAt)

	// Line items snapshot name and unit price.
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Snow globe", o.Items[0].Name)
	assert.True(t, d("9.50").Equal(o.Items[0].UnitPrice))
}

func TestCreate_PriceSnapshotImmutable(t *testing.T) {
	catalog := memory.NewProductCatalog(newTestProduct("p1", "merchant-1", "Snow globe", d("10.00")))
	store := memory.NewOrderStore()
	svc := order.NewService(store, catalog, commission.NewCalculator(commission.DefaultPolicy()))

	o, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// A later catalog price change must not touch the historical order.
	catalog.Add(newTestProduct("p1", "merchant-1", "Snow globe", d("99.00")))

	got, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, d("10.00").Equal(got.Items[0].UnitPrice))
	assert.True(t, d("20.00").Equal(got.TotalAmount))
}

func TestTransition_ConfirmAllocatesCommissions(t *testing.T) {
	svc, _, clock := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("37.00")))

	o, err := svc.Create(context.Background(), order.CreateRequest{
		HotelID:      "hotel-1",
		MerchantID:   "merchant-1",
		CustomerName: "Grace Hopper",
		CustomerRoom: "310",
		Items:        []order.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	confirmedAt := time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC)
	clock.Set(confirmedAt)

	got, err := svc.Transition(context.Background(), o.ID, order.StatusConfirmed, order.TransitionOptions{})
	require.NoError(t, err)

	assert.Equal(t, order.StatusConfirmed, got.Status)
	require.True(t, got.CommissionsSet())
	assert.True(t, d("27.75").Equal(got.MerchantCommission.Decimal), "merchant: %s", got.MerchantCommission.Decimal)
	assert.True(t, d("7.40").Equal(got.PlatformCommission.Decimal), "platform: %s", got.PlatformCommission.Decimal)
	assert.True(t, d("1.85").Equal(got.HotelCommission.Decimal), "hotel: %s", got.HotelCommission.Decimal)
	require.NotNil(t, got.ConfirmedAt)
	assert.Equal(t, confirmedAt, *got.ConfirmedAt)
}

func TestTransition_CommissionDriftAbsorbedByHotel(t *testing.T) {
	svc, _, _ := newTestService(t, newTestProduct("p1", "merchant-1", "Keychain", d("10.01")))

	single, err := svc.Create(context.Background(), order.CreateRequest{
		HotelID:      "hotel-1",
		MerchantID:   "merchant-1",
		CustomerName: "Ada Lovelace",
		CustomerRoom: "204",
		Items:        []order.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	got, err := svc.Transition(context.Background(), single.ID, order.StatusConfirmed, order.TransitionOptions{})
	require.NoError(t, err)

	assert.True(t, d("7.51").Equal(got.MerchantCommission.Decimal))
	assert.True(t, d("2.00").Equal(got.PlatformCommission.Decimal))
	assert.True(t, d("0.50").Equal(got.HotelCommission.Decimal))

	sum := got.MerchantCommission.Decimal.
		Add(got.PlatformCommission.Decimal).
		Add(got.HotelCommission.Decimal)
	assert.True(t, got.TotalAmount.Equal(sum), "split must reconstruct total exactly")
}

func TestTransition_FullLifecycle(t *testing.T) {
	svc, _, clock := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("12.00")))

	o, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	steps := []order.Status{
		order.StatusConfirmed,
		order.StatusPreparing,
		order.StatusReady,
		order.StatusDelivered,
	}
	for i, target := range steps {
		clock.Set(clock.Now().Add(10 * time.Minute))
		got, err := svc.Transition(context.Background(), o.ID, target, order.TransitionOptions{PickedUp: target == order.StatusReady})
		require.NoError(t, err, "step %d to %s", i, target)
		assert.Equal(t, target, got.Status)
	}

	final, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, final.ConfirmedAt)
	require.NotNil(t, final.PickedUpAt)
	require.NotNil(t, final.DeliveredAt)
	assert.True(t, final.PickedUp)
	assert.True(t, final.ConfirmedAt.Before(*final.DeliveredAt))

	// Terminal orders admit nothing, including going back to pending.
	_, err = svc.Transition(context.Background(), o.ID, order.StatusPending, order.TransitionOptions{})
	var itErr *order.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, order.StatusDelivered, itErr.From)
}

func TestTransition_DuplicateRejected(t *testing.T) {
	svc, _, _ := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("12.00")))

	o, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), o.ID, order.StatusConfirmed, order.TransitionOptions{})
	require.NoError(t, err)

	// Re-applying the same target surfaces the duplicate action.
	_, err = svc.Transition(context.Background(), o.ID, order.StatusConfirmed, order.TransitionOptions{})
	var itErr *order.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, order.StatusConfirmed, itErr.From)
	assert.Equal(t, order.StatusConfirmed, itErr.To)
}

func TestTransition_CancellationRules(t *testing.T) {
	cancellableFrom := map[order.Status]bool{
		order.StatusPending:   true,
		order.StatusConfirmed: true,
		order.StatusPreparing: true,
		order.StatusReady:     false,
		order.StatusDelivered: false,
	}

	advance := map[order.Status][]order.Status{
		order.StatusPending:   {},
		order.StatusConfirmed: {order.StatusConfirmed},
		order.StatusPreparing: {order.StatusConfirmed, order.StatusPreparing},
		order.StatusReady:     {order.StatusConfirmed, order.StatusPreparing, order.StatusReady},
		order.StatusDelivered: {order.StatusConfirmed, order.StatusPreparing, order.StatusReady, order.StatusDelivered},
	}

	for from, want := range cancellableFrom {
		t.Run(string(from), func(t *testing.T) {
			svc, _, _ := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("12.00")))

			o, err := svc.Create(context.Background(), validCreateRequest())
			require.NoError(t, err)
			for _, step := range advance[from] {
				_, err = svc.Transition(context.Background(), o.ID, step, order.TransitionOptions{})
				require.NoError(t, err)
			}

			_, err = svc.Transition(context.Background(), o.ID, order.StatusCancelled, order.TransitionOptions{})
			if want {
				require.NoError(t, err)
			} else {
				var itErr *order.InvalidTransitionError
				require.ErrorAs(t, err, &itErr)
			}
		})
	}
}

func TestTransition_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Transition(context.Background(), "no-such-order", order.StatusConfirmed, order.TransitionOptions{})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestTransition_CommissionsNotRecomputed(t *testing.T) {
	svc, store, _ := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("37.00")))

	o, err := svc.Create(context.Background(), order.CreateRequest{
		HotelID:      "hotel-1",
		MerchantID:   "merchant-1",
		CustomerName: "Ada Lovelace",
		CustomerRoom: "204",
		Items:        []order.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	confirmed, err := svc.Transition(context.Background(), o.ID, order.StatusConfirmed, order.TransitionOptions{})
	require.NoError(t, err)

	// Simulate a later total correction directly in the store; subsequent
	// transitions must keep the original shares.
	corrected := confirmed.Clone()
	corrected.TotalAmount = d("99.99")
	require.NoError(t, store.Update(context.Background(), corrected))

	got, err := svc.Transition(context.Background(), o.ID, order.StatusPreparing, order.TransitionOptions{})
	require.NoError(t, err)
	assert.True(t, d("27.75").Equal(got.MerchantCommission.Decimal))
	assert.True(t, d("7.40").Equal(got.PlatformCommission.Decimal))
	assert.True(t, d("1.85").Equal(got.HotelCommission.Decimal))
}

// TestTransition_ConcurrentSameOrder races two confirmations of one order:
// exactly one may win, and the loser must see InvalidTransition rather than
// silently double-applying.
func TestTransition_ConcurrentSameOrder(t *testing.T) {
	for range 20 {
		svc, _, _ := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("12.00")))

		o, err := svc.Create(context.Background(), validCreateRequest())
		require.NoError(t, err)

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Transition(context.Background(), o.ID, order.StatusConfirmed, order.TransitionOptions{})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var successes, conflicts int
		for err := range errs {
			if err == nil {
				successes++
				continue
			}
			var itErr *order.InvalidTransitionError
			require.ErrorAs(t, err, &itErr)
			conflicts++
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, conflicts)
	}
}

func TestProblematic(t *testing.T) {
	svc, _, clock := newTestService(t, newTestProduct("p1", "merchant-1", "Mug", d("12.00")))

	base := clock.Now()

	// Stale order created 25 hours ago.
	clock.Set(base.Add(-25 * time.Hour))
	stale, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// Fresh order created an hour ago.
	clock.Set(base.Add(-1 * time.Hour))
	fresh, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// Old but already confirmed: not problematic.
	clock.Set(base.Add(-30 * time.Hour))
	confirmed, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), confirmed.ID, order.StatusConfirmed, order.TransitionOptions{})
	require.NoError(t, err)

	clock.Set(base)
	got, err := svc.Problematic(context.Background(), "hotel-1")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
	assert.NotEqual(t, fresh.ID, got[0].ID)
}
