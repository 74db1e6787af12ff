package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herevemarket/orders-api/internal/domain/commission"
	"github.com/herevemarket/orders-api/internal/domain/order"
	"github.com/herevemarket/orders-api/internal/domain/product"
	"github.com/herevemarket/orders-api/internal/domain/stats"
	"github.com/herevemarket/orders-api/internal/storage/memory"
)

var apiNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	catalog := memory.NewProductCatalog(
		product.Product{ID: "p1", MerchantID: "merchant-1", Name: "Snow globe", Price: decimal.RequireFromString("9.50"), Active: true},
		product.Product{ID: "p2", MerchantID: "merchant-1", Name: "Mug", Price: decimal.RequireFromString("37.00"), Active: true},
	)
	store := memory.NewOrderStore()
	clock := func() time.Time { return apiNow }

	svc := order.NewService(store, catalog, commission.NewCalculator(commission.DefaultPolicy()), order.WithClock(clock))
	agg := stats.NewAggregator(store, stats.WithClock(clock))

	return New(svc, agg).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), "body: %s", rec.Body.String())
	}
	return rec, decoded
}

func staffHeaders() map[string]string {
	return map[string]string{"X-Actor-Role": "merchant", "X-Actor-Id": "merchant-1"}
}

const createBody = `{
	"hotel_id": "hotel-1",
	"merchant_id": "merchant-1",
	"customer_name": "Ada Lovelace",
	"customer_room": "204",
	"items": [{"product_id": "p2", "quantity": 1}]
}`

func TestCreateOrderEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec, body := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "37.00", body["total_amount"])
	assert.NotEmpty(t, body["id"])
	assert.Regexp(t, `^HM-\d{8}-`, body["number"])
	assert.Nil(t, body["merchant_commission"], "commissions must be absent before confirmation")
}

func TestCreateOrderEndpoint_BadInput(t *testing.T) {
	api := newTestAPI(t)

	rec, body := doJSON(t, api, http.MethodPost, "/api/orders", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", body["kind"])

	rec, body = doJSON(t, api, http.MethodPost, "/api/orders",
		`{"hotel_id": "hotel-1", "merchant_id": "merchant-1", "customer_name": "Ada", "customer_room": "1", "items": []}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["kind"])
	assert.Equal(t, float64(400), body["code"])
}

func TestCreateOrderEndpoint_ClientFromIdentity(t *testing.T) {
	api := newTestAPI(t)

	rec, body := doJSON(t, api, http.MethodPost, "/api/orders", createBody, map[string]string{
		"X-Actor-Role": "client",
		"X-Actor-Id":   "client-7",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "client-7", body["client_id"])
}

func TestTransitionEndpoint(t *testing.T) {
	api := newTestAPI(t)

	_, created := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	id := created["id"].(string)

	rec, body := doJSON(t, api, http.MethodPut, "/api/orders/"+id, `{"status": "confirmed"}`, staffHeaders())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "27.75", body["merchant_commission"])
	assert.Equal(t, "7.40", body["platform_commission"])
	assert.Equal(t, "1.85", body["hotel_commission"])
	assert.NotEmpty(t, body["confirmed_at"])
}

func TestTransitionEndpoint_RoleGate(t *testing.T) {
	api := newTestAPI(t)

	_, created := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	id := created["id"].(string)

	// No identity at all.
	rec, body := doJSON(t, api, http.MethodPut, "/api/orders/"+id, `{"status": "confirmed"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body["kind"])

	// A client may not drive the lifecycle.
	rec, _ = doJSON(t, api, http.MethodPut, "/api/orders/"+id, `{"status": "confirmed"}`,
		map[string]string{"X-Actor-Role": "client", "X-Actor-Id": "client-7"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransitionEndpoint_Conflict(t *testing.T) {
	api := newTestAPI(t)

	_, created := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	id := created["id"].(string)

	rec, _ := doJSON(t, api, http.MethodPut, "/api/orders/"+id, `{"status": "confirmed"}`, staffHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, api, http.MethodPut, "/api/orders/"+id, `{"status": "confirmed"}`, staffHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", body["kind"])

	rec, body = doJSON(t, api, http.MethodPut, "/api/orders/"+id, `{"status": "shipped"}`, staffHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["kind"])
}

func TestGetOrderEndpoint(t *testing.T) {
	api := newTestAPI(t)

	_, created := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)

	rec, body := doJSON(t, api, http.MethodGet, "/api/orders/"+created["id"].(string), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["number"], body["number"])

	rec, body = doJSON(t, api, http.MethodGet, "/api/orders/number/"+created["number"].(string), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["id"], body["id"])

	rec, body = doJSON(t, api, http.MethodGet, "/api/orders/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["kind"])
}

func TestListEndpoints(t *testing.T) {
	api := newTestAPI(t)

	_, first := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	doJSON(t, api, http.MethodPut, "/api/orders/"+first["id"].(string), `{"status": "confirmed"}`, staffHeaders())
	doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/hotel/hotel-1", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/hotel/hotel-1?status=confirmed", nil)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/merchant/merchant-1", nil)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/merchant/merchant-9", nil)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestListByClientEndpoint_LegacyGuestFallback(t *testing.T) {
	api := newTestAPI(t)

	// One legacy guest order, one linked to the account.
	doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	doJSON(t, api, http.MethodPost, "/api/orders", createBody, map[string]string{
		"X-Actor-Role": "client",
		"X-Actor-Id":   "client-7",
	})

	req := httptest.NewRequest(http.MethodGet,
		"/api/orders/client/client-7?customer_name=Ada+Lovelace&room=204", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	// Without the guest identity only the linked order shows.
	req = httptest.NewRequest(http.MethodGet, "/api/orders/client/client-7", nil)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestStatsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	_, created := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	doJSON(t, api, http.MethodPut, "/api/orders/"+created["id"].(string), `{"status": "confirmed"}`, staffHeaders())

	rec, body := doJSON(t, api, http.MethodGet, "/api/orders/commissions/stats?period=today", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "today", body["period"])
	assert.Equal(t, float64(1), body["order_count"])
	assert.Equal(t, "37.00", body["total_revenue"])
	assert.Equal(t, "27.75", body["merchant_commission"])
	assert.Equal(t, "7.40", body["platform_commission"])
	assert.Equal(t, "1.85", body["hotel_commission"])
	assert.Equal(t, "37.00", body["average_order_value"])

	rec, body = doJSON(t, api, http.MethodGet, "/api/orders/commissions/stats?period=quarter", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["kind"])

	from := apiNow.Add(-time.Hour).Format(time.RFC3339)
	to := apiNow.Add(time.Hour).Format(time.RFC3339)
	rec, body = doJSON(t, api, http.MethodGet, "/api/orders/commissions/stats?from="+from+"&to="+to+"&hotel=hotel-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["order_count"])
}

func TestProblematicEndpoint(t *testing.T) {
	// Problematic needs an old order, so build the service directly with a
	// movable clock.
	catalog := memory.NewProductCatalog(
		product.Product{ID: "p2", MerchantID: "merchant-1", Name: "Mug", Price: decimal.RequireFromString("37.00"), Active: true},
	)
	store := memory.NewOrderStore()

	current := apiNow.Add(-25 * time.Hour)
	svc := order.NewService(store, catalog, commission.NewCalculator(commission.DefaultPolicy()),
		order.WithClock(func() time.Time { return current }))
	api := New(svc, stats.NewAggregator(store)).Routes()

	_, stale := doJSON(t, api, http.MethodPost, "/api/orders", createBody, nil)
	current = apiNow

	req := httptest.NewRequest(http.MethodGet, "/api/orders/problematic?hotel=hotel-1", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, stale["id"], list[0]["id"])
}
