package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/herevemarket/orders-api/internal/domain/order"
	"github.com/herevemarket/orders-api/internal/domain/stats"
)

// Money amounts cross the wire as fixed two-decimal strings, never floats.

type createOrderRequest struct {
	HotelID      string             `json:"hotel_id"`
	MerchantID   string             `json:"merchant_id"`
	ClientID     string             `json:"client_id,omitempty"`
	CustomerName string             `json:"customer_name"`
	CustomerRoom string             `json:"customer_room"`
	Items        []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type transitionRequest struct {
	Status   string `json:"status"`
	PickedUp bool   `json:"picked_up,omitempty"`
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	HotelID      string `json:"hotel_id"`
	MerchantID   string `json:"merchant_id"`
	ClientID     string `json:"client_id,omitempty"`
	CustomerName string `json:"customer_name"`
	CustomerRoom string `json:"customer_room"`

	Items       []orderItemResponse `json:"items"`
	TotalAmount string              `json:"total_amount"`

	MerchantCommission *string `json:"merchant_commission,omitempty"`
	PlatformCommission *string `json:"platform_commission,omitempty"`
	HotelCommission    *string `json:"hotel_commission,omitempty"`

	Status   string `json:"status"`
	PickedUp bool   `json:"picked_up"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
}

type statsResponse struct {
	Period string    `json:"period,omitempty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`

	OrderCount         int    `json:"order_count"`
	TotalRevenue       string `json:"total_revenue"`
	MerchantCommission string `json:"merchant_commission"`
	PlatformCommission string `json:"platform_commission"`
	HotelCommission    string `json:"hotel_commission"`
	AverageOrderValue  string `json:"average_order_value"`
}

func mapOrder(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, li := range o.Items {
		items[i] = orderItemResponse{
			ProductID: li.ProductID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice.StringFixed(2),
			Quantity:  li.Quantity,
		}
	}
	return orderResponse{
		ID:                 o.ID,
		Number:             o.Number,
		HotelID:            o.HotelID,
		MerchantID:         o.MerchantID,
		ClientID:           o.ClientID,
		CustomerName:       o.CustomerName,
		CustomerRoom:       o.CustomerRoom,
		Items:              items,
		TotalAmount:        o.TotalAmount.StringFixed(2),
		MerchantCommission: nullMoney(o.MerchantCommission),
		PlatformCommission: nullMoney(o.PlatformCommission),
		HotelCommission:    nullMoney(o.HotelCommission),
		Status:             string(o.Status),
		PickedUp:           o.PickedUp,
		CreatedAt:          o.CreatedAt,
		ConfirmedAt:        o.ConfirmedAt,
		DeliveredAt:        o.DeliveredAt,
		PickedUpAt:         o.PickedUpAt,
	}
}

func mapOrders(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrder(&orders[i])
	}
	return out
}

func mapSummary(s stats.Summary) statsResponse {
	return statsResponse{
		Period:             s.Period,
		From:               s.From,
		To:                 s.To,
		OrderCount:         s.OrderCount,
		TotalRevenue:       s.TotalRevenue.StringFixed(2),
		MerchantCommission: s.MerchantCommission.StringFixed(2),
		PlatformCommission: s.PlatformCommission.StringFixed(2),
		HotelCommission:    s.HotelCommission.StringFixed(2),
		AverageOrderValue:  s.AverageOrderValue.StringFixed(2),
	}
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}
