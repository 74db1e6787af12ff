package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/herevemarket/orders-api/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, number, hotel_id, merchant_id, client_id,
	customer_name, customer_room, items, total_amount,
	merchant_commission, platform_commission, hotel_commission,
	status, picked_up, created_at, confirmed_at, delivered_at, picked_up_at,
	version`

// Create persists a new order at version 1. The line items are serialized
// to JSON for storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	o.Version = 1
	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		o.ID, o.Number, o.HotelID, o.MerchantID, o.ClientID,
		o.CustomerName, o.CustomerRoom, itemsJSON, o.TotalAmount,
		o.MerchantCommission, o.PlatformCommission, o.HotelCommission,
		o.Status, o.PickedUp, o.CreatedAt, o.ConfirmedAt, o.DeliveredAt, o.PickedUpAt,
		o.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "number") {
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its surrogate id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// GetByNumber returns a single order by its human-facing number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order by number %q: %w", number, err)
	}
	return o, nil
}

// Update writes the order conditionally on its version and bumps it. When
// the row has moved on, it fails with ErrVersionConflict; a missing row
// fails with ErrNotFound.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET
			items = $2,
			total_amount = $3,
			merchant_commission = $4,
			platform_commission = $5,
			hotel_commission = $6,
			status = $7,
			picked_up = $8,
			confirmed_at = $9,
			delivered_at = $10,
			picked_up_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $12`,
		o.ID, itemsJSON, o.TotalAmount,
		o.MerchantCommission, o.PlatformCommission, o.HotelCommission,
		o.Status, o.PickedUp,
		o.ConfirmedAt, o.DeliveredAt, o.PickedUpAt,
		o.Version,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a stale version from a row that never existed.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", o.ID, err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrVersionConflict
	}
	o.Version++
	return nil
}

// List returns orders matching the filter, newest first. Filter fields
// translate into WHERE clauses; the client filter OR-s account matching
// with the legacy guest identity.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.HotelID != "" {
		conds = append(conds, "hotel_id = "+arg(f.HotelID))
	}
	if f.MerchantID != "" {
		conds = append(conds, "merchant_id = "+arg(f.MerchantID))
	}
	byID := f.ClientID != ""
	byGuest := f.CustomerName != "" && f.CustomerRoom != ""
	switch {
	case byID && byGuest:
		conds = append(conds, "(client_id = "+arg(f.ClientID)+
			" OR (client_id = '' AND customer_name = "+arg(f.CustomerName)+
			" AND customer_room = "+arg(f.CustomerRoom)+"))")
	case byID:
		conds = append(conds, "client_id = "+arg(f.ClientID))
	case byGuest:
		conds = append(conds, "client_id = '' AND customer_name = "+arg(f.CustomerName)+
			" AND customer_room = "+arg(f.CustomerRoom))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conds = append(conds, "status = ANY("+arg(statuses)+")")
	}
	if f.ActiveOnly {
		conds = append(conds, "status NOT IN ('delivered', 'cancelled')")
	}
	if !f.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= "+arg(f.CreatedFrom))
	}
	if !f.CreatedTo.IsZero() {
		conds = append(conds, "created_at < "+arg(f.CreatedTo))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.HotelID, &o.MerchantID, &o.ClientID,
		&o.CustomerName, &o.CustomerRoom, &itemsJSON, &o.TotalAmount,
		&o.MerchantCommission, &o.PlatformCommission, &o.HotelCommission,
		&o.Status, &o.PickedUp, &o.CreatedAt, &o.ConfirmedAt, &o.DeliveredAt, &o.PickedUpAt,
		&o.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return &o, nil
}
