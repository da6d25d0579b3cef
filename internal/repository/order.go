package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/checkout"
	"github.com/taziri/grocery-kart/internal/domain/unit"
)

const (
	orderColumns = `id, store_id, customer_name, customer_phone, customer_address,
		items, delivery_option, payment_method, delivery_charge, total, status, offline, created_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByStoreSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE store_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	// Revenue reads the stored total column; item arrays are never
	// re-summed for reporting.
	salesSummarySQL = `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0)
		FROM orders WHERE store_id = $1`
)

// orderLineJSON is the JSONB shape of one frozen order line. Quantities and
// prices are stored as strings to keep decimals exact.
type orderLineJSON struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Quantity  string `json:"quantity"`
	Display   string `json:"display"`
	Price     string `json:"price"`
}

var _ checkout.Repository = (*OrderRepository)(nil)

// OrderRepository implements checkout.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The frozen lines are serialized to JSON for
// the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *checkout.Order) error {
	items, err := marshalLines(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.StoreID, o.Customer.Name, o.Customer.Phone, o.Customer.Address,
		items, string(o.DeliveryOption), string(o.PaymentMethod),
		o.DeliveryCharge, o.Total, string(o.Status), o.Offline, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns the full order snapshot.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*checkout.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus sets the order's lifecycle status. Transition validation is
// the checkout service's job; this is a plain column update.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, st checkout.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(st))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return checkout.ErrOrderNotFound
	}
	return nil
}

// ListByStore returns the store's orders, newest first.
func (r *OrderRepository) ListByStore(ctx context.Context, storeID string) ([]checkout.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByStoreSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for store %q: %w", storeID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SalesSummary aggregates order counts and revenue from stored totals.
func (r *OrderRepository) SalesSummary(ctx context.Context, storeID string) (*checkout.SalesSummary, error) {
	var s checkout.SalesSummary
	err := r.pool.QueryRow(ctx, salesSummarySQL, storeID).
		Scan(&s.Orders, &s.Delivered, &s.Cancelled, &s.Revenue)
	if err != nil {
		return nil, fmt.Errorf("sales summary for store %q: %w", storeID, err)
	}
	return &s, nil
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var (
		o                     checkout.Order
		items                 []byte
		option, method, state string
	)
	err := row.Scan(
		&o.ID, &o.StoreID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address,
		&items, &option, &method, &o.DeliveryCharge, &o.Total, &state, &o.Offline, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	o.DeliveryOption = checkout.DeliveryOption(option)
	o.PaymentMethod = checkout.PaymentMethod(method)
	o.Status = checkout.Status(state)

	o.Lines, err = unmarshalLines(items)
	if err != nil {
		return o, fmt.Errorf("decoding lines of order %q: %w", o.ID, err)
	}
	return o, nil
}

func marshalLines(lines []checkout.OrderLine) ([]byte, error) {
	out := make([]orderLineJSON, len(lines))
	for i, l := range lines {
		out[i] = orderLineJSON{
			ProductID: l.ProductID,
			Name:      l.Name,
			Unit:      string(l.Unit),
			Quantity:  l.Quantity.String(),
			Display:   l.Display,
			Price:     l.Price.String(),
		}
	}
	return json.Marshal(out)
}

func unmarshalLines(data []byte) ([]checkout.OrderLine, error) {
	var raw []orderLineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	lines := make([]checkout.OrderLine, len(raw))
	for i, l := range raw {
		qty, err := decimal.NewFromString(l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("line %q quantity: %w", l.ProductID, err)
		}
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			return nil, fmt.Errorf("line %q price: %w", l.ProductID, err)
		}
		lines[i] = checkout.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Unit:      unit.Kind(l.Unit),
			Quantity:  qty,
			Display:   l.Display,
			Price:     price,
		}
	}
	return lines, nil
}
