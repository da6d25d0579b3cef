// Package checkout turns a priced cart into an immutable order: it composes
// the payable total with the store's delivery policy, persists the order
// snapshot, and drives the admin-facing status lifecycle.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/unit"
)

// DeliveryOption selects how the customer receives the order.
type DeliveryOption string

const (
	Pickup   DeliveryOption = "pickup"
	Delivery DeliveryOption = "delivery"
)

// Valid reports whether o is a known delivery option.
func (o DeliveryOption) Valid() bool {
	return o == Pickup || o == Delivery
}

// PaymentMethod records how the customer pays. The platform only tracks the
// choice; it does not process payments.
type PaymentMethod string

const (
	CashOnDelivery PaymentMethod = "cod"
	Cash           PaymentMethod = "cash"
	BankTransfer   PaymentMethod = "bank_transfer"
)

// Status is the order lifecycle state. Transitions are admin-triggered and
// one-directional: delivered and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order with delivery option opt may move
// from s to next. Shipped is only reachable for delivery orders; any
// non-terminal state may be cancelled.
func (s Status) CanTransition(next Status, opt DeliveryOption) bool {
	if !next.Valid() || s.Terminal() || next == s {
		return false
	}
	switch next {
	case StatusReady:
		return s == StatusPending
	case StatusShipped:
		return s == StatusReady && opt == Delivery
	case StatusDelivered:
		if opt == Delivery {
			return s == StatusShipped
		}
		return s == StatusReady
	case StatusCancelled:
		return true
	}
	return false
}

// InvalidTransitionError reports a refused status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Customer is the buyer's contact information captured at checkout.
type Customer struct {
	Name    string
	Phone   string
	Address string
}

// OrderLine is a cart line frozen into an order. Prices and quantities are
// copied at submission time and never change, even if the catalog does.
type OrderLine struct {
	ProductID string
	Name      string
	Unit      unit.Kind
	Quantity  decimal.Decimal
	Display   string
	Price     decimal.Decimal
}

// Order is the immutable checkout snapshot. Only Status mutates after
// creation, through Service.UpdateStatus.
type Order struct {
	ID             string
	StoreID        string
	Customer       Customer
	Lines          []OrderLine
	DeliveryOption DeliveryOption
	PaymentMethod  PaymentMethod
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
	Status         Status
	Offline        bool
	CreatedAt      time.Time
}

// Subtotal is the sum of line prices, excluding the delivery charge.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Lines {
		sum = sum.Add(o.Lines[i].Price)
	}
	return sum
}

// Repository defines persistence for orders. The stored total is the single
// source of truth for reporting; SalesSummary must aggregate the total
// column, never re-derive from lines.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, st Status) error
	ListByStore(ctx context.Context, storeID string) ([]Order, error)
	SalesSummary(ctx context.Context, storeID string) (*SalesSummary, error)
}

// ErrOrderNotFound is returned for lookups of unknown order IDs.
var ErrOrderNotFound = fmt.Errorf("order not found")

// SalesSummary aggregates a store's revenue from stored order totals.
type SalesSummary struct {
	Orders    int
	Delivered int
	Cancelled int
	Revenue   decimal.Decimal
}
