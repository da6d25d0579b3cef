package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taziri/grocery-kart/internal/domain/cart"
	"github.com/taziri/grocery-kart/internal/domain/store"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrDeliveryRateUnavailable blocks delivery checkouts when the store
	// has no usable delivery rate. Never defaults to zero.
	ErrDeliveryRateUnavailable = errors.New("delivery rate unavailable")
)

// Inventory decrements stock after a successful order. Implementations must
// treat each call independently; a failed decrement is a warning, not a
// rollback.
type Inventory interface {
	Decrement(ctx context.Context, storeID, productID string, baseQty decimal.Decimal) error
}

// Settings supplies per-store checkout configuration.
type Settings interface {
	DeliveryRate(ctx context.Context, storeID string) (decimal.Decimal, error)
}

// Service composes order totals and submits orders.
type Service struct {
	orders    Repository
	settings  Settings
	inventory Inventory
	lg        *zap.Logger
	now       func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(orders Repository, settings Settings, inventory Inventory, lg *zap.Logger) *Service {
	return &Service{
		orders:    orders,
		settings:  settings,
		inventory: inventory,
		lg:        lg,
		now:       time.Now,
	}
}

// Request holds everything submitted at checkout besides the cart itself.
type Request struct {
	StoreID        string
	Customer       Customer
	DeliveryOption DeliveryOption
	PaymentMethod  PaymentMethod
	Offline        bool
}

// InventoryWarning records a failed post-order stock decrement.
type InventoryWarning struct {
	ProductID string
	Err       error
}

// Result is the outcome of a successful checkout. Warnings carry per-line
// inventory failures; the order itself has already been persisted.
type Result struct {
	Order    *Order
	Warnings []InventoryWarning
}

// OrderTotal combines a cart total with the delivery policy: pickup orders
// pay the cart total, delivery orders add the flat rate.
func OrderTotal(cartTotal decimal.Decimal, opt DeliveryOption, rate decimal.Decimal) decimal.Decimal {
	if opt == Delivery {
		return cartTotal.Add(rate)
	}
	return cartTotal
}

// Submit freezes the cart into an order, persists it with status pending,
// then decrements inventory per line and clears the cart. On persistence
// failure the cart is left untouched so the customer can retry; inventory
// failures after persistence are collected as warnings and never fail the
// checkout.
func (s *Service) Submit(ctx context.Context, c *cart.Cart, req Request) (*Result, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if !req.DeliveryOption.Valid() {
		return nil, errors.Errorf("unknown delivery option %q", req.DeliveryOption)
	}

	charge, err := s.deliveryCharge(ctx, req.StoreID, req.DeliveryOption)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:             uuid.New().String(),
		StoreID:        req.StoreID,
		Customer:       req.Customer,
		Lines:          freezeLines(lines),
		DeliveryOption: req.DeliveryOption,
		PaymentMethod:  req.PaymentMethod,
		DeliveryCharge: charge,
		Total:          OrderTotal(c.TotalPrice(), req.DeliveryOption, charge),
		Status:         StatusPending,
		Offline:        req.Offline,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	warnings := s.decrementInventory(ctx, o)
	c.Clear()

	return &Result{Order: o, Warnings: warnings}, nil
}

// UpdateStatus applies an admin-triggered lifecycle transition after
// validating it against the order's current state and delivery option.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(next, o.DeliveryOption) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}
	if err := s.orders.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = next
	return o, nil
}

func (s *Service) deliveryCharge(ctx context.Context, storeID string, opt DeliveryOption) (decimal.Decimal, error) {
	if opt != Delivery {
		return decimal.Zero, nil
	}
	rate, err := s.settings.DeliveryRate(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrRateNotConfigured) {
			return decimal.Zero, ErrDeliveryRateUnavailable
		}
		return decimal.Zero, errors.Wrap(err, "fetch delivery rate")
	}
	if rate.IsNegative() {
		return decimal.Zero, ErrDeliveryRateUnavailable
	}
	return rate, nil
}

// decrementInventory adjusts stock for every line independently. One line's
// failure never prevents attempting the others, and all failures are
// reported as warnings since the order has already succeeded.
func (s *Service) decrementInventory(ctx context.Context, o *Order) []InventoryWarning {
	var (
		mu       sync.Mutex
		warnings []InventoryWarning
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, line := range o.Lines {
		g.Go(func() error {
			if err := s.inventory.Decrement(ctx, o.StoreID, line.ProductID, line.Quantity); err != nil {
				s.lg.Warn("inventory decrement failed",
					zap.String("order_id", o.ID),
					zap.String("product_id", line.ProductID),
					zap.Error(err),
				)
				mu.Lock()
				warnings = append(warnings, InventoryWarning{ProductID: line.ProductID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines only report warnings, never errors

	return warnings
}

func freezeLines(lines []cart.Line) []OrderLine {
	out := make([]OrderLine, len(lines))
	for i, l := range lines {
		out[i] = OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Unit:      l.Unit,
			Quantity:  l.Quantity,
			Display:   l.Display,
			Price:     l.Price,
		}
	}
	return out
}
