// Package cart implements the unit-aware cart aggregator: one line per
// product, quantities accumulated in base units, prices always recomputed
// from the accumulated total. Every surface that lets a customer pick a
// quantity (storefront, point of sale) goes through this package instead of
// carrying its own conversion or rounding.
package cart

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/unit"
)

// LinePrice computes the price for baseQty of a product priced at basePrice
// per base unit, rounded half-up to a whole rupee. Prices must always be
// derived from the accumulated base quantity; summing previously rounded
// increments drifts.
func LinePrice(basePrice decimal.Decimal, baseQty decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(baseQty).Round(0)
}

// Line is one aggregated cart row. Lines are keyed by product ID alone:
// adding "1kg" and then "1000g" of the same product accumulates into a
// single line, regardless of how each addition was phrased.
type Line struct {
	ProductID string
	Name      string
	Image     string
	Unit      unit.Kind
	BasePrice decimal.Decimal
	Quantity  decimal.Decimal
	Display   string
	Price     decimal.Decimal
}

// Store persists cart snapshots between sessions.
type Store interface {
	Save(lines []Line) error
	Load() ([]Line, error)
	Clear() error
}

// Cart is an ordered collection of lines owned by one customer session.
// It is not safe for concurrent use; a cart belongs to a single logical
// thread of control.
type Cart struct {
	lines []Line
	store Store
	lg    *zap.Logger
}

// Option configures a Cart.
type Option func(*Cart)

// WithStore attaches a durable snapshot store. The snapshot is rewritten
// after every mutation and loaded once at construction; load failures
// hydrate an empty cart.
func WithStore(s Store) Option {
	return func(c *Cart) { c.store = s }
}

// WithLogger sets the logger used for non-fatal persistence warnings.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Cart) { c.lg = lg }
}

// New creates a cart, rehydrating from the snapshot store when one is
// configured. A missing or corrupt snapshot is an empty cart, never an
// error.
func New(opts ...Option) *Cart {
	c := &Cart{lg: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		lines, err := c.store.Load()
		if err != nil {
			c.lg.Warn("cart snapshot unreadable, starting empty", zap.Error(err))
		} else {
			c.lines = lines
		}
	}
	return c
}

// Add resolves the selection against the product's unit and merges it into
// the cart. An existing line for the product accumulates quantity and has
// its display string and price recomputed from the new total; otherwise a
// new line is appended. An invalid selection leaves the cart unchanged.
func (c *Cart) Add(p product.Product, sel unit.Selection) (Line, error) {
	qty, err := unit.Resolve(p.Unit, sel)
	if err != nil {
		return Line{}, err
	}

	for i := range c.lines {
		if c.lines[i].ProductID != p.ID {
			continue
		}
		qty = qty.Add(unit.Quantity{Kind: p.Unit, Base: c.lines[i].Quantity})
		c.lines[i].Quantity = qty.Base
		c.lines[i].Display = qty.Display()
		c.lines[i].Price = LinePrice(c.lines[i].BasePrice, qty.Base)
		c.persist()
		return c.lines[i], nil
	}

	line := Line{
		ProductID: p.ID,
		Name:      p.Name.EN,
		Image:     p.Image,
		Unit:      p.Unit,
		BasePrice: p.BasePrice,
		Quantity:  qty.Base,
		Display:   qty.Display(),
		Price:     LinePrice(p.BasePrice, qty.Base),
	}
	c.lines = append(c.lines, line)
	c.persist()
	return line, nil
}

// Remove deletes the line for productID. Removing an absent product is a
// no-op, not an error.
func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.persist()
			return
		}
	}
}

// Clear empties the cart and drops the durable snapshot.
func (c *Cart) Clear() {
	c.lines = nil
	if c.store == nil {
		return
	}
	if err := c.store.Clear(); err != nil {
		c.lg.Warn("clear cart snapshot", zap.Error(err))
	}
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// TotalPrice sums the line prices. Because each line's price is recomputed
// from its accumulated quantity on every mutation, the total equals what a
// from-scratch replay of (product, quantity) pairs would produce.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for i := range c.lines {
		total = total.Add(c.lines[i].Price)
	}
	return total
}

// persist writes the snapshot best-effort. The in-memory cart stays
// authoritative for the session when the write fails.
func (c *Cart) persist() {
	if c.store == nil {
		return
	}
	if err := c.store.Save(c.lines); err != nil {
		c.lg.Warn("save cart snapshot", zap.Error(err))
	}
}
