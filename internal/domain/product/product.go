package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/unit"
)

// ErrNotFound is returned when a requested product does not exist in the
// store's catalog.
var ErrNotFound = errors.New("product not found")

// Name holds the localized display names for a product. English is the
// fallback when a translation is missing.
type Name struct {
	EN string
	UR string
}

// In returns the name for the given language code, falling back to English.
func (n Name) In(lang string) string {
	if lang == "ur" && n.UR != "" {
		return n.UR
	}
	return n.EN
}

// Product is a catalog item belonging to one store. BasePrice and Inventory
// are always expressed per the unit's base quantity (per kilogram, per
// liter, per piece, per dozen) and never in mixed units.
type Product struct {
	ID        string
	StoreID   string
	Name      Name
	Unit      unit.Kind
	BasePrice decimal.Decimal
	Inventory decimal.Decimal
	Category  string
	Image     string
}

// InStock reports whether any inventory remains.
func (p Product) InStock() bool {
	return p.Inventory.IsPositive()
}

// Repository defines read operations for a store's product catalog.
type Repository interface {
	ListByStore(ctx context.Context, storeID string) ([]Product, error)
	GetByID(ctx context.Context, storeID, id string) (*Product, error)
	GetByIDs(ctx context.Context, storeID string, ids []string) ([]Product, error)
}
