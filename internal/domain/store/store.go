// Package store holds the tenant model: each store owns its catalog,
// orders and settings.
package store

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no store exists for a slug.
	ErrNotFound = errors.New("store not found")
	// ErrRateNotConfigured is returned when a store has no delivery rate
	// set. Delivery checkouts must fail on it rather than charge zero.
	ErrRateNotConfigured = errors.New("delivery rate not configured")
)

// Store is one tenant of the platform.
type Store struct {
	ID     string
	Slug   string
	Name   string
	Phone  string
	Active bool
}

// Repository provides store lookup and per-store settings.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Store, error)

	// DeliveryRate returns the store's flat delivery surcharge.
	// Returns ErrRateNotConfigured when the store has not set one.
	DeliveryRate(ctx context.Context, storeID string) (decimal.Decimal, error)
}
