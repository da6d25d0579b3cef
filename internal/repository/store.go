package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/store"
)

const (
	getStoreBySlugSQL = `SELECT id, slug, name, phone, active
		FROM stores WHERE slug = $1`

	getDeliveryRateSQL = `SELECT delivery_rate
		FROM store_settings WHERE store_id = $1`

	upsertStoreSQL = `INSERT INTO stores (id, slug, name, phone, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			active = EXCLUDED.active`

	setDeliveryRateSQL = `INSERT INTO store_settings (store_id, delivery_rate, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (store_id) DO UPDATE SET
			delivery_rate = EXCLUDED.delivery_rate,
			updated_at = now()`
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// GetBySlug returns the store addressed by its public storefront slug.
func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*store.Store, error) {
	var s store.Store
	err := r.pool.QueryRow(ctx, getStoreBySlugSQL, slug).
		Scan(&s.ID, &s.Slug, &s.Name, &s.Phone, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store %q: %w", slug, err)
	}
	return &s, nil
}

// DeliveryRate returns the store's configured flat delivery surcharge.
// A missing settings row or a NULL rate both mean not configured.
func (r *StoreRepository) DeliveryRate(ctx context.Context, storeID string) (decimal.Decimal, error) {
	var rate *decimal.Decimal
	err := r.pool.QueryRow(ctx, getDeliveryRateSQL, storeID).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, store.ErrRateNotConfigured
		}
		return decimal.Zero, fmt.Errorf("getting delivery rate for store %q: %w", storeID, err)
	}
	if rate == nil {
		return decimal.Zero, store.ErrRateNotConfigured
	}
	return *rate, nil
}

// Upsert inserts or replaces a store record. Used by the seed tool.
func (r *StoreRepository) Upsert(ctx context.Context, s store.Store) error {
	_, err := r.pool.Exec(ctx, upsertStoreSQL, s.ID, s.Slug, s.Name, s.Phone, s.Active)
	if err != nil {
		return fmt.Errorf("upserting store %q: %w", s.ID, err)
	}
	return nil
}

// SetDeliveryRate configures the store's flat delivery surcharge. A nil rate
// clears the configuration, which blocks delivery checkouts.
func (r *StoreRepository) SetDeliveryRate(ctx context.Context, storeID string, rate *decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, setDeliveryRateSQL, storeID, rate)
	if err != nil {
		return fmt.Errorf("setting delivery rate for store %q: %w", storeID, err)
	}
	return nil
}
