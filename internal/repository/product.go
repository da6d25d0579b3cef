package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/unit"
)

const (
	productColumns = `id, store_id, name_en, name_ur, unit, price, inventory, category, image`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 ORDER BY category, id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 AND id = $2`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 AND id = ANY($2)`

	// GREATEST keeps inventory from going negative when walk-in sales have
	// already drained the stock the online order was priced against.
	decrementInventorySQL = `UPDATE products
		SET inventory = GREATEST(inventory - $3, 0)
		WHERE store_id = $1 AND id = $2`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (store_id, id) DO UPDATE SET
			name_en = EXCLUDED.name_en,
			name_ur = EXCLUDED.name_ur,
			unit = EXCLUDED.unit,
			price = EXCLUDED.price,
			inventory = EXCLUDED.inventory,
			category = EXCLUDED.category,
			image = EXCLUDED.image`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Its Decrement method also satisfies the checkout inventory sink.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListByStore returns the store's catalog ordered by category then ID.
func (r *ProductRepository) ListByStore(ctx context.Context, storeID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing products for store %q: %w", storeID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product from the store's catalog.
func (r *ProductRepository) GetByID(ctx context.Context, storeID, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the store's products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, storeID string, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, storeID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Decrement reduces a product's inventory by baseQty, clamped at zero.
func (r *ProductRepository) Decrement(ctx context.Context, storeID, productID string, baseQty decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, decrementInventorySQL, storeID, productID, baseQty)
	if err != nil {
		return fmt.Errorf("decrementing inventory for %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(product.ErrNotFound, productID)
	}
	return nil
}

// Upsert inserts or replaces a catalog entry. Used by the seed and supplier
// feed ingest tools.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.StoreID, p.Name.EN, p.Name.UR, string(p.Unit),
		p.BasePrice, p.Inventory, p.Category, p.Image,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		unitKind string
	)
	err := row.Scan(
		&p.ID, &p.StoreID, &p.Name.EN, &p.Name.UR, &unitKind,
		&p.BasePrice, &p.Inventory, &p.Category, &p.Image,
	)
	p.Unit = unit.Kind(unitKind)
	return p, err
}
