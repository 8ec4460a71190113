package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, category FROM products ORDER BY position, id`

	upsertProductSQL = `INSERT INTO products (id, name, price, category, position)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category, position = EXCLUDED.position`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository is the catalog source backed by the products table.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products in catalog order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return products, nil
}

// Upsert inserts or replaces products in one transaction. Slice order becomes
// catalog order.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i, p := range products {
			if _, err := tx.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category, i); err != nil {
				return errors.Wrapf(err, "upsert product %q", p.ID)
			}
		}
		return nil
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category)
	return p, err
}
