package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	perrors "github.com/medialuna/farmshop/internal/product/errors"
)

const fkViolation = "23503"

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const productColumns = `id, name, description, price::text, stock, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product price %q: %w", price, err)
	}
	p.Price = d
	return &p, nil
}

// FindAll retrieves all products sorted by name ascending.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	rows, err := p.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// Create adds a new product to the catalog.
func (p *PgStore) Create(ctx context.Context, name, description string, price decimal.Decimal, stock int32) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock)
		 VALUES ($1, $2, $3::numeric, $4)
		 RETURNING `+productColumns,
		name, description, price.String(), stock)
	product, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// Update modifies an existing product's details.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, id uuid.UUID, name, description string, price decimal.Decimal, stock int32) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4::numeric, stock = $5
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, name, description, price.String(), stock)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeleteByID removes a product by its unique identifier. The referencing
// line-item count is checked first so callers get a descriptive conflict;
// the foreign key constraint covers the race between check and delete.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	var refs int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM sale_items WHERE product_id = $1`, id).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count referencing sale items: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%d sale item(s) reference this product: %w", refs, perrors.ErrProductReferenced)
	}

	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return perrors.ErrProductReferenced
		}
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}

// AdjustStock applies a signed delta to the product's stock on the pool.
func (p *PgStore) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (int32, error) {
	return AdjustStock(ctx, p.db, id, delta)
}

// AdjustStock is the conditional-update primitive the sale ledger composes on.
// It runs against any Querier so it participates in the caller's transaction.
// The WHERE clause guarantees stock never goes negative regardless of
// concurrent decrements.
func AdjustStock(ctx context.Context, q Querier, id uuid.UUID, delta int32) (int32, error) {
	var stock int32
	err := q.QueryRow(ctx,
		`UPDATE products SET stock = stock + $2 WHERE id = $1 AND stock + $2 >= 0 RETURNING stock`,
		id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	// No row updated: either the product is missing or the delta would
	// overdraw the stock.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return 0, perrors.ErrProductNotFound
	}
	return 0, perrors.ErrInsufficientStock
}

// FindByIDForUpdate locks the product row for the duration of the caller's
// transaction and returns it. Used by the sale ledger to serialize stock
// checks against concurrent sale creation.
func FindByIDForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*Product, error) {
	product, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}
	return product, nil
}
