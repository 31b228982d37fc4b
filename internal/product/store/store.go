// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry with its current stock count.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int32
	CreatedAt   time.Time
}

// Querier is the subset of pgx operations the store needs. It is satisfied by
// both *pgxpool.Pool and pgx.Tx, so stock adjustments can run standalone or
// inside the sale ledger's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations.
type ProductStore interface {
	// FindAll returns all products ordered by name ascending.
	FindAll(ctx context.Context) ([]Product, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, name, description string, price decimal.Decimal, stock int32) (*Product, error)

	// Update modifies an existing product's details.
	// Returns ErrProductNotFound if no row was affected.
	Update(ctx context.Context, id uuid.UUID, name, description string, price decimal.Decimal, stock int32) (*Product, error)

	// DeleteByID removes a product. Returns ErrProductReferenced (annotated with
	// the referencing line-item count) if any sale still references it, or
	// ErrProductNotFound if the ID is unknown.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// AdjustStock applies a signed delta to a product's stock. Returns the new
	// stock count, ErrInsufficientStock if the result would be negative, or
	// ErrProductNotFound if the ID is unknown.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (int32, error)
}
