// Package store provides an interface for sale-ledger storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the header of a registered transaction, distinct from its line items.
type Sale struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Total     decimal.Decimal
	CreatedAt time.Time
}

// SaleItem is one product+quantity+subtotal entry belonging to exactly one
// sale. Subtotal is a snapshot taken at sale time and never recomputed.
// ProductName is denormalized at read time for display, never stored.
type SaleItem struct {
	ID          uuid.UUID
	SaleID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int32
	Subtotal    decimal.Decimal
}

// CartItem is a client-submitted (product, quantity) pair proposed for a new
// sale. Prices are read server-side; the cart never carries them.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int32
}

// SaleSummary is the read-side projection for sale listings: the header
// annotated with the client name and a human-readable "product (qty)" list.
type SaleSummary struct {
	Sale
	ClientName string
	Products   string
}

// SaleStore is an interface for sale-ledger storage operations. Creation and
// deletion are atomic: either every write lands or none do.
type SaleStore interface {
	// CreateSale validates the cart against current stock, persists the header
	// and line items and decrements stock, all in one transaction. Returns
	// ErrClientNotFound, ErrProductNotFound or ErrInsufficientStock (each
	// annotated with the offending record) with no mutation applied on failure.
	CreateSale(ctx context.Context, clientID uuid.UUID, items []CartItem) (*Sale, []SaleItem, error)

	// FindByID retrieves a sale header and its line items.
	// Returns ErrSaleNotFound if no sale exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, []SaleItem, error)

	// FindAll returns all sales newest first, annotated for display.
	FindAll(ctx context.Context) ([]SaleSummary, error)

	// DeleteByID restores each referenced product's stock by the deleted line
	// item's quantity, then removes the line items and the header, all in one
	// transaction. Returns ErrSaleNotFound with no mutation applied when the
	// ID is unknown.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
