package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	cerrors "github.com/medialuna/farmshop/internal/client/errors"
	perrors "github.com/medialuna/farmshop/internal/product/errors"
	productstore "github.com/medialuna/farmshop/internal/product/store"
	serrors "github.com/medialuna/farmshop/internal/sale/errors"
)

// PgStore implements SaleStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of SaleStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// CreateSale registers a sale as one atomic unit: stock validation, header and
// line-item inserts and stock decrements either all land or all roll back.
// Product rows are locked in a deterministic order so concurrent sales against
// overlapping carts cannot deadlock, and the conditional decrement guarantees
// stock never goes negative even if a concurrent writer slipped past the check.
func (p *PgStore) CreateSale(ctx context.Context, clientID uuid.UUID, items []CartItem) (*Sale, []SaleItem, error) {
	var sale *Sale
	var saleItems []SaleItem

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check client existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("client %s: %w", clientID, cerrors.ErrClientNotFound)
		}

		products, err := lockProducts(ctx, tx, items)
		if err != nil {
			return err
		}

		total := decimal.Zero
		subtotals := make([]decimal.Decimal, len(items))
		for i, item := range items {
			product := products[item.ProductID]
			if product.Stock < item.Quantity {
				return fmt.Errorf("insufficient stock for product %q: available %d, requested %d: %w",
					product.Name, product.Stock, item.Quantity, perrors.ErrInsufficientStock)
			}
			// Subtotal snapshots the unit price at sale time, rounded
			// half-up to 2 decimal places.
			subtotals[i] = product.Price.Mul(decimal.NewFromInt32(item.Quantity)).Round(2)
			total = total.Add(subtotals[i])
		}

		var header Sale
		header.ClientID = clientID
		header.Total = total
		err = tx.QueryRow(ctx,
			`INSERT INTO sales (client_id, total) VALUES ($1, $2::numeric) RETURNING id, created_at`,
			clientID, total.String()).Scan(&header.ID, &header.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert sale header: %w", err)
		}

		lineItems := make([]SaleItem, 0, len(items))
		for i, item := range items {
			product := products[item.ProductID]
			var itemID uuid.UUID
			err = tx.QueryRow(ctx,
				`INSERT INTO sale_items (sale_id, product_id, quantity, subtotal)
				 VALUES ($1, $2, $3, $4::numeric) RETURNING id`,
				header.ID, item.ProductID, item.Quantity, subtotals[i].String()).Scan(&itemID)
			if err != nil {
				return fmt.Errorf("failed to insert sale item: %w", err)
			}
			if _, err := productstore.AdjustStock(ctx, tx, item.ProductID, -item.Quantity); err != nil {
				return fmt.Errorf("product %q: %w", product.Name, err)
			}
			lineItems = append(lineItems, SaleItem{
				ID:          itemID,
				SaleID:      header.ID,
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Subtotal:    subtotals[i],
			})
		}

		sale = &header
		saleItems = lineItems
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}
	return sale, saleItems, nil
}

// lockProducts takes FOR UPDATE locks on every distinct product in the cart,
// ordered by ID to keep lock acquisition deterministic across transactions.
func lockProducts(ctx context.Context, tx pgx.Tx, items []CartItem) (map[uuid.UUID]*productstore.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	products := make(map[uuid.UUID]*productstore.Product, len(ids))
	for _, id := range ids {
		product, err := productstore.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		products[id] = product
	}
	return products, nil
}

// FindByID retrieves a sale header with its line items.
// Returns ErrSaleNotFound if no sale exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Sale, []SaleItem, error) {
	var sale Sale
	var total string
	err := p.db.QueryRow(ctx,
		`SELECT id, client_id, total::text, created_at FROM sales WHERE id = $1`, id).
		Scan(&sale.ID, &sale.ClientID, &total, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, serrors.ErrSaleNotFound
		}
		return nil, nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}
	if sale.Total, err = decimal.NewFromString(total); err != nil {
		return nil, nil, fmt.Errorf("failed to parse sale total %q: %w", total, err)
	}

	items, err := p.findItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &sale, items, nil
}

func (p *PgStore) findItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	rows, err := p.db.Query(ctx,
		`SELECT li.id, li.sale_id, li.product_id, pr.name, li.quantity, li.subtotal::text
		 FROM sale_items li
		 JOIN products pr ON pr.id = li.product_id
		 WHERE li.sale_id = $1
		 ORDER BY pr.name ASC`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find sale items: %w", err)
	}
	defer rows.Close()

	items := make([]SaleItem, 0)
	for rows.Next() {
		var item SaleItem
		var subtotal string
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		if item.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("failed to parse sale item subtotal %q: %w", subtotal, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sale items: %w", err)
	}
	return items, nil
}

// FindAll returns every sale newest first, annotated with the client name and
// a "product (qty)" concatenation computed at read time.
func (p *PgStore) FindAll(ctx context.Context) ([]SaleSummary, error) {
	rows, err := p.db.Query(ctx,
		`SELECT s.id, s.client_id, c.name, s.total::text, s.created_at,
		        COALESCE(string_agg(pr.name || ' (' || li.quantity || ')', ', ' ORDER BY pr.name), '')
		 FROM sales s
		 JOIN clients c ON c.id = s.client_id
		 LEFT JOIN sale_items li ON li.sale_id = s.id
		 LEFT JOIN products pr ON pr.id = li.product_id
		 GROUP BY s.id, c.name
		 ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to find all sales: %w", err)
	}
	defer rows.Close()

	sales := make([]SaleSummary, 0)
	for rows.Next() {
		var s SaleSummary
		var total string
		if err := rows.Scan(&s.ID, &s.ClientID, &s.ClientName, &total, &s.CreatedAt, &s.Products); err != nil {
			return nil, fmt.Errorf("failed to scan sale summary: %w", err)
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse sale total %q: %w", total, err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales: %w", err)
	}
	return sales, nil
}

// DeleteByID removes a sale as one atomic unit: every line item's quantity is
// restored to its product's stock, then the items and the header are deleted.
// An unknown ID rolls back with ErrSaleNotFound and no mutation applied.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM sale_items WHERE sale_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to read sale items for restore: %w", err)
		}
		type restore struct {
			productID uuid.UUID
			quantity  int32
		}
		restores := make([]restore, 0)
		for rows.Next() {
			var r restore
			if err := rows.Scan(&r.productID, &r.quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan sale item for restore: %w", err)
			}
			restores = append(restores, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read sale items for restore: %w", err)
		}

		for _, r := range restores {
			if _, err := productstore.AdjustStock(ctx, tx, r.productID, r.quantity); err != nil {
				return fmt.Errorf("failed to restore stock for product %s: %w", r.productID, err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete sale items: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return serrors.ErrSaleNotFound
		}
		return nil
	})
}

// withTransaction runs fn inside a transaction, committing on success and
// rolling back on any error so partial writes are never observable.
func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return serrors.ErrTransactionBegin
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return serrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return serrors.ErrTransactionCommit
	}
	return nil
}
