// Package service provides the implementation of sale-ledger business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	serrors "github.com/medialuna/farmshop/internal/sale/errors"
	"github.com/medialuna/farmshop/internal/sale/store"
	"github.com/medialuna/farmshop/pkg/messaging"
	"github.com/medialuna/farmshop/pkg/messaging/events"
)

// SaleService defines the methods for registering and voiding sales.
type SaleService interface {
	// Create validates the cart and registers the sale atomically.
	// Returns ErrMissingClient, ErrEmptyCart, ErrInvalidQuantity,
	// ErrClientNotFound, ErrProductNotFound or ErrInsufficientStock with no
	// mutation on failure.
	Create(ctx context.Context, sale SaleCreateDto) (*SaleDto, error)

	// FindByID retrieves a sale with its line items.
	// Returns ErrSaleNotFound if no sale exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*SaleDto, error)

	// FindAll returns all sales newest first, annotated for display.
	FindAll(ctx context.Context) ([]SaleSummaryDto, error)

	// DeleteByID voids a sale, restoring stock for every line item.
	// Returns ErrSaleNotFound if no sale exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Service implements SaleService and provides methods to manage the sale ledger.
type Service struct {
	saleStore    store.SaleStore
	publisher    messaging.Publisher
	salesCounter metric.Int64Counter
}

// NewService creates a new instance of SaleService with the provided store and publisher.
func NewService(saleStore store.SaleStore, publisher messaging.Publisher) *Service {
	meter := otel.Meter("farmshop")
	salesCounter, err := meter.Int64Counter("sales_created", metric.WithDescription("Total number of registered sales"))
	if err != nil {
		panic(fmt.Sprintf("failed to create sales_created counter: %v", err))
	}
	return &Service{
		saleStore:    saleStore,
		publisher:    publisher,
		salesCounter: salesCounter,
	}
}

// SaleCreateDto represents the data transfer object for registering a sale.
type SaleCreateDto struct {
	ClientID uuid.UUID     `json:"client_id" validate:"required"`
	Items    []CartItemDto `json:"items"     validate:"required,gt=0,dive"`
}

// CartItemDto is one (product, quantity) pair of the submitted cart.
// The unit price is read server-side at registration time.
type CartItemDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity"   validate:"required,min=1"`
}

// SaleDto represents the data transfer object for a sale with its line items.
type SaleDto struct {
	ID        uuid.UUID       `json:"id"`
	ClientID  uuid.UUID       `json:"client_id"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"created_at"`
	Items     []SaleItemDto   `json:"items,omitempty"`
}

// SaleItemDto represents the data transfer object for a sale line item.
type SaleItemDto struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleSummaryDto is the listing projection: the header annotated with the
// client name and a computed "product (qty)" concatenation.
type SaleSummaryDto struct {
	ID         uuid.UUID       `json:"id"`
	ClientID   uuid.UUID       `json:"client_id"`
	ClientName string          `json:"client_name"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  string          `json:"created_at"`
	Products   string          `json:"products"`
}

// Create registers a new sale and returns it as a SaleDto.
func (s *Service) Create(ctx context.Context, sale SaleCreateDto) (*SaleDto, error) {
	if sale.ClientID == uuid.Nil {
		return nil, serrors.ErrMissingClient
	}
	if len(sale.Items) == 0 {
		return nil, serrors.ErrEmptyCart
	}
	items := make([]store.CartItem, len(sale.Items))
	for i, item := range sale.Items {
		if item.Quantity <= 0 {
			return nil, serrors.ErrInvalidQuantity
		}
		items[i] = store.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	created, lineItems, err := s.saleStore.CreateSale(ctx, sale.ClientID, items)
	if err != nil {
		return nil, err
	}

	event := events.SaleRecordedEvent{
		SaleID:    created.ID,
		ClientID:  created.ClientID,
		Total:     created.Total,
		CreatedAt: created.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish SaleRecordedEvent", "error", err)
	}
	s.salesCounter.Add(ctx, 1)

	return toDto(created, lineItems), nil
}

// FindByID retrieves a sale by its ID and returns it as a SaleDto.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*SaleDto, error) {
	sale, items, err := s.saleStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(sale, items), nil
}

// FindAll retrieves all sales and returns them as SaleSummaryDtos.
func (s *Service) FindAll(ctx context.Context) ([]SaleSummaryDto, error) {
	sales, err := s.saleStore.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}
	summaries := make([]SaleSummaryDto, len(sales))
	for i, sale := range sales {
		summaries[i] = SaleSummaryDto{
			ID:         sale.ID,
			ClientID:   sale.ClientID,
			ClientName: sale.ClientName,
			Total:      sale.Total,
			CreatedAt:  sale.CreatedAt.Format(time.RFC3339),
			Products:   sale.Products,
		}
	}
	return summaries, nil
}

// DeleteByID voids a sale, restoring the stock of every referenced product.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := s.saleStore.DeleteByID(ctx, id); err != nil {
		return err
	}
	event := events.SaleVoidedEvent{SaleID: id, DeletedAt: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish SaleVoidedEvent", "error", err)
	}
	return nil
}

// toDto converts a store.Sale and its items to a SaleDto.
func toDto(sale *store.Sale, items []store.SaleItem) *SaleDto {
	if sale == nil {
		return nil
	}
	itemDtos := make([]SaleItemDto, 0, len(items))
	for _, item := range items {
		itemDtos = append(itemDtos, SaleItemDto{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return &SaleDto{
		ID:        sale.ID,
		ClientID:  sale.ClientID,
		Total:     sale.Total,
		CreatedAt: sale.CreatedAt.Format(time.RFC3339),
		Items:     itemDtos,
	}
}
