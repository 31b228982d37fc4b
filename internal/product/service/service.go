// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	perrors "github.com/medialuna/farmshop/internal/product/errors"
	"github.com/medialuna/farmshop/internal/product/store"
)

// ProductService defines the methods for managing the product catalog.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindAll returns all products sorted by name ascending.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update modifies an existing product's details.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, product ProductCreateDto) (*ProductDto, error)

	// DeleteByID removes a product by its ID. Returns ErrProductReferenced
	// if the product is referenced by any sale.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// AdjustStock applies a signed delta to a product's stock and returns the
	// new stock count. Returns ErrInsufficientStock if the result would be negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (int32, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductCreateDto represents the data transfer object for creating or updating a product.
type ProductCreateDto struct {
	Name        string          `json:"name"        validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price"       validate:"required"`
	Stock       int32           `json:"stock"       validate:"gte=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
	CreatedAt   string          `json:"created_at"`
}

// StockAdjustDto represents the data transfer object for a stock adjustment.
type StockAdjustDto struct {
	Delta int32 `json:"delta" validate:"required"`
}

// FindAll retrieves the catalog and returns it as ProductDtos.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	productDtos := make([]ProductDto, len(products))
	for i, item := range products {
		productDtos[i] = *toDto(&item)
	}
	return productDtos, nil
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toDto(product), nil
}

// Create creates a new product and returns it as a ProductDto.
// Returns ErrInvalidPrice if the price is not strictly positive.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	if !product.Price.IsPositive() {
		return nil, perrors.ErrInvalidPrice
	}
	p, err := s.repository.Create(ctx, product.Name, product.Description, product.Price, product.Stock)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(p), nil
}

// Update modifies an existing product's details and returns the updated product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) Update(ctx context.Context, id uuid.UUID, product ProductCreateDto) (*ProductDto, error) {
	if !product.Price.IsPositive() {
		return nil, perrors.ErrInvalidPrice
	}
	updated, err := s.repository.Update(ctx, id, product.Name, product.Description, product.Price, product.Stock)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	return toDto(updated), nil
}

// DeleteByID deletes a product by its ID.
// Returns ErrProductReferenced if any sale line item references the product.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return s.repository.DeleteByID(ctx, id)
}

// AdjustStock applies a signed delta to a product's stock.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (int32, error) {
	newStock, err := s.repository.AdjustStock(ctx, id, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock for product with ID %s: %w", id, err)
	}
	return newStock, nil
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt.Format(time.RFC3339),
	}
}
