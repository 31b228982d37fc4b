// Package rest provides the HTTP boundary of the shop: handlers, identity
// gating and error-to-status mapping.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	perrors "github.com/medialuna/farmshop/internal/product/errors"
	"github.com/medialuna/farmshop/internal/product/service"
	"github.com/medialuna/farmshop/pkg/web"
)

// ProductHandler exposes the product catalog over HTTP.
type ProductHandler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProductHandler creates a new instance of ProductHandler with the provided service.
func NewProductHandler(service service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product catalog.
// Catalog reads are public; every mutation is admin-only.
func (h *ProductHandler) RegisterRoutes(r chi.Router, gate *Gate) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Get("/{id}", h.FindByID)

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Put("/{id}/stock", h.AdjustStock)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// FindAll retrieves the catalog sorted by name.
func (h *ProductHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *ProductHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := decodeValid[service.ProductCreateDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	newProduct, err := h.service.Create(r.Context(), dto)
	if err != nil {
		if errors.Is(err, perrors.ErrInvalidPrice) {
			web.RespondError(w, mLogger, http.StatusBadRequest, "The price must be greater than 0")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondMutation(w, mLogger, http.StatusCreated, "Product created successfully")
}

// Update handles modification of an existing product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid[service.ProductCreateDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, perrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, "No product found to update")
		case errors.Is(err, perrors.ErrInvalidPrice):
			web.RespondError(w, mLogger, http.StatusBadRequest, "The price must be greater than 0")
		default:
			mLogger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update product with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondMutation(w, mLogger, http.StatusOK, "Product updated successfully")
}

// AdjustStock applies a signed stock delta to a product.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid[service.StockAdjustDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	newStock, err := h.service.AdjustStock(r.Context(), id, dto.Delta)
	if err != nil {
		switch {
		case errors.Is(err, perrors.ErrProductNotFound):
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
		case errors.Is(err, perrors.ErrInsufficientStock):
			web.RespondError(w, mLogger, http.StatusConflict, "Stock cannot go negative")
		default:
			mLogger.ErrorContext(r.Context(), "Error adjusting stock", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to adjust stock for product with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Stock adjusted successfully", "ID", id, "NewStock", newStock)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{"success": true, "stock": newStock})
}

// Delete removes a product unless sales still reference it.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, perrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, "No product found to delete")
		case errors.Is(err, perrors.ErrProductReferenced):
			mLogger.WarnContext(r.Context(), "Product delete blocked by existing sales", "ID", id)
			web.RespondError(w, mLogger, http.StatusConflict,
				fmt.Sprintf("Cannot delete this product: %s. Delete the related sales first.", err))
		default:
			mLogger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete product with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondMutation(w, mLogger, http.StatusOK, "Product deleted successfully")
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *ProductHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
