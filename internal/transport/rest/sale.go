package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	cerrors "github.com/medialuna/farmshop/internal/client/errors"
	perrors "github.com/medialuna/farmshop/internal/product/errors"
	serrors "github.com/medialuna/farmshop/internal/sale/errors"
	"github.com/medialuna/farmshop/internal/sale/service"
	"github.com/medialuna/farmshop/pkg/web"
)

// SaleHandler exposes the sale ledger over HTTP.
type SaleHandler struct {
	service  service.SaleService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSaleHandler creates a new instance of SaleHandler with the provided service.
func NewSaleHandler(service service.SaleService, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the sale ledger.
// Registering and browsing sales needs a login; voiding one is admin-only.
func (h *SaleHandler) RegisterRoutes(r chi.Router, gate *Gate) {
	r.Route("/api/v1/sales", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAuthenticated)
			r.Get("/", h.FindAll)
			r.Get("/{id}", h.FindByID)
			r.Post("/", h.Create)
		})
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// FindAll retrieves every sale, newest first, annotated for display.
func (h *SaleHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving sale list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch sales")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a sale with its line items.
func (h *SaleHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, serrors.ErrSaleNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Sale with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving sale", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve sale with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create registers a sale from a cart. The whole cart commits or nothing does.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := decodeValid[service.SaleCreateDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	newSale, err := h.service.Create(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, serrors.ErrMissingClient):
			web.RespondError(w, mLogger, http.StatusBadRequest, "A client must be selected")
		case errors.Is(err, serrors.ErrEmptyCart):
			web.RespondError(w, mLogger, http.StatusBadRequest, "The cart is empty")
		case errors.Is(err, serrors.ErrInvalidQuantity):
			web.RespondError(w, mLogger, http.StatusBadRequest, "Quantities must be greater than 0")
		case errors.Is(err, cerrors.ErrClientNotFound):
			web.RespondError(w, mLogger, http.StatusNotFound, "The selected client does not exist")
		case errors.Is(err, perrors.ErrProductNotFound):
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Error: %s", err))
		case errors.Is(err, perrors.ErrInsufficientStock):
			mLogger.WarnContext(r.Context(), "Sale rejected for insufficient stock", "error", err)
			web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Error: %s", err))
		default:
			mLogger.ErrorContext(r.Context(), "Error registering sale", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to register sale")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Sale registered successfully", "ID", newSale.ID, "Total", newSale.Total)
	web.RespondJSON(w, mLogger, http.StatusCreated, web.MutationResult{
		Success: true,
		Message: "Sale registered successfully",
		SaleID:  &newSale.ID,
	})
}

// Delete voids a sale and restores the stock of every line item.
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, serrors.ErrSaleNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, "No sale found to delete")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error deleting sale", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete sale with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Sale deleted successfully", "ID", id)
	web.RespondMutation(w, mLogger, http.StatusOK, "Sale deleted and stock restored")
}

func (h *SaleHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
