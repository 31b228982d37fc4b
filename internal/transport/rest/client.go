package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/medialuna/farmshop/internal/auth"
	cerrors "github.com/medialuna/farmshop/internal/client/errors"
	"github.com/medialuna/farmshop/internal/client/service"
	"github.com/medialuna/farmshop/pkg/web"
)

// ClientHandler exposes the client directory over HTTP.
type ClientHandler struct {
	service  service.ClientService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewClientHandler creates a new instance of ClientHandler with the provided service.
func NewClientHandler(service service.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the client directory.
// Logged-in users can read the directory and resolve their own record;
// registering, editing and deleting clients is admin-only.
func (h *ClientHandler) RegisterRoutes(r chi.Router, gate *Gate) {
	r.Route("/api/v1/clients", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAuthenticated)
			r.Get("/", h.FindAll)
			r.Get("/{id}", h.FindByID)
			r.Post("/me", h.FindOrCreateMine)
		})
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// FindAll retrieves every registered client sorted by name.
func (h *ClientHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving client list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch clients")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a client by its ID.
func (h *ClientHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, cerrors.ErrClientNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Client with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving client", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve client with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create registers a new client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := decodeValid[service.ClientCreateDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	newClient, err := h.service.Create(r.Context(), dto)
	if err != nil {
		if errors.Is(err, cerrors.ErrEmailTaken) {
			web.RespondError(w, mLogger, http.StatusConflict, "A client with this email already exists")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating client", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create client")
		return
	}
	mLogger.InfoContext(r.Context(), "Client created successfully", "ID", newClient.ID, "Name", newClient.Name)
	web.RespondMutation(w, mLogger, http.StatusCreated, "Client created successfully")
}

// FindOrCreateMine resolves the client record matching the logged-in user's
// email, creating it on first use so employees can sell to themselves.
func (h *ClientHandler) FindOrCreateMine(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "You must be logged in to perform this action")
		return
	}
	client, err := h.service.FindOrCreateByEmail(r.Context(), identity.Email, identity.Name)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error resolving own client record", "email", identity.Email, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to resolve client record")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, client)
}

// Update modifies an existing client.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid[service.ClientCreateDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, cerrors.ErrClientNotFound):
			web.RespondError(w, mLogger, http.StatusNotFound, "No client found to update")
		case errors.Is(err, cerrors.ErrEmailTaken):
			web.RespondError(w, mLogger, http.StatusConflict, "A client with this email already exists")
		default:
			mLogger.ErrorContext(r.Context(), "Error updating client", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update client with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Client updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondMutation(w, mLogger, http.StatusOK, "Client updated successfully")
}

// Delete removes a client unless sales still reference it.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, cerrors.ErrClientNotFound):
			web.RespondError(w, mLogger, http.StatusNotFound, "No client found to delete")
		case errors.Is(err, cerrors.ErrClientReferenced):
			mLogger.WarnContext(r.Context(), "Client delete blocked by existing sales", "ID", id)
			web.RespondError(w, mLogger, http.StatusConflict,
				fmt.Sprintf("Cannot delete this client: %s. Delete the related sales first.", err))
		default:
			mLogger.ErrorContext(r.Context(), "Error deleting client", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete client with ID %s", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Client deleted successfully", "ID", id)
	web.RespondMutation(w, mLogger, http.StatusOK, "Client deleted successfully")
}

func (h *ClientHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
