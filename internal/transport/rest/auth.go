package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/medialuna/farmshop/internal/auth"
	aerrors "github.com/medialuna/farmshop/internal/auth/errors"
	"github.com/medialuna/farmshop/internal/auth/service"
	"github.com/medialuna/farmshop/pkg/config"
	"github.com/medialuna/farmshop/pkg/web"
)

// AuthHandler exposes account registration and the session lifecycle over HTTP.
type AuthHandler struct {
	service  service.AuthService
	session  config.SessionConfig
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates a new instance of AuthHandler with the provided service.
func NewAuthHandler(service service.AuthService, session config.SessionConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		session:  session,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for accounts and sessions.
// All of them are public; Me answers for anonymous callers too.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})
}

// Register creates a new account. New accounts default to the employee role.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := decodeValid[service.RegisterDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	identity, err := h.service.Register(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, aerrors.ErrEmailRegistered):
			web.RespondError(w, mLogger, http.StatusConflict, "This email is already registered")
		case errors.Is(err, aerrors.ErrInvalidRole):
			web.RespondError(w, mLogger, http.StatusBadRequest, "Unknown role")
		default:
			mLogger.ErrorContext(r.Context(), "Error registering account", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to register account")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Account registered", "ID", identity.UserID, "Email", identity.Email)
	web.RespondMutation(w, mLogger, http.StatusCreated, "Account registered successfully. You can log in now.")
}

// Login verifies the credentials and starts a session. The token travels only
// in an HttpOnly cookie; the body carries the identity for the UI.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := decodeValid[service.LoginDto](w, r, mLogger, h.validate)
	if !ok {
		return
	}

	identity, token, err := h.service.Login(r.Context(), dto)
	if err != nil {
		if errors.Is(err, aerrors.ErrInvalidCredentials) {
			mLogger.WarnContext(r.Context(), "Login rejected", "Email", dto.Email)
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error logging in", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to log in")
		return
	}

	http.SetCookie(w, h.sessionCookie(token, int(h.session.TTL.Seconds())))
	mLogger.InfoContext(r.Context(), "Session started", "ID", identity.UserID, "Role", identity.Role)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged in successfully",
		"user":    identity,
	})
}

// Logout ends the session, if any, and clears the cookie either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if cookie, err := r.Cookie(h.session.CookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil && !errors.Is(err, aerrors.ErrSessionNotFound) {
			mLogger.ErrorContext(r.Context(), "Error discarding session", "error", err)
		}
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	web.RespondMutation(w, mLogger, http.StatusOK, "Logged out")
}

// Me reports whether the caller is logged in and, if so, who they are.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{"logged_in": false})
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"logged_in": true,
		"name":      identity.Name,
		"email":     identity.Email,
		"role":      identity.Role,
	})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
