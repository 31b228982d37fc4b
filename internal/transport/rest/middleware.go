package rest

import (
	"log/slog"
	"net/http"

	"github.com/medialuna/farmshop/internal/auth"
	"github.com/medialuna/farmshop/internal/auth/session"
	"github.com/medialuna/farmshop/pkg/web"
)

// Gate resolves the caller's identity from the session cookie and enforces
// the two capability levels. Core services never see roles; every check
// happens here, at the boundary.
type Gate struct {
	sessions   session.Store
	cookieName string
	logger     *slog.Logger
}

// NewGate creates an identity gate backed by the given session store.
func NewGate(sessions session.Store, cookieName string, logger *slog.Logger) *Gate {
	return &Gate{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger.With("component", "gate"),
	}
}

// ResolveIdentity loads the identity for the request's session cookie into the
// context. Anonymous requests pass through untouched; request handling never
// fails here, only at the Require* gates.
func (g *Gate) ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(g.cookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := g.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			// Unknown or expired token: treat the caller as anonymous.
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// RequireAuthenticated rejects anonymous requests with 401.
func (g *Gate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			web.RespondError(w, g.logger, http.StatusUnauthorized, "You must be logged in to perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			web.RespondError(w, g.logger, http.StatusUnauthorized, "You must be logged in to perform this action")
			return
		}
		if !identity.IsAdmin() {
			web.RespondError(w, g.logger, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}
