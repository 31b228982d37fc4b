package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medialuna/farmshop/internal/auth"
	"github.com/medialuna/farmshop/internal/auth/session"
	clientservice "github.com/medialuna/farmshop/internal/client/service"
	"github.com/medialuna/farmshop/internal/sale/service"
	"github.com/medialuna/farmshop/pkg/web"
)

const testCookie = "farmshop_session"

// newGatedRouter wires the sale, product and client routes behind a gate
// backed by an in-memory session store, mirroring the production middleware
// chain.
func newGatedRouter(t *testing.T, sessions session.Store) chi.Router {
	t.Helper()
	gate := NewGate(sessions, testCookie, discardLogger())
	mux := chi.NewRouter()
	mux.Use(gate.ResolveIdentity)
	NewSaleHandler(&mockSaleService{sale: &service.SaleDto{ID: uuid.New()}}, discardLogger()).RegisterRoutes(mux, gate)
	NewProductHandler(&mockProductService{}, discardLogger()).RegisterRoutes(mux, gate)
	NewClientHandler(&mockClientService{client: &clientservice.ClientDto{ID: uuid.New(), Name: "Test User"}}, discardLogger()).RegisterRoutes(mux, gate)
	return mux
}

func login(t *testing.T, sessions session.Store, role auth.Role) *http.Cookie {
	t.Helper()
	token, err := sessions.Create(context.Background(), auth.Identity{
		UserID: uuid.New(), Name: "Test User", Email: "user@example.com", Role: role,
	})
	require.NoError(t, err)
	return &http.Cookie{Name: testCookie, Value: token}
}

func Test_Gate_SaleCreateRequiresLogin(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mux := newGatedRouter(t, sessions)
	body := `{"client_id":"` + uuid.NewString() + `","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`

	// anonymous
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, toJSON(t, web.MutationResult{Success: false, Message: "You must be logged in to perform this action"}), rr.Body.String())

	// employee session
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	req.AddCookie(login(t, sessions, auth.RoleEmployee))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func Test_Gate_SaleDeleteRequiresAdmin(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mux := newGatedRouter(t, sessions)
	target := "/api/v1/sales/" + uuid.NewString()

	// employees cannot void sales
	req := httptest.NewRequest(http.MethodDelete, target, nil)
	req.AddCookie(login(t, sessions, auth.RoleEmployee))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, toJSON(t, web.MutationResult{Success: false, Message: "You do not have permission to perform this action"}), rr.Body.String())

	// admins can
	req = httptest.NewRequest(http.MethodDelete, target, nil)
	req.AddCookie(login(t, sessions, auth.RoleAdmin))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_Gate_CatalogReadIsPublic(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mux := newGatedRouter(t, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_Gate_ProductMutationRequiresAdmin(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mux := newGatedRouter(t, sessions)
	body := `{"name":"Goat cheese","description":"Soft, 200g","price":"7.25","stock":10}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	req.AddCookie(login(t, sessions, auth.RoleEmployee))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func Test_Gate_ClientMutationRequiresAdmin(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mux := newGatedRouter(t, sessions)
	body := `{"name":"Maria Lopez","phone":"600111222","email":"maria@example.com"}`

	// employees cannot register clients directly
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader(body))
	req.AddCookie(login(t, sessions, auth.RoleEmployee))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, toJSON(t, web.MutationResult{Success: false, Message: "You do not have permission to perform this action"}), rr.Body.String())

	// nor edit them
	req = httptest.NewRequest(http.MethodPut, "/api/v1/clients/"+uuid.NewString(), strings.NewReader(body))
	req.AddCookie(login(t, sessions, auth.RoleEmployee))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// admins can
	req = httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader(body))
	req.AddCookie(login(t, sessions, auth.RoleAdmin))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func Test_Gate_ClientSelfLookupRequiresLoginOnly(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mux := newGatedRouter(t, sessions)

	// anonymous
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/me", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// employees resolve their own client record
	req = httptest.NewRequest(http.MethodPost, "/api/v1/clients/me", nil)
	req.AddCookie(login(t, sessions, auth.RoleEmployee))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_Gate_ExpiredSessionIsAnonymous(t *testing.T) {
	sessions := session.NewMemoryStore(time.Nanosecond)
	mux := newGatedRouter(t, sessions)
	cookie := login(t, sessions, auth.RoleAdmin)
	time.Sleep(time.Millisecond)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sales/"+uuid.NewString(), nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
