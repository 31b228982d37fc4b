// Package app contains the application setup for the farm shop backend.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	authservice "github.com/medialuna/farmshop/internal/auth/service"
	"github.com/medialuna/farmshop/internal/auth/session"
	authstore "github.com/medialuna/farmshop/internal/auth/store"
	clientservice "github.com/medialuna/farmshop/internal/client/service"
	clientstore "github.com/medialuna/farmshop/internal/client/store"
	"github.com/medialuna/farmshop/internal/config"
	productservice "github.com/medialuna/farmshop/internal/product/service"
	productstore "github.com/medialuna/farmshop/internal/product/store"
	saleservice "github.com/medialuna/farmshop/internal/sale/service"
	salestore "github.com/medialuna/farmshop/internal/sale/store"
	"github.com/medialuna/farmshop/internal/transport/rest"
	pkgconfig "github.com/medialuna/farmshop/pkg/config"
	natsclient "github.com/medialuna/farmshop/pkg/nats"
	"github.com/medialuna/farmshop/pkg/server"
)

type Dependencies struct {
	AuthService    authservice.AuthService
	ProductService productservice.ProductService
	ClientService  clientservice.ClientService
	SaleService    saleservice.SaleService
	Sessions       session.Store
	Session        pkgconfig.SessionConfig
	Logger         *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, redisClient *redis.Client, js jetstream.JetStream, logger *slog.Logger, cfg *config.Config) *Dependencies {
	sessions := session.NewRedisStore(redisClient, cfg.Session.TTL)
	publisher := natsclient.NewNatsPublisher(js)

	return &Dependencies{
		AuthService:    authservice.NewService(authstore.NewPgStore(dbPool), sessions),
		ProductService: productservice.NewService(productstore.NewPgStore(dbPool)),
		ClientService:  clientservice.NewService(clientstore.NewPgStore(dbPool)),
		SaleService:    saleservice.NewService(salestore.NewPgStore(dbPool), publisher),
		Sessions:       sessions,
		Session:        cfg.Session,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the HTTP routes and middleware.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the application. Identity resolution
// runs on every request; role gates are applied per route group.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	gate := rest.NewGate(deps.Sessions, deps.Session.CookieName, deps.Logger)
	mux.Use(gate.ResolveIdentity)

	rest.NewAuthHandler(deps.AuthService, deps.Session, deps.Logger).RegisterRoutes(mux)
	rest.NewProductHandler(deps.ProductService, deps.Logger).RegisterRoutes(mux, gate)
	rest.NewClientHandler(deps.ClientService, deps.Logger).RegisterRoutes(mux, gate)
	rest.NewSaleHandler(deps.SaleService, deps.Logger).RegisterRoutes(mux, gate)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// SetupHttpServer creates and configures an HTTP server for the application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
