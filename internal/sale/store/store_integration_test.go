package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	cerrors "github.com/medialuna/farmshop/internal/client/errors"
	clientstore "github.com/medialuna/farmshop/internal/client/store"
	perrors "github.com/medialuna/farmshop/internal/product/errors"
	productstore "github.com/medialuna/farmshop/internal/product/store"
	serrors "github.com/medialuna/farmshop/internal/sale/errors"
)

const skipIntegrationTests = "FARMSHOP_SKIP_INTEGRATION_TESTS"

// SaleStoreSuite is a test suite for the SaleStore implementation.
type SaleStoreSuite struct {
	suite.Suite                             // Embedding testify suite for structured testing
	pgContainer *postgres.PostgresContainer // PostgreSQL container for integration tests
	dbPool      *pgxpool.Pool               // PostgreSQL connection pool
	store       SaleStore                   //
	products    productstore.ProductStore   // used to seed and inspect the catalog
	clients     clientstore.ClientStore     // used to seed the client directory
	logger      *slog.Logger                // Logger for the test suite
	ctx         context.Context             // Context for the test suite, used for cancellation and timeouts
}

// SetupSuite initializes the test suite by setting up a PostgreSQL container.
func (s *SaleStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "farmshop_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		// Wait for a specific log message indicating the database service is ready.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		// Ensure the container is ready to accept connections on the default PostgreSQL port.
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. create a new pgxpool instance using the connection string
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	// 3.1 Ping the database to ensure the connection is established
	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Database migration
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../../migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.products = productstore.NewPgStore(s.dbPool)
	s.clients = clientstore.NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for SaleStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *SaleStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating all domain tables.
func (s *SaleStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE sale_items, sales, products, clients RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

// TestSaleStoreIntegration runs the SaleStore integration tests.
func TestSaleStoreIntegration(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	// Run the test suite
	suite.Run(t, new(SaleStoreSuite))
}

// seedProduct is a helper to create a catalog entry for testing purposes.
func (s *SaleStoreSuite) seedProduct(name, price string, stock int32) *productstore.Product {
	s.T().Helper()
	product, err := s.products.Create(s.ctx, name, "test product", decimal.RequireFromString(price), stock)
	require.NoError(s.T(), err, "seedProduct helper failed")
	return product
}

// seedClient is a helper to create a client for testing purposes.
func (s *SaleStoreSuite) seedClient(name string) *clientstore.Client {
	s.T().Helper()
	client, err := s.clients.Create(s.ctx, name, "555-0100", "")
	require.NoError(s.T(), err, "seedClient helper failed")
	return client
}

func (s *SaleStoreSuite) stockOf(id uuid.UUID) int32 {
	s.T().Helper()
	product, err := s.products.FindByID(s.ctx, id)
	require.NoError(s.T(), err)
	return product.Stock
}

func (s *SaleStoreSuite) TestCreateSale() {
	s.SetupTest()
	// given
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	cheese := s.seedProduct("Goat cheese", "25.00", 8)

	// when
	sale, items, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{
		{ProductID: eggs.ID, Quantity: 3},
		{ProductID: cheese.ID, Quantity: 2},
	})

	// then
	require.NoError(s.T(), err, "CreateSale should not return an error")
	require.NotZero(s.T(), sale.ID)
	require.Equal(s.T(), client.ID, sale.ClientID)
	require.True(s.T(), decimal.RequireFromString("80.00").Equal(sale.Total),
		"total should be 3*10.00 + 2*25.00, got %s", sale.Total)
	require.NotZero(s.T(), sale.CreatedAt)

	require.Len(s.T(), items, 2)
	for _, item := range items {
		require.Equal(s.T(), sale.ID, item.SaleID)
		require.NotZero(s.T(), item.ID)
	}

	// stock was decremented atomically with the sale
	require.Equal(s.T(), int32(17), s.stockOf(eggs.ID))
	require.Equal(s.T(), int32(6), s.stockOf(cheese.ID))
}

func (s *SaleStoreSuite) TestCreateSale_InsufficientStock() {
	s.SetupTest()
	// given
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 40)

	// when
	sale, items, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{
		{ProductID: eggs.ID, Quantity: 50},
	})

	// then
	require.ErrorIs(s.T(), err, perrors.ErrInsufficientStock)
	require.Nil(s.T(), sale)
	require.Nil(s.T(), items)

	// nothing committed: stock untouched, no sale rows
	require.Equal(s.T(), int32(40), s.stockOf(eggs.ID))
	var count int
	require.NoError(s.T(), s.dbPool.QueryRow(s.ctx, "SELECT COUNT(*) FROM sales").Scan(&count))
	require.Zero(s.T(), count)
}

func (s *SaleStoreSuite) TestCreateSale_PartialStockFailureRollsBackEverything() {
	s.SetupTest()
	// given a cart where the first line fits but the second does not
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	cheese := s.seedProduct("Goat cheese", "25.00", 1)

	// when
	_, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{
		{ProductID: eggs.ID, Quantity: 3},
		{ProductID: cheese.ID, Quantity: 2},
	})

	// then neither product lost stock
	require.ErrorIs(s.T(), err, perrors.ErrInsufficientStock)
	require.Equal(s.T(), int32(20), s.stockOf(eggs.ID))
	require.Equal(s.T(), int32(1), s.stockOf(cheese.ID))
}

func (s *SaleStoreSuite) TestCreateSale_UnknownClient() {
	s.SetupTest()
	// given
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)

	// when
	_, _, err := s.store.CreateSale(s.ctx, uuid.New(), []CartItem{
		{ProductID: eggs.ID, Quantity: 1},
	})

	// then
	require.ErrorIs(s.T(), err, cerrors.ErrClientNotFound)
	require.Equal(s.T(), int32(20), s.stockOf(eggs.ID))
}

func (s *SaleStoreSuite) TestCreateSale_UnknownProduct() {
	s.SetupTest()
	// given
	client := s.seedClient("Ana Torres")

	// when
	_, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{
		{ProductID: uuid.New(), Quantity: 1},
	})

	// then
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)
}

func (s *SaleStoreSuite) TestFindByID() {
	s.SetupTest()
	// given
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	created, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{{ProductID: eggs.ID, Quantity: 2}})
	require.NoError(s.T(), err)

	// when
	sale, items, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), created.ID, sale.ID)
	require.True(s.T(), decimal.RequireFromString("20.00").Equal(sale.Total))
	require.Len(s.T(), items, 1)
	require.Equal(s.T(), "Eggs (dozen)", items[0].ProductName)
	require.True(s.T(), decimal.RequireFromString("20.00").Equal(items[0].Subtotal))
}

func (s *SaleStoreSuite) TestFindByID_NotFound() {
	s.SetupTest()
	_, _, err := s.store.FindByID(s.ctx, uuid.New())
	require.ErrorIs(s.T(), err, serrors.ErrSaleNotFound)
}

func (s *SaleStoreSuite) TestFindAll() {
	s.SetupTest()
	// given two sales for the same client
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	milk := s.seedProduct("Milk 1L", "2.50", 30)
	_, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{{ProductID: eggs.ID, Quantity: 1}})
	require.NoError(s.T(), err)
	_, _, err = s.store.CreateSale(s.ctx, client.ID, []CartItem{
		{ProductID: eggs.ID, Quantity: 2},
		{ProductID: milk.ID, Quantity: 1},
	})
	require.NoError(s.T(), err)

	// when
	summaries, err := s.store.FindAll(s.ctx)

	// then: newest first, annotated with client name and product breakdown
	require.NoError(s.T(), err)
	require.Len(s.T(), summaries, 2)
	require.Equal(s.T(), "Ana Torres", summaries[0].ClientName)
	require.Equal(s.T(), "Eggs (dozen) (2), Milk 1L (1)", summaries[0].Products)
	require.Equal(s.T(), "Eggs (dozen) (1)", summaries[1].Products)
	require.True(s.T(), decimal.RequireFromString("22.50").Equal(summaries[0].Total))
}

func (s *SaleStoreSuite) TestDeleteByID_RestoresStock() {
	s.SetupTest()
	// given
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	created, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{{ProductID: eggs.ID, Quantity: 5}})
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(15), s.stockOf(eggs.ID))

	// when
	require.NoError(s.T(), s.store.DeleteByID(s.ctx, created.ID))

	// then the stock is back and the sale is gone
	require.Equal(s.T(), int32(20), s.stockOf(eggs.ID))
	_, _, err = s.store.FindByID(s.ctx, created.ID)
	require.ErrorIs(s.T(), err, serrors.ErrSaleNotFound)
}

func (s *SaleStoreSuite) TestDeleteByID_NotFound() {
	s.SetupTest()
	err := s.store.DeleteByID(s.ctx, uuid.New())
	require.ErrorIs(s.T(), err, serrors.ErrSaleNotFound)
}

func (s *SaleStoreSuite) TestProductDeleteBlockedWhileSaleExists() {
	s.SetupTest()
	// given a product referenced by a sale
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	created, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{{ProductID: eggs.ID, Quantity: 1}})
	require.NoError(s.T(), err)

	// deleting the product must fail while the sale exists
	require.ErrorIs(s.T(), s.products.DeleteByID(s.ctx, eggs.ID), perrors.ErrProductReferenced)

	// voiding the sale unblocks the delete
	require.NoError(s.T(), s.store.DeleteByID(s.ctx, created.ID))
	require.NoError(s.T(), s.products.DeleteByID(s.ctx, eggs.ID))
}

func (s *SaleStoreSuite) TestClientDeleteBlockedWhileSaleExists() {
	s.SetupTest()
	// given a client referenced by a sale
	client := s.seedClient("Ana Torres")
	eggs := s.seedProduct("Eggs (dozen)", "10.00", 20)
	_, _, err := s.store.CreateSale(s.ctx, client.ID, []CartItem{{ProductID: eggs.ID, Quantity: 1}})
	require.NoError(s.T(), err)

	// then
	require.ErrorIs(s.T(), s.clients.DeleteByID(s.ctx, client.ID), cerrors.ErrClientReferenced)
}
