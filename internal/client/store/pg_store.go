package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	cerrors "github.com/medialuna/farmshop/internal/client/errors"
)

const (
	fkViolation     = "23503"
	uniqueViolation = "23505"
)

// PgStore implements ClientStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ClientStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const clientColumns = `id, name, phone, email, created_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAll retrieves all clients sorted by name ascending.
func (p *PgStore) FindAll(ctx context.Context) ([]Client, error) {
	rows, err := p.db.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to find all clients: %w", err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read clients: %w", err)
	}
	return clients, nil
}

// FindByID retrieves a client by its unique identifier.
// Returns ErrClientNotFound if no client exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	client, err := scanClient(p.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client by ID: %w", err)
	}
	return client, nil
}

// Create adds a new client to the directory.
func (p *PgStore) Create(ctx context.Context, name, phone, email string) (*Client, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO clients (name, phone, email) VALUES ($1, $2, $3) RETURNING `+clientColumns,
		name, phone, email)
	client, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, cerrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Update modifies an existing client's details.
// Returns ErrClientNotFound if no client exists with the given ID.
func (p *PgStore) Update(ctx context.Context, id uuid.UUID, name, phone, email string) (*Client, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE clients SET name = $2, phone = $3, email = $4 WHERE id = $1 RETURNING `+clientColumns,
		id, name, phone, email)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrClientNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, cerrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

// DeleteByID removes a client by its unique identifier. The referencing sales
// count is checked first so callers get a descriptive conflict; the foreign
// key constraint covers the race between check and delete.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	var refs int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE client_id = $1`, id).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count referencing sales: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%d sale(s) reference this client: %w", refs, cerrors.ErrClientReferenced)
	}

	tag, err := p.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return cerrors.ErrClientReferenced
		}
		return fmt.Errorf("failed to delete client by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cerrors.ErrClientNotFound
	}
	return nil
}

// FindOrCreateByEmail looks up a client by email, creating one when absent.
// ON CONFLICT DO NOTHING plus a re-select keeps the operation idempotent even
// when two requests race on the same email.
func (p *PgStore) FindOrCreateByEmail(ctx context.Context, email, fallbackName string) (*Client, error) {
	client, err := scanClient(p.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE email = $1`, email))
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to find client by email: %w", err)
	}

	row := p.db.QueryRow(ctx,
		`INSERT INTO clients (name, phone, email) VALUES ($1, '', $2)
		 ON CONFLICT (email) WHERE email <> '' DO NOTHING
		 RETURNING `+clientColumns,
		fallbackName, email)
	client, err = scanClient(row)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create client for email %s: %w", email, err)
	}

	// Lost the race: another request inserted the same email first.
	client, err = scanClient(p.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to re-select client by email: %w", err)
	}
	return client, nil
}
