// Package service provides the implementation of client-directory business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medialuna/farmshop/internal/client/store"
)

// ClientService defines the methods for managing the client directory.
type ClientService interface {
	// FindAll returns all clients sorted by name ascending.
	FindAll(ctx context.Context) ([]ClientDto, error)

	// FindByID retrieves a single client by its unique identifier.
	// Returns ErrClientNotFound if no client exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ClientDto, error)

	// Create adds a new client to the directory.
	Create(ctx context.Context, client ClientCreateDto) (*ClientDto, error)

	// Update modifies an existing client's details.
	// Returns ErrClientNotFound if no client exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, client ClientCreateDto) (*ClientDto, error)

	// DeleteByID removes a client by its ID. Returns ErrClientReferenced
	// if the client is referenced by any sale.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// FindOrCreateByEmail binds an authenticated user to a client record,
	// creating one with an empty phone when no client carries the email yet.
	FindOrCreateByEmail(ctx context.Context, email, fallbackName string) (*ClientDto, error)
}

// Service implements ClientService and provides methods to manage clients.
type Service struct {
	repository store.ClientStore
}

// NewService creates a new instance of ClientService with the provided repository.
func NewService(repo store.ClientStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ClientCreateDto represents the data transfer object for creating or updating a client.
// Phone is mandatory on direct registration; clients auto-created from a
// logged-in identity bypass this DTO.
type ClientCreateDto struct {
	Name  string `json:"name"  validate:"required,min=3,max=100"`
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// ClientDto represents the data transfer object for a client.
type ClientDto struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	CreatedAt string    `json:"created_at"`
}

// FindAll retrieves the directory and returns it as ClientDtos.
func (s *Service) FindAll(ctx context.Context) ([]ClientDto, error) {
	clients, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	clientDtos := make([]ClientDto, len(clients))
	for i, item := range clients {
		clientDtos[i] = *toDto(&item)
	}
	return clientDtos, nil
}

// FindByID retrieves a client by its ID and returns it as a ClientDto.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ClientDto, error) {
	client, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client by ID %s: %w", id, err)
	}
	return toDto(client), nil
}

// Create creates a new client and returns it as a ClientDto.
func (s *Service) Create(ctx context.Context, client ClientCreateDto) (*ClientDto, error) {
	created, err := s.repository.Create(ctx, client.Name, client.Phone, client.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return toDto(created), nil
}

// Update modifies an existing client's details and returns the updated client.
func (s *Service) Update(ctx context.Context, id uuid.UUID, client ClientCreateDto) (*ClientDto, error) {
	updated, err := s.repository.Update(ctx, id, client.Name, client.Phone, client.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to update client with ID %s: %w", id, err)
	}
	return toDto(updated), nil
}

// DeleteByID deletes a client by its ID.
// Returns ErrClientReferenced if any sale references the client.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return s.repository.DeleteByID(ctx, id)
}

// FindOrCreateByEmail binds an identity to a client record by email.
func (s *Service) FindOrCreateByEmail(ctx context.Context, email, fallbackName string) (*ClientDto, error) {
	client, err := s.repository.FindOrCreateByEmail(ctx, email, fallbackName)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create client for email %s: %w", email, err)
	}
	return toDto(client), nil
}

// toDto converts a store.Client to a ClientDto.
func toDto(client *store.Client) *ClientDto {
	return &ClientDto{
		ID:        client.ID,
		Name:      client.Name,
		Phone:     client.Phone,
		Email:     client.Email,
		CreatedAt: client.CreatedAt.Format(time.RFC3339),
	}
}
