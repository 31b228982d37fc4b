// Package errors provides custom error types for client-directory operations.
package errors

import "errors"

var ErrClientNotFound = errors.New("client not found")

// ErrClientReferenced is returned when a delete is blocked because sales still
// reference the client.
var ErrClientReferenced = errors.New("client is referenced by existing sales")

var ErrEmailTaken = errors.New("a client with this email already exists")
