// Package errors provides custom error types for authentication operations.
package errors

import "errors"

var ErrUserNotFound = errors.New("user not found")

var ErrEmailRegistered = errors.New("this email is already registered")

// ErrInvalidCredentials covers both unknown users and wrong passwords so the
// login endpoint does not leak which accounts exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

var ErrSessionNotFound = errors.New("session not found or expired")

var ErrInvalidRole = errors.New("invalid role")
