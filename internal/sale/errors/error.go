// Package errors provides custom error types for sale-ledger operations.
package errors

import "errors"

var ErrSaleNotFound = errors.New("sale not found")

var ErrMissingClient = errors.New("a sale requires a client")

var ErrEmptyCart = errors.New("a sale requires at least one cart item")

var ErrInvalidQuantity = errors.New("cart quantities must be greater than zero")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")
