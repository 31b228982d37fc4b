// Package errors provides custom error types for product-related operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")

// ErrProductReferenced is returned when a delete is blocked because sale line
// items still reference the product.
var ErrProductReferenced = errors.New("product is referenced by existing sales")

var ErrInsufficientStock = errors.New("insufficient stock")

var ErrInvalidPrice = errors.New("price must be greater than zero")
