package domain

import (
	"errors"
	"fmt"
)

var (
	// -- Checkout --
	ErrEmptyCart = errors.New("cart is empty")

	// -- Resource state --
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")

	// -- Status machine --
	ErrInvalidTransition = errors.New("illegal status transition")
)

// InsufficientStockError fails an entire checkout when any single line
// requests more than the live stock. Nothing is committed.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// InvalidStatusError rejects an unrecognized order status value.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}
