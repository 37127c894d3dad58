package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTransactionFailed indicates a database error during a multi-step mutation.
	ErrTransactionFailed = errors.New("transaction failed")
)

// ValidationError carries field-level validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// InsufficientStockError names the product that could not cover a request.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// UserSafeMessage maps an error to text that can be shown to API clients.
// Infrastructure details stay in server logs.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr.Error()
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	if errors.Is(err, ErrNotFound) {
		return "requested resource was not found"
	}
	return "an internal error occurred"
}
