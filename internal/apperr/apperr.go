// Package apperr defines the error taxonomy shared by services and handlers.
// Services return these; handlers map them to HTTP statuses and never invent
// their own business errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrUserNotFound = errors.New("user not found")
	ErrForbidden    = errors.New("forbidden")

	// The specific authorization rejections wrap ErrForbidden, so one
	// errors.Is(err, ErrForbidden) covers the whole family.
	ErrNotOwner          = fmt.Errorf("%w: you do not own this product", ErrForbidden)
	ErrOnlyUsersPurchase = fmt.Errorf("%w: only users can purchase products", ErrForbidden)
	ErrOnlyVillagers     = fmt.Errorf("%w: only villagers can view low stock products", ErrForbidden)

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError reports bad input shape or range, caught at the boundary
// before any storage work happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on '%s': %s", e.Field, e.Message)
	}
	return e.Message
}

// Validation builds a ValidationError with a plain message.
func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError rejects a purchase larger than the stock on hand.
// Available is read inside the same transaction as the rejected decrement.
type InsufficientStockError struct {
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Only %gkg available.", e.Available)
}

// StorageError wraps a failed store call or commit. The wrapped transaction
// has been rolled back; callers may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it already carries taxonomy
// meaning (sentinels and typed errors pass through unchanged).
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ise *InsufficientStockError
	var ve *ValidationError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) || errors.As(err, &ise) || errors.As(err, &ve) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// HTTPStatus maps a taxonomy error to its user-facing status code.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var ise *InsufficientStockError
	switch {
	case errors.As(err, &ve), errors.As(err, &ise):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
