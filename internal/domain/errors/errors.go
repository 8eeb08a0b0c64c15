package errors

import (
	"errors"
	"fmt"
)

var (
	// Remote gateway errors
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrVersionConflict     = errors.New("transaction version conflict")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Transaction lifecycle errors
	ErrCheckoutExpired          = errors.New("checkout expired, please try again")
	ErrInvalidTransactionAmount = errors.New("invalid transaction amount")
	ErrTransactionNotPending    = errors.New("transaction is no longer pending")

	// Cart / order errors
	ErrCartNotFound    = errors.New("cart not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNoMapping       = errors.New("no transaction mapping for cart")
	ErrInvalidCurrency = errors.New("invalid currency")

	// Configuration errors
	ErrConfigIncomplete = errors.New("gateway configuration incomplete")

	// Cache errors
	ErrCacheMiss = errors.New("cache entry missing or invalid")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")

	// Return/redirect errors
	ErrInvalidReturnToken = errors.New("invalid return token")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsRecoverable reports whether a remote failure may be answered from a stale
// cache entry. Version conflicts and configuration problems never are.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrConfigIncomplete) {
		return false
	}
	return errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrInvalidTransactionAmount)
}
