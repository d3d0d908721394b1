package stockledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrAlreadyExists = errors.New("stockledger: already exists")
	ErrInvalidInput  = errors.New("stockledger: invalid input")

	// Lookup errors
	ErrSKUNotFound     = errors.New("stockledger: sku not found")
	ErrProductNotFound = errors.New("stockledger: product not found")

	// Business rule errors
	ErrInsufficientStock = errors.New("stockledger: insufficient stock")
	ErrSKUInactive       = errors.New("stockledger: sku is inactive")
	ErrProductInactive   = errors.New("stockledger: product is inactive")

	// Concurrency errors
	ErrVersionConflict = errors.New("stockledger: version conflict")

	// Store errors
	ErrStoreClosed     = errors.New("stockledger: store is closed")
	ErrMigrationFailed = errors.New("stockledger: migration failed")
)

// Error codes surfaced to callers that translate failures into API responses.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeInternal          = "INTERNAL"
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("stockledger: validation failed for %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// InsufficientStockError reports a mutation that needed more units than the
// limiting quantity holds. Limiting names that quantity: "available" for
// reservations and raw removals, "reserved" for fulfilment, "stock" for
// stock-out guards.
type InsufficientStockError struct {
	SKUID     string
	Requested int64
	Limit     int64
	Limiting  string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stockledger: insufficient stock for %s: requested %d, %s %d",
		e.SKUID, e.Requested, e.Limiting, e.Limit)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// BusinessRuleError wraps a rule sentinel with a caller-facing message.
type BusinessRuleError struct {
	Err     error
	Message string
}

func (e *BusinessRuleError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *BusinessRuleError) Unwrap() error { return e.Err }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "stockledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("stockledger: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSKUNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsBusinessRule returns true if the error rejects a well-formed request
// because of current state.
func IsBusinessRule(err error) bool {
	var br *BusinessRuleError
	return errors.As(err, &br) ||
		errors.Is(err, ErrSKUInactive) ||
		errors.Is(err, ErrProductInactive) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// CodeOf maps err onto the stable error code taxonomy.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case IsNotFound(err):
		return CodeNotFound
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrVersionConflict):
		return CodeVersionConflict
	case IsBusinessRule(err):
		return CodeBusinessRule
	default:
		return CodeInternal
	}
}
