package domain

import (
	"fmt"
	"time"
)

// EngineError represents a standardized error response from the
// reconciliation engine.
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel behind structural failures so callers can
// test with errors.Is.
func (e *EngineError) Unwrap() error {
	switch e.Code {
	case ErrEmptyInputBatch:
		return ErrEmptyBatch
	case ErrNoInputObservations:
		return ErrNoObservations
	default:
		return nil
	}
}

// Error codes for different failure scenarios. Only the structural codes
// abort a run; parsing and normalization failures are absorbed locally and
// downgrade the affected biomarker's status to UNKNOWN.
const (
	ErrEmptyInputBatch        = "EMPTY_INPUT_BATCH"
	ErrNoInputObservations    = "NO_INPUT_OBSERVATIONS"
	ErrMalformedRange         = "MALFORMED_RANGE_EXPRESSION"
	ErrUnresolvableUnit       = "UNRESOLVABLE_UNIT"
	ErrAmbiguousIdentityMatch = "AMBIGUOUS_IDENTITY_MATCH"
	ErrRegistryError          = "REGISTRY_ERROR"
	ErrCatalogError           = "CATALOG_ERROR"
	ErrDatabaseError          = "DATABASE_ERROR"
	ErrValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrInternalServer         = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
