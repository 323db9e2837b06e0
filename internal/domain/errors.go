package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by stores and the query pipeline.
var (
	ErrNotFound      = errors.New("not found")
	ErrVoidDiagnosis = errors.New("diagnosis reports every level as unknown")
)

// InvalidConfigurationError reports a query or system configuration the
// pipeline cannot run with, e.g. an unrecognized modality combination
// policy. It aborts the current query and is surfaced to the caller; it is
// never retried.
type InvalidConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
}

// NewInvalidConfiguration creates a new InvalidConfigurationError.
func NewInvalidConfiguration(field, message string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Message: message}
}

// Error codes attached to API error responses.
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeQueryFailed    = "QUERY_FAILED"
	ErrCodeDatabaseError  = "DATABASE_ERROR"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError is the standardized error body returned by the HTTP layer.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with a UTC timestamp.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
