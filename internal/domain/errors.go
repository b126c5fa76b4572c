package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound record not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput invalid input data
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthenticated caller is not authenticated
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConfiguration required configuration is missing
	ErrConfiguration = errors.New("configuration error")

	// ErrSignatureInvalid webhook signature verification failed
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

// ConfigurationError reports a missing or unusable piece of configuration,
// such as a tenant without a payment-processor credential.
type ConfigurationError struct {
	Subject string
	Message string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Subject, e.Message)
}

// Is reports whether this is a configuration error
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(subject, message string) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Message: message}
}

// ValidationError describes one invalid request field
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a set of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is reports whether the set is an invalid-input error
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add appends a validation error
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any error was recorded
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields returns the offending field names
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// ExternalServiceError represents a failure reported by an external service
type ExternalServiceError struct {
	Service     string
	Code        string
	Message     string
	OriginalErr error
}

// Error implements the error interface
func (e *ExternalServiceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s service error [%s]: %s: %v", e.Service, e.Code, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s service error [%s]: %s", e.Service, e.Code, e.Message)
}

// Unwrap returns the original error
func (e *ExternalServiceError) Unwrap() error {
	return e.OriginalErr
}

// NewExternalServiceError creates a new external service error
func NewExternalServiceError(service, code, message string, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:     service,
		Code:        code,
		Message:     message,
		OriginalErr: err,
	}
}
