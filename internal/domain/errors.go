// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation   ErrorType = iota // Malformed webhook payloads (400 Bad Request)
	ErrorTypeNotFound                      // Entity not found errors (404 Not Found)
	ErrorTypeConflict                      // Revision conflicts on conditional updates (409 Conflict)
	ErrorTypeInternal                      // Internal server errors (500 Internal Server Error)
	ErrorTypeUnavailable                   // Store or broker unavailable (503 Service Unavailable)
	ErrorTypeUnauthorized                  // Webhook authenticity failures (401 Unauthorized)
)

// Sentinel errors shared across the ingestion pipeline.
var (
	// ErrEntityNotFound is returned when a webhook references an entity this service does not know.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrTransitionRejected is returned when a status would move an entity backwards.
	ErrTransitionRejected = errors.New("transition rejected")
	// ErrDispatchQueueFull is returned when the side-effect queue cannot accept more work.
	ErrDispatchQueueFull = errors.New("dispatch queue full")
	// ErrMissingSignature is returned when a provider request carries no signature.
	ErrMissingSignature = errors.New("missing signature")
	// ErrInvalidSignature is returned when a provider signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

// NewUnauthorizedError is used when a webhook fails signature, token or client state checks.
func NewUnauthorizedError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnauthorized, Message: message, Err: errors.Join(err...)}
}
