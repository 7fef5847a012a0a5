// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrEntityNotFound", err: ErrEntityNotFound, expected: "entity not found"},
		{name: "ErrTransitionRejected", err: ErrTransitionRejected, expected: "transition rejected"},
		{name: "ErrDispatchQueueFull", err: ErrDispatchQueueFull, expected: "dispatch queue full"},
		{name: "ErrMissingSignature", err: ErrMissingSignature, expected: "missing signature"},
		{name: "ErrInvalidSignature", err: ErrInvalidSignature, expected: "invalid signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errorVars := []error{
		ErrEntityNotFound,
		ErrTransitionRejected,
		ErrDispatchQueueFull,
		ErrMissingSignature,
		ErrInvalidSignature,
	}

	for i, err1 := range errorVars {
		for j, err2 := range errorVars {
			if i != j {
				assert.False(t, errors.Is(err1, err2), "%v and %v should be distinct", err1, err2)
			}
		}
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{name: "validation", err: NewValidationError("bad payload"), expected: ErrorTypeValidation},
		{name: "not found", err: NewNotFoundError("missing"), expected: ErrorTypeNotFound},
		{name: "conflict", err: NewConflictError("modified"), expected: ErrorTypeConflict},
		{name: "internal", err: NewInternalError("boom"), expected: ErrorTypeInternal},
		{name: "unavailable", err: NewUnavailableError("down"), expected: ErrorTypeUnavailable},
		{name: "unauthorized", err: NewUnauthorizedError("bad signature"), expected: ErrorTypeUnauthorized},
		{name: "wrapped domain error", err: fmt.Errorf("outer: %w", NewUnauthorizedError("inner")), expected: ErrorTypeUnauthorized},
		{name: "plain error falls back to internal", err: errors.New("plain"), expected: ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorType(tt.err))
		})
	}
}

func TestDomainErrorMessageAndUnwrap(t *testing.T) {
	err := NewUnauthorizedError("signature mismatch", ErrInvalidSignature)
	assert.Equal(t, "signature mismatch: invalid signature", err.Error())
	assert.ErrorIs(t, err, ErrInvalidSignature)

	bare := NewValidationError("missing field")
	assert.Equal(t, "missing field", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
