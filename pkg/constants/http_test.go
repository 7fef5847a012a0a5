// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"dev", EnvironmentDev},
		{"staging", EnvironmentStaging},
		{"prod", EnvironmentProd},
		{"", EnvironmentProd},
		{"production", EnvironmentProd},
		{"DEV", EnvironmentProd},
	}

	for _, tt := range tests {
		t.Run("env "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEnvironment(tt.input))
		})
	}
}

func TestRequestIDContextID(t *testing.T) {
	assert.Equal(t, "X-REQUEST-ID", string(RequestIDContextID))
	assert.Equal(t, RequestIDHeader, string(RequestIDContextID))
}

func TestWebhookRoutesSharePrefix(t *testing.T) {
	for _, path := range []string{WebhookPathBot, WebhookPathCalendarGoogle, WebhookPathCalendarMicrosoft, WebhookPathEnrichment} {
		assert.True(t, strings.HasPrefix(path, WebhookPathPrefix), path)
	}
}

func TestGoogleHeadersAreCanonical(t *testing.T) {
	// http.Header lookups canonicalize keys, so constants must survive the round trip
	h := http.Header{}
	h.Set(GoogleResourceStateHeader, "sync")
	assert.Equal(t, "sync", h.Get("x-goog-resource-state"))
}
