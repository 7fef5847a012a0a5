// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	ready := func() bool { return true }
	notReady := func() bool { return false }

	tests := []struct {
		name       string
		path       string
		checks     []ReadinessCheck
		wantStatus int
		wantBody   string
	}{
		{"livez ignores checks", "/livez", []ReadinessCheck{{Name: "nats", Ready: notReady}}, http.StatusOK, "OK\n"},
		{"readyz with no checks", "/readyz", nil, http.StatusOK, "OK\n"},
		{"readyz all ready", "/readyz", []ReadinessCheck{{Name: "nats", Ready: ready}, {Name: "dispatcher", Ready: ready}}, http.StatusOK, "OK\n"},
		{"readyz names the failing check", "/readyz", []ReadinessCheck{{Name: "nats", Ready: ready}, {Name: "dispatcher", Ready: notReady}}, http.StatusServiceUnavailable, "dispatcher not ready\n"},
		{"readyz nil check is not ready", "/readyz", []ReadinessCheck{{Name: "store"}}, http.StatusServiceUnavailable, "store not ready\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewHealthHandler(tt.checks...).Register(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
