// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"log/slog"
	"net/http"
)

// ReadinessCheck reports whether one dependency is ready
type ReadinessCheck struct {
	Name  string
	Ready func() bool
}

// HealthHandler serves /livez and /readyz.
type HealthHandler struct {
	checks []ReadinessCheck
}

// NewHealthHandler creates a HealthHandler over the given checks
func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Register mounts the health routes on mux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /livez", h.Livez)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Livez reports that the process is up.
func (h *HealthHandler) Livez(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// Readyz reports 503 until every check passes.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	for _, check := range h.checks {
		if check.Ready == nil || !check.Ready() {
			slog.WarnContext(ctx, "service not ready", "check", check.Name)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(check.Name + " not ready\n"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}
