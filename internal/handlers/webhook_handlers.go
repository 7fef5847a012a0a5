// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
)

// WebhookIntake processes one verified provider callback.
type WebhookIntake interface {
	HandleWebhook(ctx context.Context, provider models.Provider, req domain.WebhookRequest) (*service.IntakeResponse, error)
	ServiceReady() bool
}

// WebhookHandler serves the provider webhook routes.
type WebhookHandler struct {
	intake WebhookIntake
}

// NewWebhookHandler creates a WebhookHandler
func NewWebhookHandler(intake WebhookIntake) *WebhookHandler {
	return &WebhookHandler{intake: intake}
}

func (h *WebhookHandler) HandlerReady() bool {
	return h.intake.ServiceReady()
}

// Register mounts a route per provider on mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	routes := map[string]models.Provider{
		constants.WebhookPathBot:               models.ProviderBot,
		constants.WebhookPathCalendarGoogle:    models.ProviderCalendarGoogle,
		constants.WebhookPathCalendarMicrosoft: models.ProviderCalendarMicrosoft,
		constants.WebhookPathEnrichment:        models.ProviderEnrichment,
	}
	for path, provider := range routes {
		mux.Handle(http.MethodPost+" "+path, h.Handle(provider))
	}
}

type receivedResponse struct {
	Received bool `json:"received"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handle returns the handler for one provider. Verified deliveries are
// acknowledged with 200 whatever their processing outcome.
func (h *WebhookHandler) Handle(provider models.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.AppendCtx(r.Context(), slog.String(logging.ProviderKey, string(provider)))

		body, ok := middleware.GetRawBodyFromContext(ctx)
		if !ok {
			var err error
			body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, middleware.DefaultMaxWebhookBodyBytes))
			if err != nil {
				writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
				return
			}
		}

		resp, err := h.intake.HandleWebhook(ctx, provider, domain.WebhookRequest{
			Body:       body,
			Header:     r.Header,
			Query:      r.URL.Query(),
			ReceivedAt: time.Now().UTC(),
		})
		if err != nil {
			status := statusForError(err)
			writeJSON(ctx, w, status, errorResponse{Error: http.StatusText(status)})
			return
		}

		if resp.Handshake != nil {
			w.Header().Set(constants.ContentTypeHeader, resp.Handshake.ContentType)
			w.WriteHeader(resp.Handshake.StatusCode)
			if _, err := w.Write(resp.Handshake.Body); err != nil {
				slog.ErrorContext(ctx, "failed to write handshake response", logging.ErrKey, err)
			}
			return
		}

		writeJSON(ctx, w, http.StatusOK, receivedResponse{Received: true})
	}
}

// statusForError maps intake errors to the provider-facing status code.
func statusForError(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to write response", logging.ErrKey, err)
	}
}
