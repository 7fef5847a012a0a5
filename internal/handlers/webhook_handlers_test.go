// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockIntake struct {
	mock.Mock
}

func (m *mockIntake) HandleWebhook(ctx context.Context, provider models.Provider, req domain.WebhookRequest) (*service.IntakeResponse, error) {
	args := m.Called(ctx, provider, req)
	resp, _ := args.Get(0).(*service.IntakeResponse)
	return resp, args.Error(1)
}

func (m *mockIntake) ServiceReady() bool {
	return m.Called().Bool(0)
}

func newTestMux(intake WebhookIntake) http.Handler {
	mux := http.NewServeMux()
	NewWebhookHandler(intake).Register(mux)
	return middleware.WebhookBodyCaptureMiddleware(middleware.DefaultMaxWebhookBodyBytes)(mux)
}

func TestWebhookHandler_Routes(t *testing.T) {
	tests := []struct {
		path     string
		provider models.Provider
	}{
		{constants.WebhookPathBot, models.ProviderBot},
		{constants.WebhookPathCalendarGoogle, models.ProviderCalendarGoogle},
		{constants.WebhookPathCalendarMicrosoft, models.ProviderCalendarMicrosoft},
		{constants.WebhookPathEnrichment, models.ProviderEnrichment},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			intake := &mockIntake{}
			intake.On("HandleWebhook", mock.Anything, tt.provider, mock.MatchedBy(func(req domain.WebhookRequest) bool {
				return string(req.Body) == `{"event":"x"}` && req.Header.Get("X-Test") == "1" && !req.ReceivedAt.IsZero()
			})).Return(&service.IntakeResponse{Events: 1}, nil).Once()

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"event":"x"}`))
			req.Header.Set("X-Test", "1")
			rec := httptest.NewRecorder()
			newTestMux(intake).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"received":true}`, rec.Body.String())
			intake.AssertExpectations(t)
		})
	}
}

func TestWebhookHandler_RejectsOtherMethods(t *testing.T) {
	intake := &mockIntake{}
	rec := httptest.NewRecorder()
	newTestMux(intake).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, constants.WebhookPathBot, nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	intake.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_Handshake(t *testing.T) {
	intake := &mockIntake{}
	intake.On("HandleWebhook", mock.Anything, models.ProviderCalendarMicrosoft, mock.MatchedBy(func(req domain.WebhookRequest) bool {
		return req.Query.Get(constants.MicrosoftValidationTokenParam) == "token-123"
	})).Return(&service.IntakeResponse{Handshake: &domain.HandshakeReply{
		StatusCode:  http.StatusOK,
		ContentType: constants.ContentTypeText,
		Body:        []byte("token-123"),
	}}, nil)

	req := httptest.NewRequest(http.MethodPost, constants.WebhookPathCalendarMicrosoft+"?"+constants.MicrosoftValidationTokenParam+"=token-123", nil)
	rec := httptest.NewRecorder()
	newTestMux(intake).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, constants.ContentTypeText, rec.Header().Get(constants.ContentTypeHeader))
	assert.Equal(t, "token-123", rec.Body.String())
}

func TestWebhookHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unauthorized", domain.NewUnauthorizedError("bad signature", domain.ErrInvalidSignature), http.StatusUnauthorized},
		{"validation", domain.NewValidationError("malformed payload"), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("no verifier"), http.StatusNotFound},
		{"unavailable", domain.NewUnavailableError("ledger unavailable"), http.StatusServiceUnavailable},
		{"internal", domain.NewInternalError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intake := &mockIntake{}
			intake.On("HandleWebhook", mock.Anything, models.ProviderBot, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			newTestMux(intake).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, constants.WebhookPathBot, strings.NewReader("{}")))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "signature", "error details are not echoed")
			assert.Equal(t, constants.ContentTypeJSON, rec.Header().Get(constants.ContentTypeHeader))
		})
	}
}

func TestWebhookHandler_ReadsBodyWithoutCapture(t *testing.T) {
	intake := &mockIntake{}
	intake.On("HandleWebhook", mock.Anything, models.ProviderBot, mock.MatchedBy(func(req domain.WebhookRequest) bool {
		return string(req.Body) == "payload"
	})).Return(&service.IntakeResponse{}, nil)

	rec := httptest.NewRecorder()
	NewWebhookHandler(intake).Handle(models.ProviderBot).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload")))

	assert.Equal(t, http.StatusOK, rec.Code)
	intake.AssertExpectations(t)
}

func TestWebhookHandler_HandlerReady(t *testing.T) {
	intake := &mockIntake{}
	intake.On("ServiceReady").Return(true).Once()
	intake.On("ServiceReady").Return(false).Once()

	h := NewWebhookHandler(intake)
	assert.True(t, h.HandlerReady())
	assert.False(t, h.HandlerReady())
}
