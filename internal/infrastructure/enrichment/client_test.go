// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() models.EnrichmentAPIRequest {
	return models.EnrichmentAPIRequest{
		WebhookURL: "https://webhooks.example.com/webhooks/enrichment",
		People: []models.EnrichmentAPIPerson{
			{
				FirstName: "Ada",
				LastName:  "Lovelace",
				Email:     "ada@example.com",
				Custom:    models.EnrichmentCustomFields{CorrelationID: "corr-1", ContactUID: "c-1"},
			},
		},
	}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "missing url", config: Config{APIKey: "k"}, wantErr: true},
		{name: "missing credentials", config: Config{BaseURL: "https://api.example.com"}, wantErr: true},
		{name: "api key", config: Config{BaseURL: "https://api.example.com", APIKey: "k"}},
		{name: "oauth", config: Config{BaseURL: "https://api.example.com", OAuthClientID: "id", OAuthClientSecret: "s", OAuthTokenURL: "https://auth.example.com/token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultClientTimeout, client.config.Timeout)
			assert.Equal(t, DefaultMaxRetries, client.config.MaxRetries)
		})
	}
}

func TestClient_RequestEnrichment_APIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, enrichPath, r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		var got models.EnrichmentAPIRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "corr-1", got.People[0].Custom.CorrelationID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"request_id":"req-123"}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), Config{BaseURL: server.URL + "/", APIKey: "secret-key"})
	require.NoError(t, err)

	resp, err := client.RequestEnrichment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.RequestID)
}

func TestClient_RequestEnrichment_OAuth(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"oauth-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc(enrichPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"request_id":"req-456"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(context.Background(), Config{
		BaseURL:           server.URL,
		OAuthClientID:     "client",
		OAuthClientSecret: "secret",
		OAuthTokenURL:     server.URL + "/oauth/token",
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := client.RequestEnrichment(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "req-456", resp.RequestID)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestClient_RequestEnrichment_Errors(t *testing.T) {
	tests := []struct {
		name      string
		responses []int
		body      string
		wantErr   bool
		wantType  domain.ErrorType
		wantCalls int32
	}{
		{name: "bad request not retried", responses: []int{http.StatusBadRequest}, body: "invalid email", wantErr: true, wantType: domain.ErrorTypeValidation, wantCalls: 1},
		{name: "unauthorized", responses: []int{http.StatusUnauthorized}, wantErr: true, wantType: domain.ErrorTypeUnauthorized, wantCalls: 1},
		{name: "server error exhausts retries", responses: []int{500, 502, 503}, wantErr: true, wantType: domain.ErrorTypeUnavailable, wantCalls: 3},
		{name: "rate limited then ok", responses: []int{http.StatusTooManyRequests, http.StatusOK}, wantCalls: 2},
		{name: "empty request id", responses: []int{http.StatusOK}, body: `{}`, wantErr: true, wantType: domain.ErrorTypeInternal, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				status := tt.responses[min(n, len(tt.responses)-1)]
				w.WriteHeader(status)
				if status == http.StatusOK && tt.body == "" {
					_, _ = w.Write([]byte(`{"request_id":"req-ok"}`))
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(context.Background(), Config{
				BaseURL:        server.URL,
				APIKey:         "k",
				InitialBackoff: time.Millisecond,
				MaxBackoff:     2 * time.Millisecond,
			})
			require.NoError(t, err)

			resp, err := client.RequestEnrichment(context.Background(), testRequest())
			assert.Equal(t, tt.wantCalls, calls.Load())
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "req-ok", resp.RequestID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, domain.GetErrorType(err))
		})
	}
}

func TestClient_RequestEnrichment_NoPeople(t *testing.T) {
	client, err := NewClient(context.Background(), Config{BaseURL: "https://api.example.com", APIKey: "k"})
	require.NoError(t, err)

	_, err = client.RequestEnrichment(context.Background(), models.EnrichmentAPIRequest{})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}
