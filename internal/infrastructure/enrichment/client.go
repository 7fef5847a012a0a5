// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package enrichment is the outbound client for the contact enrichment provider.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for enrichment requests
	DefaultClientTimeout = 30 * time.Second
	// DefaultMaxRetries is the number of retries for 5xx and 429 responses
	DefaultMaxRetries     = 2
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second

	enrichPath = "/v1/enrich/bulk"
)

// Config holds the configuration for the enrichment client. OAuth client
// credentials take precedence over the API key when both are set.
type Config struct {
	BaseURL           string
	APIKey            string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthTokenURL     string
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// Client submits enrichment requests to the provider
type Client struct {
	httpClient *http.Client
	config     Config
}

// Ensure that Client implements domain.EnrichmentProvider
var _ domain.EnrichmentProvider = (*Client)(nil)

// NewClient creates a new enrichment client
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, domain.NewValidationError("enrichment API URL is required")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}

	// token requests go through the traced transport as well
	base := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: config.Timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	var tokenSource oauth2.TokenSource
	switch {
	case config.OAuthClientID != "":
		oauthConfig := &clientcredentials.Config{
			ClientID:     config.OAuthClientID,
			ClientSecret: config.OAuthClientSecret,
			TokenURL:     config.OAuthTokenURL,
		}
		tokenSource = oauthConfig.TokenSource(ctx)
	case config.APIKey != "":
		tokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.APIKey, TokenType: "Bearer"})
	default:
		return nil, domain.NewValidationError("enrichment API key or OAuth client credentials are required")
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Timeout = config.Timeout

	return &Client{
		httpClient: httpClient,
		config:     config,
	}, nil
}

// RequestEnrichment submits a bulk enrichment request and returns the
// provider-issued request id.
func (c *Client) RequestEnrichment(ctx context.Context, req models.EnrichmentAPIRequest) (*models.EnrichmentAPIResponse, error) {
	if len(req.People) == 0 {
		return nil, domain.NewValidationError("at least one person is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal request", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, enrichPath, body)
	if err != nil {
		return nil, err
	}

	var result models.EnrichmentAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.NewInternalError("failed to parse response", err)
	}
	if result.RequestID == "" {
		return nil, domain.NewInternalError("enrichment provider returned no request id")
	}
	return &result, nil
}

// doRequest performs the request, retrying server errors and rate limiting.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := c.config.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, domain.NewUnavailableError("enrichment request cancelled", ctx.Err())
			case <-time.After(c.backoff(attempt)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, domain.NewInternalError("failed to create request", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		slog.DebugContext(ctx, "enrichment API request", "method", method, "path", path, "attempt", attempt+1)

		statusCode, respBody, err := c.execute(httpReq)
		if err != nil {
			lastErr = domain.NewUnavailableError("enrichment service request failed", err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, lastErr
			}
			slog.WarnContext(ctx, "enrichment API request failed", logging.ErrKey, err, "attempt", attempt+1)
			continue
		}

		if statusCode >= 200 && statusCode < 300 {
			return respBody, nil
		}

		lastErr = mapHTTPError(statusCode, respBody)
		slog.WarnContext(ctx, "enrichment API response error",
			"status_code", statusCode,
			"body", string(respBody),
			"attempt", attempt+1,
		)
		if !shouldRetry(statusCode) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *Client) execute(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// backoff returns the exponential delay for attempt with ±25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.config.InitialBackoff) * math.Pow(2, float64(attempt-1))
	if time.Duration(delay) > c.config.MaxBackoff {
		delay = float64(c.config.MaxBackoff)
	}
	jitter := delay * 0.25 * (rand.Float64()*2 - 1)
	return time.Duration(delay + jitter)
}

func shouldRetry(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

func mapHTTPError(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.NewUnauthorizedError("enrichment provider rejected credentials: " + message)
	case statusCode == http.StatusNotFound:
		return domain.NewNotFoundError("enrichment endpoint not found: " + message)
	case statusCode == http.StatusConflict:
		return domain.NewConflictError("enrichment request conflict: " + message)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return domain.NewUnavailableError("enrichment provider unavailable: " + message)
	default:
		return domain.NewValidationError("enrichment request rejected: " + message)
	}
}
