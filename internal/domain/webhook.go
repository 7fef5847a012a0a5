// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// WebhookRequest is the provider callback as received over HTTP.
type WebhookRequest struct {
	Body       []byte
	Header     http.Header
	Query      url.Values
	ReceivedAt time.Time
}

// HandshakeReply is returned directly to a provider validation challenge.
type HandshakeReply struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// WebhookVerifier checks authenticity and shape of one provider's callbacks.
type WebhookVerifier interface {
	// Provider returns the provider this verifier handles.
	Provider() models.Provider

	// Handshake answers a subscription validation challenge. The second return
	// value is false when the request is not a challenge.
	Handshake(req WebhookRequest) (*HandshakeReply, bool)

	// Verify returns the typed events carried by the request. It fails with an
	// ErrorTypeUnauthorized error on bad credentials and ErrorTypeValidation on
	// malformed payloads.
	Verify(ctx context.Context, req WebhookRequest) ([]models.InboundEvent, error)
}

// WebhookVerifierRegistry resolves verifiers by provider.
type WebhookVerifierRegistry interface {
	GetVerifier(provider models.Provider) (WebhookVerifier, error)
	RegisterVerifier(verifier WebhookVerifier)
}
