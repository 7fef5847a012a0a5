// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"encoding/json"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
)

// EnrichmentVerifier authenticates enrichment callbacks with an optional shared secret header.
type EnrichmentVerifier struct {
	secret  string
	schemas *SchemaValidator
}

// NewEnrichmentVerifier creates a verifier; an empty secret disables the check.
func NewEnrichmentVerifier(secret string, schemas *SchemaValidator) *EnrichmentVerifier {
	return &EnrichmentVerifier{secret: secret, schemas: schemas}
}

// Provider returns the enrichment provider
func (v *EnrichmentVerifier) Provider() models.Provider {
	return models.ProviderEnrichment
}

// Handshake is never required by the enrichment provider
func (v *EnrichmentVerifier) Handshake(domain.WebhookRequest) (*domain.HandshakeReply, bool) {
	return nil, false
}

// Verify checks the shared secret and decodes the batch callback.
func (v *EnrichmentVerifier) Verify(ctx context.Context, req domain.WebhookRequest) ([]models.InboundEvent, error) {
	if v.secret == "" {
		logInsecure(ctx, v.Provider())
	} else {
		supplied := req.Header.Get(constants.EnrichmentSecretHeader)
		if supplied == "" {
			return nil, unauthorized(v.Provider(), domain.ErrMissingSignature)
		}
		if !secretsEqual(v.secret, supplied) {
			return nil, unauthorized(v.Provider(), domain.ErrInvalidSignature)
		}
	}

	if err := v.schemas.Validate(v.Provider(), req.Body); err != nil {
		return nil, err
	}

	var payload models.EnrichmentWebhookPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, domain.NewValidationError("invalid enrichment payload", err)
	}

	event := models.InboundEvent{
		Provider:        v.Provider(),
		ProviderEventID: utils.Coalesce(payload.EventID, contentID(payload.RequestID, payload.Status, payload.EventType)),
		EventType:       utils.Coalesce(payload.EventType, payload.Status),
		Payload:         json.RawMessage(req.Body),
		ReceivedAt:      req.ReceivedAt,
		Enrichment:      &payload,
	}
	return []models.InboundEvent{event}, nil
}
