// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
)

// GoogleResourceStateSync is the state Google sends once when a channel is opened.
const GoogleResourceStateSync = "sync"

var receivedBody = []byte(`{"received":true}`)

// GoogleVerifier authenticates Google Calendar push notifications by channel token.
type GoogleVerifier struct {
	channelToken string
	schemas      *SchemaValidator
}

// NewGoogleVerifier creates a verifier; an empty token disables the check.
func NewGoogleVerifier(channelToken string, schemas *SchemaValidator) *GoogleVerifier {
	return &GoogleVerifier{channelToken: channelToken, schemas: schemas}
}

// Provider returns the Google calendar provider
func (v *GoogleVerifier) Provider() models.Provider {
	return models.ProviderCalendarGoogle
}

// Handshake acknowledges the sync message Google sends when a channel is created.
func (v *GoogleVerifier) Handshake(req domain.WebhookRequest) (*domain.HandshakeReply, bool) {
	if req.Header.Get(constants.GoogleResourceStateHeader) != GoogleResourceStateSync {
		return nil, false
	}
	return &domain.HandshakeReply{
		StatusCode:  http.StatusOK,
		ContentType: constants.ContentTypeJSON,
		Body:        receivedBody,
	}, true
}

// Verify checks the channel token and builds the notification from the X-Goog-* headers.
func (v *GoogleVerifier) Verify(ctx context.Context, req domain.WebhookRequest) ([]models.InboundEvent, error) {
	notification := models.GoogleChannelNotification{
		ChannelID:         req.Header.Get(constants.GoogleChannelIDHeader),
		ChannelToken:      req.Header.Get(constants.GoogleChannelTokenHeader),
		ChannelExpiration: req.Header.Get(constants.GoogleChannelExpirationHeader),
		ResourceID:        req.Header.Get(constants.GoogleResourceIDHeader),
		ResourceState:     req.Header.Get(constants.GoogleResourceStateHeader),
		ResourceURI:       req.Header.Get(constants.GoogleResourceURIHeader),
		MessageNumber:     req.Header.Get(constants.GoogleMessageNumberHeader),
	}

	if v.channelToken == "" {
		logInsecure(ctx, v.Provider())
	} else if notification.ChannelToken == "" {
		return nil, unauthorized(v.Provider(), domain.ErrMissingSignature)
	} else if !secretsEqual(v.channelToken, notification.ChannelToken) {
		return nil, unauthorized(v.Provider(), domain.ErrInvalidSignature)
	}

	// the token is a credential and is not stored in the ledger
	notification.ChannelToken = ""
	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, domain.NewInternalError("failed to encode google notification", err)
	}
	if err := v.schemas.Validate(v.Provider(), payload); err != nil {
		return nil, err
	}

	event := models.InboundEvent{
		Provider:        v.Provider(),
		ProviderEventID: notification.ChannelID + ":" + notification.MessageNumber,
		EventType:       notification.ResourceState,
		Payload:         payload,
		ReceivedAt:      req.ReceivedAt,
		Google:          &notification,
	}
	return []models.InboundEvent{event}, nil
}
