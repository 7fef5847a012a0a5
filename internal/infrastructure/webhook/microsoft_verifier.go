// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
)

// MicrosoftVerifier authenticates Microsoft Graph change notifications by client state.
type MicrosoftVerifier struct {
	clientState string
	schemas     *SchemaValidator
}

// NewMicrosoftVerifier creates a verifier; an empty client state disables the check.
func NewMicrosoftVerifier(clientState string, schemas *SchemaValidator) *MicrosoftVerifier {
	return &MicrosoftVerifier{clientState: clientState, schemas: schemas}
}

// Provider returns the Microsoft calendar provider
func (v *MicrosoftVerifier) Provider() models.Provider {
	return models.ProviderCalendarMicrosoft
}

// Handshake echoes the validationToken Graph sends when a subscription is created.
func (v *MicrosoftVerifier) Handshake(req domain.WebhookRequest) (*domain.HandshakeReply, bool) {
	token := req.Query.Get(constants.MicrosoftValidationTokenParam)
	if token == "" {
		return nil, false
	}
	return &domain.HandshakeReply{
		StatusCode:  http.StatusOK,
		ContentType: constants.ContentTypeText,
		Body:        []byte(token),
	}, true
}

// Verify checks every notification's client state and returns one event per
// notification. A single mismatch rejects the whole delivery. Client state is
// checked before the schema, so a malformed unauthenticated body gets 401.
func (v *MicrosoftVerifier) Verify(ctx context.Context, req domain.WebhookRequest) ([]models.InboundEvent, error) {
	var batch models.MicrosoftNotificationBatch
	if err := json.Unmarshal(req.Body, &batch); err != nil {
		return nil, domain.NewValidationError("invalid microsoft notification payload", err)
	}

	if v.clientState == "" {
		logInsecure(ctx, v.Provider())
	} else {
		for i, notification := range batch.Value {
			if notification.ClientState == "" {
				return nil, unauthorized(v.Provider(), domain.ErrMissingSignature)
			}
			if !secretsEqual(v.clientState, notification.ClientState) {
				return nil, unauthorized(v.Provider(), fmt.Errorf("notification %d: %w", i, domain.ErrInvalidSignature))
			}
		}
	}

	if err := v.schemas.Validate(v.Provider(), req.Body); err != nil {
		return nil, err
	}

	events := make([]models.InboundEvent, 0, len(batch.Value))
	for i := range batch.Value {
		notification := batch.Value[i]
		notification.ClientState = ""

		payload, err := json.Marshal(notification)
		if err != nil {
			return nil, domain.NewInternalError("failed to encode microsoft notification", err)
		}

		events = append(events, models.InboundEvent{
			Provider:        v.Provider(),
			ProviderEventID: microsoftEventID(notification, req.ReceivedAt, i),
			EventType:       microsoftEventType(notification),
			Payload:         payload,
			ReceivedAt:      req.ReceivedAt,
			Microsoft:       &notification,
		})
	}
	return events, nil
}

// microsoftEventID hashes the fields that identify one change; Graph has no
// delivery id. Only a resource etag pins a notification to one version of the
// resource; without one (lifecycle events, changes without resourceData) each
// delivery gets its own id and relies on the per-connection sync workflow id
// for idempotency.
func microsoftEventID(n models.MicrosoftChangeNotification, receivedAt time.Time, index int) string {
	parts := []string{n.SubscriptionID, n.ChangeType, n.Resource, n.LifecycleEvent, n.SubscriptionExpirationDateTime}
	if n.ResourceData != nil {
		parts = append(parts, n.ResourceData.ID, n.ResourceData.ODataEtag)
	}
	if n.ResourceData == nil || n.ResourceData.ODataEtag == "" {
		parts = append(parts, receivedAt.UTC().Format(time.RFC3339Nano), strconv.Itoa(index))
	}
	return contentID(parts...)
}

func microsoftEventType(n models.MicrosoftChangeNotification) string {
	if n.LifecycleEvent != "" {
		return "lifecycle." + n.LifecycleEvent
	}
	return n.ChangeType
}
