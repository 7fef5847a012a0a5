// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
)

// BotVerifier authenticates bot provider webhooks signed with the
// webhook-id / webhook-timestamp / webhook-signature header scheme.
type BotVerifier struct {
	key     []byte
	schemas *SchemaValidator
	now     func() time.Time
}

// NewBotVerifier creates a verifier for the given signing secret. An empty
// secret disables signature checks.
func NewBotVerifier(secret string, schemas *SchemaValidator) (*BotVerifier, error) {
	key, err := decodeBotSecret(secret)
	if err != nil {
		return nil, err
	}
	return &BotVerifier{key: key, schemas: schemas, now: time.Now}, nil
}

func decodeBotSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	if encoded, ok := strings.CutPrefix(secret, constants.BotSecretPrefix); ok {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid bot webhook secret: %w", err)
		}
		return key, nil
	}
	return []byte(secret), nil
}

// Provider returns the bot provider
func (v *BotVerifier) Provider() models.Provider {
	return models.ProviderBot
}

// Handshake is never required by the bot provider
func (v *BotVerifier) Handshake(domain.WebhookRequest) (*domain.HandshakeReply, bool) {
	return nil, false
}

// Verify checks the signature and decodes the status change.
func (v *BotVerifier) Verify(ctx context.Context, req domain.WebhookRequest) ([]models.InboundEvent, error) {
	if len(v.key) == 0 {
		logInsecure(ctx, v.Provider())
	} else if err := v.verifySignature(req); err != nil {
		return nil, unauthorized(v.Provider(), err)
	}

	if err := v.schemas.Validate(v.Provider(), req.Body); err != nil {
		return nil, err
	}

	var payload models.BotWebhookPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, domain.NewValidationError("invalid bot webhook payload", err)
	}

	eventID := req.Header.Get(constants.BotWebhookIDHeader)
	if eventID == "" {
		createdAt := ""
		if payload.Data.Status.CreatedAt != nil {
			createdAt = payload.Data.Status.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		eventID = contentID(payload.Data.BotID, payload.Data.Status.Code, createdAt)
	}

	event := models.InboundEvent{
		Provider:        v.Provider(),
		ProviderEventID: eventID,
		EventType:       payload.Event,
		TenantID:        botTenantID(payload.Data.Metadata),
		Payload:         json.RawMessage(req.Body),
		ReceivedAt:      req.ReceivedAt,
		Bot:             &payload,
	}
	return []models.InboundEvent{event}, nil
}

func (v *BotVerifier) verifySignature(req domain.WebhookRequest) error {
	id := req.Header.Get(constants.BotWebhookIDHeader)
	timestamp := req.Header.Get(constants.BotWebhookTimestampHeader)
	signatures := req.Header.Get(constants.BotWebhookSignatureHeader)
	if id == "" || timestamp == "" || signatures == "" {
		return domain.ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %w", err)
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > constants.BotTimestampTolerance || skew < -constants.BotTimestampTolerance {
		return fmt.Errorf("request timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(req.Body)
	expected := []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	// the header may carry several signatures during secret rotation
	for _, candidate := range strings.Fields(signatures) {
		version, signature, ok := strings.Cut(candidate, ",")
		if !ok || version != constants.BotSignatureVersion {
			continue
		}
		if hmac.Equal(expected, []byte(signature)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

// botTenantID reads the tenant this service attached when creating the bot.
func botTenantID(metadata map[string]any) *string {
	if len(metadata) == 0 {
		return nil
	}
	var meta models.BotMetadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &meta,
	})
	if err != nil || decoder.Decode(metadata) != nil || meta.TenantID == "" {
		return nil
	}
	return &meta.TenantID
}

// SignBotPayload produces a webhook-signature header value for body. It is
// used by tests and local tooling that replay provider deliveries.
func SignBotPayload(secret, id string, timestamp time.Time, body []byte) (string, error) {
	key, err := decodeBotSecret(secret)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + strconv.FormatInt(timestamp.Unix(), 10) + "."))
	mac.Write(body)
	return constants.BotSignatureVersion + "," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
