// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// NatsCalendarConnectionRepository is the NATS KV store repository for calendar connections.
type NatsCalendarConnectionRepository struct {
	*NatsBaseRepository[models.CalendarConnection]
	keyBuilder *KeyBuilder
}

// NewNatsCalendarConnectionRepository creates a new NATS KV store repository for calendar connections.
func NewNatsCalendarConnectionRepository(kvStore INatsKeyValue) *NatsCalendarConnectionRepository {
	return &NatsCalendarConnectionRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.CalendarConnection](kvStore, "calendar connection"),
		keyBuilder:         NewKeyBuilder(),
	}
}

func channelLookupType(provider models.Provider) (string, error) {
	switch provider {
	case models.ProviderCalendarGoogle:
		return KeyPrefixLookupGoogleChannel, nil
	case models.ProviderCalendarMicrosoft:
		return KeyPrefixLookupMicrosoftSub, nil
	}
	return "", domain.NewValidationError(fmt.Sprintf("provider %s has no calendar channels", provider))
}

// IsReady checks if the repository is ready
func (r *NatsCalendarConnectionRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new connection and claims its channel id.
func (r *NatsCalendarConnectionRepository) Create(ctx context.Context, connection *models.CalendarConnection) error {
	lookupType, err := channelLookupType(connection.Provider)
	if err != nil {
		return err
	}
	if connection.ChannelID == "" {
		return domain.NewValidationError("channel id is required")
	}
	if connection.UID == "" {
		connection.UID = uuid.New().String()
	}
	if connection.CreatedAt == nil {
		now := time.Now().UTC()
		connection.CreatedAt = &now
		connection.UpdatedAt = &now
	}

	if err := r.CreateLookup(ctx, r.keyBuilder.LookupKey(lookupType, connection.ChannelID), connection.UID); err != nil {
		return err
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.EntityKey(KeyPrefixCalendarConnection, connection.UID), connection)
}

// GetByChannelID resolves a connection by its Google channel id or Microsoft subscription id.
func (r *NatsCalendarConnectionRepository) GetByChannelID(ctx context.Context, provider models.Provider, channelID string) (*models.CalendarConnection, error) {
	lookupType, err := channelLookupType(provider)
	if err != nil {
		return nil, err
	}
	uid, err := r.ResolveLookup(ctx, r.keyBuilder.LookupKey(lookupType, channelID))
	if err != nil {
		return nil, err
	}
	connection, _, err := r.GetWithRevision(ctx, r.keyBuilder.EntityKey(KeyPrefixCalendarConnection, uid))
	return connection, err
}
