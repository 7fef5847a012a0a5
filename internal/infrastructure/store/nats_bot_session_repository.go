// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// NatsBotSessionRepository is the NATS KV store repository for meeting bot sessions.
type NatsBotSessionRepository struct {
	*NatsBaseRepository[models.MeetingBotSession]
	keyBuilder *KeyBuilder
}

// NewNatsBotSessionRepository creates a new NATS KV store repository for bot sessions.
func NewNatsBotSessionRepository(kvStore INatsKeyValue) *NatsBotSessionRepository {
	return &NatsBotSessionRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.MeetingBotSession](kvStore, "meeting bot session"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// IsReady checks if the repository is ready
func (r *NatsBotSessionRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new session and claims its provider bot id.
func (r *NatsBotSessionRepository) Create(ctx context.Context, session *models.MeetingBotSession) error {
	if session.ProviderBotID == "" {
		return domain.NewValidationError("provider bot id is required")
	}
	if session.UID == "" {
		session.UID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = models.MeetingStatusScheduled
	}
	if session.CreatedAt == nil {
		now := time.Now().UTC()
		session.CreatedAt = &now
		session.UpdatedAt = &now
	}

	lookupKey := r.keyBuilder.LookupKey(KeyPrefixLookupProviderBot, session.ProviderBotID)
	if err := r.CreateLookup(ctx, lookupKey, session.UID); err != nil {
		return err
	}

	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.EntityKey(KeyPrefixBotSession, session.UID), session)
}

// GetWithRevision retrieves a session with revision by UID
func (r *NatsBotSessionRepository) GetWithRevision(ctx context.Context, sessionUID string) (*models.MeetingBotSession, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.EntityKey(KeyPrefixBotSession, sessionUID))
}

// GetByProviderBotID resolves a session by the id the bot provider assigned.
func (r *NatsBotSessionRepository) GetByProviderBotID(ctx context.Context, providerBotID string) (*models.MeetingBotSession, uint64, error) {
	uid, err := r.ResolveLookup(ctx, r.keyBuilder.LookupKey(KeyPrefixLookupProviderBot, providerBotID))
	if err != nil {
		return nil, 0, err
	}
	return r.GetWithRevision(ctx, uid)
}

// Update updates an existing session
func (r *NatsBotSessionRepository) Update(ctx context.Context, session *models.MeetingBotSession, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, r.keyBuilder.EntityKey(KeyPrefixBotSession, session.UID), session, revision)
}
