// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// NatsWebhookEventRepository is the NATS KV store repository for the idempotency ledger.
// Records are keyed by (provider, provider event id), so bucket Create enforces uniqueness.
type NatsWebhookEventRepository struct {
	*NatsBaseRepository[models.WebhookEvent]
	keyBuilder *KeyBuilder
}

// NewNatsWebhookEventRepository creates a new NATS KV store repository for webhook events.
func NewNatsWebhookEventRepository(kvStore INatsKeyValue) *NatsWebhookEventRepository {
	return &NatsWebhookEventRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.WebhookEvent](kvStore, "webhook event"),
		keyBuilder:         NewKeyBuilder(),
	}
}

func (r *NatsWebhookEventRepository) key(provider models.Provider, providerEventID string) string {
	return r.keyBuilder.CompoundKey(KeyPrefixWebhookEvent, string(provider), providerEventID)
}

// IsReady checks if the repository is ready
func (r *NatsWebhookEventRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create records a first delivery.
func (r *NatsWebhookEventRepository) Create(ctx context.Context, event *models.WebhookEvent) error {
	return r.NatsBaseRepository.Create(ctx, r.key(event.Provider, event.ProviderEventID), event)
}

// GetWithRevision retrieves a ledger record with its revision
func (r *NatsWebhookEventRepository) GetWithRevision(ctx context.Context, provider models.Provider, providerEventID string) (*models.WebhookEvent, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.key(provider, providerEventID))
}

// Update writes a ledger record if it is still at revision
func (r *NatsWebhookEventRepository) Update(ctx context.Context, event *models.WebhookEvent, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, r.key(event.Provider, event.ProviderEventID), event, revision)
}
