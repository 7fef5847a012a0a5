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

// NatsEnrichmentJobRepository is the NATS KV store repository for enrichment jobs.
type NatsEnrichmentJobRepository struct {
	*NatsBaseRepository[models.EnrichmentJob]
	keyBuilder *KeyBuilder
}

// NewNatsEnrichmentJobRepository creates a new NATS KV store repository for enrichment jobs.
func NewNatsEnrichmentJobRepository(kvStore INatsKeyValue) *NatsEnrichmentJobRepository {
	return &NatsEnrichmentJobRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.EnrichmentJob](kvStore, "enrichment job"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// IsReady checks if the repository is ready
func (r *NatsEnrichmentJobRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new job and claims its provider request id.
func (r *NatsEnrichmentJobRepository) Create(ctx context.Context, job *models.EnrichmentJob) error {
	if job.RequestData.RequestID == "" {
		return domain.NewValidationError("enrichment request id is required")
	}
	if job.UID == "" {
		job.UID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.EnrichmentJobStatusProcessing
	}
	if job.CreatedAt == nil {
		now := time.Now().UTC()
		job.CreatedAt = &now
		job.UpdatedAt = &now
	}

	lookupKey := r.keyBuilder.LookupKey(KeyPrefixLookupEnrichmentReqID, job.RequestData.RequestID)
	if err := r.CreateLookup(ctx, lookupKey, job.UID); err != nil {
		return err
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.EntityKey(KeyPrefixEnrichmentJob, job.UID), job)
}

// GetWithRevision retrieves a job with revision by UID
func (r *NatsEnrichmentJobRepository) GetWithRevision(ctx context.Context, jobUID string) (*models.EnrichmentJob, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.EntityKey(KeyPrefixEnrichmentJob, jobUID))
}

// GetByRequestID resolves a job by the provider-issued request id.
func (r *NatsEnrichmentJobRepository) GetByRequestID(ctx context.Context, requestID string) (*models.EnrichmentJob, uint64, error) {
	uid, err := r.ResolveLookup(ctx, r.keyBuilder.LookupKey(KeyPrefixLookupEnrichmentReqID, requestID))
	if err != nil {
		return nil, 0, err
	}
	return r.GetWithRevision(ctx, uid)
}

// Update updates an existing job
func (r *NatsEnrichmentJobRepository) Update(ctx context.Context, job *models.EnrichmentJob, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, r.keyBuilder.EntityKey(KeyPrefixEnrichmentJob, job.UID), job, revision)
}

// NatsContactRepository is the NATS KV store repository for contacts.
type NatsContactRepository struct {
	*NatsBaseRepository[models.Contact]
	keyBuilder *KeyBuilder
}

// NewNatsContactRepository creates a new NATS KV store repository for contacts.
func NewNatsContactRepository(kvStore INatsKeyValue) *NatsContactRepository {
	return &NatsContactRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Contact](kvStore, "contact"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// IsReady checks if the repository is ready
func (r *NatsContactRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new contact
func (r *NatsContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact.UID == "" {
		contact.UID = uuid.New().String()
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.EntityKey(KeyPrefixContact, contact.UID), contact)
}

// GetWithRevision retrieves a contact with revision by UID
func (r *NatsContactRepository) GetWithRevision(ctx context.Context, contactUID string) (*models.Contact, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.EntityKey(KeyPrefixContact, contactUID))
}

// Update updates an existing contact
func (r *NatsContactRepository) Update(ctx context.Context, contact *models.Contact, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, r.keyBuilder.EntityKey(KeyPrefixContact, contact.UID), contact, revision)
}
