// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// NatsMeetingRepository is the NATS KV store repository for meetings.
type NatsMeetingRepository struct {
	*NatsBaseRepository[models.Meeting]
	keyBuilder *KeyBuilder
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(kvStore INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Meeting](kvStore, "meeting"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// IsReady checks if the repository is ready
func (r *NatsMeetingRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

// Create stores a new meeting
func (r *NatsMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.UID == "" {
		meeting.UID = uuid.New().String()
	}
	if meeting.Status == "" {
		meeting.Status = models.MeetingStatusScheduled
	}
	if meeting.CreatedAt == nil {
		now := time.Now().UTC()
		meeting.CreatedAt = &now
		meeting.UpdatedAt = &now
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.EntityKey(KeyPrefixMeeting, meeting.UID), meeting)
}

// GetWithRevision retrieves a meeting with revision by UID
func (r *NatsMeetingRepository) GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.EntityKey(KeyPrefixMeeting, meetingUID))
}

// Update updates an existing meeting
func (r *NatsMeetingRepository) Update(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, r.keyBuilder.EntityKey(KeyPrefixMeeting, meeting.UID), meeting, revision)
}
