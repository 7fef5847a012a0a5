// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// WebhookEventRepository is the idempotency ledger store.
type WebhookEventRepository interface {
	IsReady(ctx context.Context) bool
	// Create inserts a new ledger record and fails with ErrorTypeConflict when
	// the (provider, providerEventID) pair already exists.
	Create(ctx context.Context, event *models.WebhookEvent) error
	GetWithRevision(ctx context.Context, provider models.Provider, providerEventID string) (*models.WebhookEvent, uint64, error)
	Update(ctx context.Context, event *models.WebhookEvent, revision uint64) error
}

// MeetingRepository stores meetings.
type MeetingRepository interface {
	IsReady(ctx context.Context) bool
	Create(ctx context.Context, meeting *models.Meeting) error
	GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	Update(ctx context.Context, meeting *models.Meeting, revision uint64) error
}

// MeetingBotSessionRepository stores bot sessions and their provider bot id lookup.
type MeetingBotSessionRepository interface {
	IsReady(ctx context.Context) bool
	Create(ctx context.Context, session *models.MeetingBotSession) error
	GetWithRevision(ctx context.Context, sessionUID string) (*models.MeetingBotSession, uint64, error)
	GetByProviderBotID(ctx context.Context, providerBotID string) (*models.MeetingBotSession, uint64, error)
	Update(ctx context.Context, session *models.MeetingBotSession, revision uint64) error
}

// CalendarConnectionRepository stores calendar connections and their channel lookup.
type CalendarConnectionRepository interface {
	IsReady(ctx context.Context) bool
	Create(ctx context.Context, connection *models.CalendarConnection) error
	GetByChannelID(ctx context.Context, provider models.Provider, channelID string) (*models.CalendarConnection, error)
}

// EnrichmentJobRepository stores enrichment jobs and their provider request id lookup.
type EnrichmentJobRepository interface {
	IsReady(ctx context.Context) bool
	Create(ctx context.Context, job *models.EnrichmentJob) error
	GetWithRevision(ctx context.Context, jobUID string) (*models.EnrichmentJob, uint64, error)
	GetByRequestID(ctx context.Context, requestID string) (*models.EnrichmentJob, uint64, error)
	Update(ctx context.Context, job *models.EnrichmentJob, revision uint64) error
}

// ContactRepository stores CRM contacts.
type ContactRepository interface {
	IsReady(ctx context.Context) bool
	Create(ctx context.Context, contact *models.Contact) error
	GetWithRevision(ctx context.Context, contactUID string) (*models.Contact, uint64, error)
	Update(ctx context.Context, contact *models.Contact, revision uint64) error
}
