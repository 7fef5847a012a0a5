// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
)

// maxEnrichmentRequestContacts bounds one outbound request so its callback
// stays inside the batch guard.
const maxEnrichmentRequestContacts = DefaultEnrichmentMaxBatchItems

// EnrichmentRequestService starts outbound enrichment requests whose
// callbacks are later resolved by the EnrichmentCorrelator.
type EnrichmentRequestService struct {
	jobs       domain.EnrichmentJobRepository
	contacts   domain.ContactRepository
	provider   domain.EnrichmentProvider
	webhookURL string
	newID      func() string
}

// NewEnrichmentRequestService creates an EnrichmentRequestService. webhookURL
// is the public URL of the enrichment webhook route.
func NewEnrichmentRequestService(
	jobs domain.EnrichmentJobRepository,
	contacts domain.ContactRepository,
	provider domain.EnrichmentProvider,
	webhookURL string,
) *EnrichmentRequestService {
	return &EnrichmentRequestService{
		jobs:       jobs,
		contacts:   contacts,
		provider:   provider,
		webhookURL: webhookURL,
		newID:      NewCorrelationID,
	}
}

// NewCorrelationID returns a compact random id for outbound custom fields.
func NewCorrelationID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

// ServiceReady checks if the service can accept requests
func (s *EnrichmentRequestService) ServiceReady() bool {
	return s.provider != nil && s.jobs != nil && s.contacts != nil
}

// RequestEnrichment sends the tenant's contacts to the enrichment provider
// and records a PROCESSING job keyed by the provider's request id. Each
// contact gets its own correlation id in the request's custom fields.
func (s *EnrichmentRequestService) RequestEnrichment(ctx context.Context, msg models.EnrichmentRequestMessage) (*models.EnrichmentJob, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("enrichment is not configured")
	}
	if msg.TenantID == "" {
		return nil, domain.NewValidationError("tenant id is required")
	}
	if len(msg.ContactUIDs) == 0 {
		return nil, domain.NewValidationError("at least one contact uid is required")
	}
	if len(msg.ContactUIDs) > maxEnrichmentRequestContacts {
		return nil, domain.NewValidationError(fmt.Sprintf("at most %d contacts can be enriched at once", maxEnrichmentRequestContacts))
	}

	ctx = logging.AppendCtx(ctx, slog.String("tenant_id", msg.TenantID))

	request := models.EnrichmentAPIRequest{WebhookURL: s.webhookURL}
	var items []models.EnrichmentRequestItem
	seen := make(map[string]bool, len(msg.ContactUIDs))

	for _, contactUID := range msg.ContactUIDs {
		if contactUID == "" || seen[contactUID] {
			continue
		}
		seen[contactUID] = true

		contact, _, err := s.contacts.GetWithRevision(ctx, contactUID)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				slog.WarnContext(ctx, "skipping unknown contact", "contact_uid", contactUID)
				continue
			}
			return nil, err
		}
		if contact.TenantID != msg.TenantID {
			slog.WarnContext(ctx, "skipping contact of another tenant", "contact_uid", contactUID)
			continue
		}

		correlationID := s.newID()
		items = append(items, models.EnrichmentRequestItem{ContactUID: contact.UID, CorrelationID: correlationID})
		request.People = append(request.People, models.EnrichmentAPIPerson{
			FirstName:   contact.FirstName,
			LastName:    contact.LastName,
			Email:       contact.Email,
			CompanyName: contact.CompanyName,
			LinkedInURL: contact.LinkedInURL,
			Custom: models.EnrichmentCustomFields{
				CorrelationID: correlationID,
				ContactUID:    contact.UID,
			},
		})
	}

	if len(items) == 0 {
		return nil, domain.NewValidationError("none of the contacts can be enriched")
	}

	response, err := s.provider.RequestEnrichment(ctx, request)
	if err != nil {
		slog.ErrorContext(ctx, "enrichment request failed", logging.ErrKey, err, "contacts", len(items))
		return nil, err
	}

	job := &models.EnrichmentJob{
		TenantID: msg.TenantID,
		Status:   models.EnrichmentJobStatusProcessing,
		RequestData: models.EnrichmentRequestData{
			RequestID: response.RequestID,
			Items:     items,
		},
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to record enrichment job",
			logging.ErrKey, err,
			"request_id", response.RequestID,
		)
		return nil, err
	}

	slog.InfoContext(ctx, "enrichment requested",
		"job_uid", job.UID,
		"request_id", response.RequestID,
		"contacts", len(items),
	)
	return job, nil
}
