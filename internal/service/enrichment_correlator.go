// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/concurrent"
)

// Enrichment batch guard defaults
const (
	DefaultEnrichmentMaxInlineItems = 100
	DefaultEnrichmentMaxBatchItems  = 5000
	enrichmentApplyWorkers          = 10
	// enrichmentBatchTimeout bounds a deferred batch as one dispatched action.
	enrichmentBatchTimeout = 5 * time.Minute
	enrichmentSource       = "enrichment_provider"
)

// item statuses that carry no enriched data
var enrichmentSkippedItemStatuses = map[string]bool{
	"NOT_FOUND": true,
	"FAILED":    true,
	"SKIPPED":   true,
}

// EnrichmentCorrelatorConfig configures the batch guard
type EnrichmentCorrelatorConfig struct {
	MaxInlineItems int
	MaxBatchItems  int
}

// EnrichmentCorrelator resolves enrichment callbacks to their PROCESSING job
// and applies the batch to contacts.
type EnrichmentCorrelator struct {
	jobs           domain.EnrichmentJobRepository
	contacts       domain.ContactRepository
	effects        *SideEffects
	pool           *concurrent.WorkerPool
	maxInlineItems int
	maxBatchItems  int
	now            func() time.Time
}

// NewEnrichmentCorrelator creates an EnrichmentCorrelator
func NewEnrichmentCorrelator(
	jobs domain.EnrichmentJobRepository,
	contacts domain.ContactRepository,
	effects *SideEffects,
	cfg EnrichmentCorrelatorConfig,
) *EnrichmentCorrelator {
	if cfg.MaxInlineItems <= 0 {
		cfg.MaxInlineItems = DefaultEnrichmentMaxInlineItems
	}
	if cfg.MaxBatchItems <= 0 {
		cfg.MaxBatchItems = DefaultEnrichmentMaxBatchItems
	}
	if cfg.MaxInlineItems > cfg.MaxBatchItems {
		cfg.MaxInlineItems = cfg.MaxBatchItems
	}
	return &EnrichmentCorrelator{
		jobs:           jobs,
		contacts:       contacts,
		effects:        effects,
		pool:           concurrent.NewWorkerPool(enrichmentApplyWorkers),
		maxInlineItems: cfg.MaxInlineItems,
		maxBatchItems:  cfg.MaxBatchItems,
		now:            time.Now,
	}
}

// IsReady checks if the job and contact stores are ready
func (c *EnrichmentCorrelator) IsReady(ctx context.Context) bool {
	return c.jobs != nil && c.jobs.IsReady(ctx) && c.contacts != nil && c.contacts.IsReady(ctx)
}

// Correlate returns the PROCESSING job for a provider request id. A terminal
// job is returned with domain.ErrTransitionRejected.
func (c *EnrichmentCorrelator) Correlate(ctx context.Context, requestID string) (*models.EnrichmentJob, uint64, error) {
	if requestID == "" {
		return nil, 0, domain.ErrEntityNotFound
	}
	job, revision, err := c.jobs.GetByRequestID(ctx, requestID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, 0, domain.ErrEntityNotFound
		}
		return nil, 0, err
	}
	if job.Status.IsTerminal() {
		return job, revision, domain.ErrTransitionRejected
	}
	return job, revision, nil
}

// Reconcile applies a completion. Large batches come back as OutcomeDeferred
// with a single action that applies the batch off the request path; the
// deferred action reports its own result through onDeferred.
func (c *EnrichmentCorrelator) Reconcile(
	ctx context.Context,
	completion EnrichmentCompletion,
	onDeferred func(ctx context.Context, result *Result, err error),
) (*Result, error) {
	job, _, err := c.Correlate(ctx, completion.RequestID)
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		slog.InfoContext(ctx, "no enrichment job for request id", "request_id", completion.RequestID)
		return notFoundResult(), nil
	case errors.Is(err, domain.ErrTransitionRejected):
		return &Result{Outcome: models.OutcomeNoOp, TenantID: job.TenantID}, nil
	case err != nil:
		return nil, err
	}

	if completion.Status == models.EnrichmentJobStatusFailed {
		return c.finish(ctx, job.UID, models.EnrichmentJobStatusFailed, completion.FailureReason, 0, 0)
	}

	items := len(completion.Items)
	switch {
	case items > c.maxBatchItems:
		reason := fmt.Sprintf("batch exceeds %d items", c.maxBatchItems)
		slog.WarnContext(ctx, "enrichment batch rejected", "job_uid", job.UID, "items", items)
		return c.finish(ctx, job.UID, models.EnrichmentJobStatusFailed, &reason, 0, items)
	case items > c.maxInlineItems:
		slog.InfoContext(ctx, "deferring enrichment batch", "job_uid", job.UID, "items", items)
		jobUID := job.UID
		return &Result{
			Outcome:  models.OutcomeDeferred,
			TenantID: job.TenantID,
			Actions: []Action{{
				Name:    ActionApplyEnrichmentBatch,
				Timeout: enrichmentBatchTimeout,
				Run: func(ctx context.Context) error {
					result, err := c.applyAndFinish(ctx, jobUID, completion.Items)
					if onDeferred != nil {
						onDeferred(ctx, result, err)
					}
					return err
				},
			}},
		}, nil
	default:
		return c.applyAndFinish(ctx, job.UID, completion.Items)
	}
}

// applyAndFinish applies the items and marks the job COMPLETED.
func (c *EnrichmentCorrelator) applyAndFinish(ctx context.Context, jobUID string, items []models.EnrichmentResultItem) (*Result, error) {
	job, _, err := c.jobs.GetWithRevision(ctx, jobUID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return &Result{Outcome: models.OutcomeNoOp, TenantID: job.TenantID}, nil
	}

	applied, skipped, errs := c.applyItems(ctx, job, items)
	if len(errs) > 0 {
		// the job stays PROCESSING so a redelivery applies the batch again
		return nil, fmt.Errorf("failed to apply %d of %d enrichment items for job %s: %w",
			len(errs), len(items), jobUID, errors.Join(errs...))
	}
	return c.finish(ctx, jobUID, models.EnrichmentJobStatusCompleted, nil, applied, skipped)
}

// applyItems writes each item to the contact its correlation id was issued for.
// Items with no resolvable contact count as skipped; store failures are returned.
func (c *EnrichmentCorrelator) applyItems(ctx context.Context, job *models.EnrichmentJob, items []models.EnrichmentResultItem) (int, int, []error) {
	var applied atomic.Int64

	functions := make([]func() error, 0, len(items))
	for _, item := range items {
		functions = append(functions, func() error {
			contactUID, ok := c.resolveContact(job, item)
			if !ok {
				return nil
			}
			if err := c.applyItem(ctx, job.TenantID, contactUID, item); err != nil {
				if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
					return err
				}
				return nil
			}
			applied.Add(1)
			return nil
		})
	}

	errs := c.pool.RunAll(ctx, functions...)
	for _, err := range errs {
		slog.WarnContext(ctx, "failed to apply enrichment item", logging.ErrKey, err, "job_uid", job.UID)
	}
	return int(applied.Load()), len(items) - int(applied.Load()), errs
}

// resolveContact maps the item's echoed correlation id to the contact it was
// issued for. The contact uid echoed by the provider is never trusted.
func (c *EnrichmentCorrelator) resolveContact(job *models.EnrichmentJob, item models.EnrichmentResultItem) (string, bool) {
	if enrichmentSkippedItemStatuses[strings.ToUpper(item.Status)] {
		return "", false
	}
	if len(item.Custom) == 0 {
		return "", false
	}

	var custom models.EnrichmentCustomFields
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &custom,
	})
	if err != nil || decoder.Decode(item.Custom) != nil {
		return "", false
	}
	return job.RequestData.ContactUIDFor(custom.CorrelationID)
}

// applyItem merges the enriched fields into the contact. Re-applying the
// same values writes nothing.
func (c *EnrichmentCorrelator) applyItem(ctx context.Context, tenantID, contactUID string, item models.EnrichmentResultItem) error {
	for attempt := 0; attempt < maxReconcileRetries; attempt++ {
		contact, revision, err := c.contacts.GetWithRevision(ctx, contactUID)
		if err != nil {
			return err
		}
		if contact.TenantID != "" && contact.TenantID != tenantID {
			return domain.NewNotFoundError("contact belongs to another tenant")
		}

		if !mergeEnrichment(contact, item) {
			return nil
		}
		now := c.now().UTC()
		contact.EnrichmentSource = enrichmentSource
		contact.EnrichedAt = &now
		contact.UpdatedAt = &now

		err = c.contacts.Update(ctx, contact, revision)
		if err == nil {
			return nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return err
		}
	}
	return domain.NewConflictError(fmt.Sprintf("contact %s still contended after %d attempts", contactUID, maxReconcileRetries))
}

// mergeEnrichment copies non-empty enriched fields and reports whether any changed.
func mergeEnrichment(contact *models.Contact, item models.EnrichmentResultItem) bool {
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&contact.Email, item.Email)
	set(&contact.Phone, item.Phone)
	set(&contact.JobTitle, item.JobTitle)
	set(&contact.CompanyName, item.CompanyName)
	set(&contact.LinkedInURL, item.LinkedInURL)
	return changed
}

// finish moves the job to a terminal status. A job that a concurrent
// delivery already finished is left as is.
func (c *EnrichmentCorrelator) finish(ctx context.Context, jobUID string, status models.EnrichmentJobStatus, reason *string, applied, skipped int) (*Result, error) {
	for attempt := 0; attempt < maxReconcileRetries; attempt++ {
		job, revision, err := c.jobs.GetWithRevision(ctx, jobUID)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return &Result{Outcome: models.OutcomeNoOp, TenantID: job.TenantID}, nil
		}

		now := c.now().UTC()
		job.Status = status
		job.AppliedItems = applied
		job.SkippedItems = skipped
		job.FailureReason = reason
		job.CompletedAt = &now
		job.UpdatedAt = &now

		err = c.jobs.Update(ctx, job, revision)
		if err == nil {
			slog.InfoContext(ctx, "enrichment job finished",
				"job_uid", job.UID,
				"status", job.Status,
				"applied_items", applied,
				"skipped_items", skipped,
			)
			return &Result{
				Outcome:  models.OutcomeApplied,
				TenantID: job.TenantID,
				Actions:  c.effects.ForEnrichment(*job),
			}, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, err
		}
	}
	return conflictResult("", "enrichment job"), nil
}
