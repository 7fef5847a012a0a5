// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
)

const (
	// maxLedgerRetries bounds compare-and-set retries on a ledger record.
	maxLedgerRetries = 5
	// deferredLease is how long a deferred event is owned by the delivery that
	// deferred it. Redeliveries inside the lease are acknowledged and skipped.
	deferredLease = 5 * time.Minute
)

// LedgerEntry is the ledger state observed when a delivery was recorded.
type LedgerEntry struct {
	Event *models.WebhookEvent
	// Duplicate is set when the (provider, providerEventID) pair was seen before.
	Duplicate bool
}

// ShouldSkip reports whether the delivery needs no further processing.
func (e *LedgerEntry) ShouldSkip(now time.Time) bool {
	if e.Event.IsProcessed() {
		return true
	}
	return e.Duplicate &&
		e.Event.Outcome == models.OutcomeDeferred &&
		now.Sub(e.Event.UpdatedAt) < deferredLease
}

// Ledger is the idempotency ledger keyed by (provider, providerEventID).
type Ledger struct {
	repo domain.WebhookEventRepository
	now  func() time.Time
}

// NewLedger creates a ledger over repo
func NewLedger(repo domain.WebhookEventRepository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// IsReady checks if the ledger store is ready
func (l *Ledger) IsReady(ctx context.Context) bool {
	return l.repo != nil && l.repo.IsReady(ctx)
}

// Record durably records a delivery. A first delivery inserts the record; a
// redelivery increments its attempt counter.
func (l *Ledger) Record(ctx context.Context, event models.InboundEvent) (*LedgerEntry, error) {
	now := l.now().UTC()
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}

	record := &models.WebhookEvent{
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.EventType,
		Payload:         event.Payload,
		TenantID:        event.TenantID,
		Attempts:        1,
		Outcome:         models.OutcomePending,
		ReceivedAt:      receivedAt.UTC(),
		UpdatedAt:       now,
	}

	err := l.repo.Create(ctx, record)
	if err == nil {
		return &LedgerEntry{Event: record}, nil
	}
	if domain.GetErrorType(err) != domain.ErrorTypeConflict {
		return nil, err
	}

	return l.recordRedelivery(ctx, event)
}

func (l *Ledger) recordRedelivery(ctx context.Context, event models.InboundEvent) (*LedgerEntry, error) {
	for attempt := 0; attempt < maxLedgerRetries; attempt++ {
		record, revision, err := l.repo.GetWithRevision(ctx, event.Provider, event.ProviderEventID)
		if err != nil {
			return nil, err
		}

		record.Attempts++
		record.UpdatedAt = l.now().UTC()
		if record.TenantID == nil {
			record.TenantID = event.TenantID
		}

		err = l.repo.Update(ctx, record, revision)
		if err == nil {
			slog.DebugContext(ctx, "webhook event redelivered",
				"attempts", record.Attempts,
				logging.OutcomeKey, record.Outcome,
			)
			return &LedgerEntry{Event: record, Duplicate: true}, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, err
		}
	}
	return nil, domain.NewConflictError(fmt.Sprintf("webhook event still contended after %d attempts", maxLedgerRetries))
}

// Completion is the result written back to the ledger for one delivery.
type Completion struct {
	Outcome       models.EventOutcome
	TenantID      string
	FailureReason string
}

// isTerminal reports whether the outcome closes the ledger record. Deferred,
// conflicting and failed deliveries stay open so a redelivery is processed.
func (c Completion) isTerminal() bool {
	switch c.Outcome {
	case models.OutcomeApplied, models.OutcomeNoOp, models.OutcomeNotFound, models.OutcomeUnrecognized:
		return true
	}
	return false
}

// Complete writes the processing outcome. A record already marked processed
// by a concurrent delivery is left untouched.
func (l *Ledger) Complete(ctx context.Context, provider models.Provider, providerEventID string, completion Completion) error {
	for attempt := 0; attempt < maxLedgerRetries; attempt++ {
		record, revision, err := l.repo.GetWithRevision(ctx, provider, providerEventID)
		if err != nil {
			return err
		}
		if record.IsProcessed() {
			return nil
		}

		now := l.now().UTC()
		record.Outcome = completion.Outcome
		record.UpdatedAt = now
		if completion.TenantID != "" {
			utils.SetOnce(&record.TenantID, completion.TenantID)
		}
		if completion.FailureReason != "" {
			record.FailureReason = &completion.FailureReason
		}
		if completion.isTerminal() {
			record.ProcessedAt = &now
		}

		err = l.repo.Update(ctx, record, revision)
		if err == nil {
			return nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return err
		}
	}
	return domain.NewConflictError(fmt.Sprintf("webhook event still contended after %d attempts", maxLedgerRetries))
}
