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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultHandlerTimeout bounds the synchronous part of webhook handling.
const DefaultHandlerTimeout = 10 * time.Second

// ledgerFinalizeTimeout bounds the ledger write after processing, which runs
// even when the handler deadline has passed.
const ledgerFinalizeTimeout = 5 * time.Second

// outcomeDuplicate labels deliveries skipped by the ledger on the events counter.
const outcomeDuplicate = "duplicate"

// IntakeResponse is returned for an accepted webhook request. Handshake is
// set when the request was a provider validation challenge.
type IntakeResponse struct {
	Handshake *domain.HandshakeReply
	Events    int
}

// IntakeService sequences verification, recording, reconciliation and
// dispatch for every provider callback.
type IntakeService struct {
	registry   domain.WebhookVerifierRegistry
	ledger     *Ledger
	reconciler *Reconciler
	enrichment *EnrichmentCorrelator
	dispatcher *Dispatcher
	config     ServiceConfig
	events     metric.Int64Counter
	now        func() time.Time
}

// NewIntakeService creates an IntakeService
func NewIntakeService(
	registry domain.WebhookVerifierRegistry,
	ledger *Ledger,
	reconciler *Reconciler,
	enrichment *EnrichmentCorrelator,
	dispatcher *Dispatcher,
	config ServiceConfig,
) (*IntakeService, error) {
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = DefaultHandlerTimeout
	}

	events, err := otel.Meter(meterName).Int64Counter(
		"webhook.events",
		metric.WithDescription("Verified webhook events by provider and ledger outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook events counter: %w", err)
	}

	return &IntakeService{
		registry:   registry,
		ledger:     ledger,
		reconciler: reconciler,
		enrichment: enrichment,
		dispatcher: dispatcher,
		config:     config,
		events:     events,
		now:        time.Now,
	}, nil
}

// ServiceReady checks if the service is ready to process webhooks
func (s *IntakeService) ServiceReady() bool {
	ctx := context.Background()
	return s.registry != nil &&
		s.ledger != nil && s.ledger.IsReady(ctx) &&
		s.reconciler != nil && s.reconciler.IsReady(ctx) &&
		s.enrichment != nil && s.enrichment.IsReady(ctx) &&
		s.dispatcher != nil && s.dispatcher.IsReady()
}

// HandleWebhook processes one provider callback. It returns an
// ErrorTypeUnauthorized or ErrorTypeValidation error for requests that fail
// verification and an ErrorTypeUnavailable error when the delivery could not
// be recorded. Every other outcome is absorbed.
func (s *IntakeService) HandleWebhook(ctx context.Context, provider models.Provider, req domain.WebhookRequest) (*IntakeResponse, error) {
	verifier, err := s.registry.GetVerifier(provider)
	if err != nil {
		return nil, err
	}

	if reply, ok := verifier.Handshake(req); ok {
		slog.InfoContext(ctx, "answered webhook handshake", logging.ProviderKey, provider)
		return &IntakeResponse{Handshake: reply}, nil
	}

	events, err := verifier.Verify(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "webhook rejected", logging.ErrKey, err, logging.ProviderKey, provider)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.HandlerTimeout)
	defer cancel()

	for _, event := range events {
		if err := s.process(ctx, event); err != nil {
			return nil, err
		}
	}
	return &IntakeResponse{Events: len(events)}, nil
}

// process records, reconciles and dispatches a single verified event.
func (s *IntakeService) process(ctx context.Context, event models.InboundEvent) error {
	ctx = logging.WithWebhookEvent(ctx, string(event.Provider), event.ProviderEventID)

	entry, err := s.ledger.Record(ctx, event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to record webhook event", logging.ErrKey, err, logging.PriorityCritical())
		return domain.NewUnavailableError("webhook event could not be recorded", err)
	}

	if entry.ShouldSkip(s.now()) {
		slog.InfoContext(ctx, "webhook event already handled",
			"attempts", entry.Event.Attempts,
			logging.OutcomeKey, entry.Event.Outcome,
		)
		s.count(ctx, event.Provider, outcomeDuplicate)
		return nil
	}

	result, err := s.reconcile(ctx, event, Translate(event))
	if err != nil {
		slog.ErrorContext(ctx, "webhook reconciliation failed", logging.ErrKey, err)
		result = &Result{Outcome: models.OutcomeFailed, FailureReason: err.Error()}
	}

	switch result.Outcome {
	case models.OutcomeApplied:
		// a rejected task is logged by the dispatcher; the entity change stands
		_ = s.dispatcher.Submit(ctx, Task{Name: string(event.Provider) + "." + event.EventType, Actions: result.Actions})
	case models.OutcomeDeferred:
		if err := s.dispatcher.Submit(ctx, Task{Name: ActionApplyEnrichmentBatch, Actions: result.Actions}); err != nil {
			result = &Result{Outcome: models.OutcomeFailed, TenantID: result.TenantID, FailureReason: err.Error()}
		}
	}

	s.complete(ctx, event, result)
	return nil
}

// reconcile routes a translation to the component that owns its entity.
func (s *IntakeService) reconcile(ctx context.Context, event models.InboundEvent, translation Translation) (*Result, error) {
	switch t := translation.(type) {
	case BotTransition:
		return s.reconciler.ReconcileBot(ctx, t, event.Payload)
	case CalendarSyncRequest:
		return s.reconciler.ReconcileCalendar(ctx, t)
	case EnrichmentCompletion:
		return s.enrichment.Reconcile(ctx, t, s.completeDeferred(event))
	case NoTransition:
		slog.DebugContext(ctx, "webhook event has no lifecycle effect", "reason", t.Reason)
		return &Result{Outcome: models.OutcomeNoOp}, nil
	case Unrecognized:
		slog.WarnContext(ctx, "unrecognized provider status", "raw_status", t.Raw, "event_type", event.EventType)
		return &Result{Outcome: models.OutcomeUnrecognized}, nil
	default:
		return nil, fmt.Errorf("unhandled translation %T", translation)
	}
}

// completeDeferred finishes the ledger record of a deferred event once its
// batch has been applied. It runs on a dispatcher worker, so the follow-up
// actions run in place rather than through the queue, which is closed
// during shutdown.
func (s *IntakeService) completeDeferred(event models.InboundEvent) func(ctx context.Context, result *Result, err error) {
	return func(ctx context.Context, result *Result, err error) {
		if err != nil {
			result = &Result{Outcome: models.OutcomeFailed, FailureReason: err.Error()}
		}
		if result.Outcome == models.OutcomeApplied {
			s.dispatcher.RunNow(ctx, Task{Name: string(event.Provider) + "." + event.EventType, Actions: result.Actions})
		}
		s.complete(ctx, event, result)
	}
}

// complete writes the outcome to the ledger on a context that survives the
// handler deadline.
func (s *IntakeService) complete(ctx context.Context, event models.InboundEvent, result *Result) {
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerFinalizeTimeout)
	defer cancel()

	err := s.ledger.Complete(finalizeCtx, event.Provider, event.ProviderEventID, Completion{
		Outcome:       result.Outcome,
		TenantID:      result.TenantID,
		FailureReason: result.FailureReason,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to complete webhook event", logging.ErrKey, err, logging.OutcomeKey, result.Outcome)
	} else {
		slog.InfoContext(ctx, "webhook event processed", logging.OutcomeKey, result.Outcome)
	}
	s.count(ctx, event.Provider, string(result.Outcome))
}

func (s *IntakeService) count(ctx context.Context, provider models.Provider, outcome string) {
	s.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String(logging.ProviderKey, string(provider)),
		attribute.String(logging.OutcomeKey, outcome),
	))
}
