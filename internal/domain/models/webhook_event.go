// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"time"
)

// EventOutcome is the last reconciliation result recorded against a webhook event.
type EventOutcome string

const (
	OutcomePending      EventOutcome = "pending"
	OutcomeApplied      EventOutcome = "applied"
	OutcomeNoOp         EventOutcome = "noop"
	OutcomeConflict     EventOutcome = "conflict"
	OutcomeNotFound     EventOutcome = "not_found"
	OutcomeUnrecognized EventOutcome = "unrecognized"
	OutcomeDeferred     EventOutcome = "deferred"
	OutcomeFailed       EventOutcome = "failed"
)

// FailureReasonEntityNotFound is recorded when the referenced entity does not exist yet.
const FailureReasonEntityNotFound = "entity not found"

// WebhookEvent is the idempotency ledger record for one provider delivery.
// It is unique on (Provider, ProviderEventID).
type WebhookEvent struct {
	Provider        Provider        `json:"provider"`
	ProviderEventID string          `json:"provider_event_id"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	TenantID        *string         `json:"tenant_id,omitempty"`
	Attempts        int             `json:"attempts"`
	Outcome         EventOutcome    `json:"outcome"`
	FailureReason   *string         `json:"failure_reason,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

// IsProcessed reports whether the event has reached its terminal ledger state.
func (e *WebhookEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}
