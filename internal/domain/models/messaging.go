// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the webhook service sends messages about.
const (
	// WorkflowStartSubjectPrefix is the prefix for workflow start requests.
	// The subject is of the form: lfx.workflow.start.<workflow_type>
	WorkflowStartSubjectPrefix = "lfx.workflow.start."

	// WorkflowSignalSubjectPrefix is the prefix for workflow status signals.
	// The subject is of the form: lfx.workflow.signal.<workflow_type>
	WorkflowSignalSubjectPrefix = "lfx.workflow.signal."

	// NotificationCreateSubject is the subject for user-facing notifications.
	// The subject is of the form: lfx.notifications.create
	NotificationCreateSubject = "lfx.notifications.create"
)

// NATS subjects that the webhook service handles messages about.
const (
	// EnrichmentRequestSubject is the subject for starting an outbound enrichment request.
	// The subject is of the form: lfx.webhooks.enrichment.request
	EnrichmentRequestSubject = "lfx.webhooks.enrichment.request"
)

// Workflow types started or signaled by webhook side effects.
const (
	WorkflowTypeMeetingBot     = "meeting_bot"
	WorkflowTypePostMeeting    = "post_meeting"
	WorkflowTypeCalendarSync   = "calendar_sync"
	WorkflowTypeEnrichment     = "contact_enrichment"
	WorkflowIDPrefixPostMeet   = "post-meeting-"
	WorkflowIDPrefixCalSync    = "calendar-sync-"
	WorkflowIDPrefixEnrichment = "enrichment-"
)

// WorkflowStartRequest asks the workflow engine to start a workflow. The
// engine treats WorkflowID as an idempotency key.
type WorkflowStartRequest struct {
	WorkflowType string         `json:"workflow_type"`
	WorkflowID   string         `json:"workflow_id"`
	TenantID     string         `json:"tenant_id,omitempty"`
	Input        map[string]any `json:"input,omitempty"`
}

// WorkflowHandle identifies a started workflow run.
type WorkflowHandle struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// WorkflowSignal reports the current status of an entity to its workflow.
type WorkflowSignal struct {
	WorkflowType string    `json:"workflow_type"`
	EntityID     string    `json:"entity_id"`
	Status       string    `json:"status"`
	TenantID     string    `json:"tenant_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notification is a user-facing notification published for the notification service.
type Notification struct {
	// DedupKey lets the consumer discard repeated notifications for the same transition.
	DedupKey   string    `json:"dedup_key"`
	TenantID   string    `json:"tenant_id"`
	Kind       string    `json:"kind"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EnrichmentRequestMessage is the payload of an EnrichmentRequestSubject request.
type EnrichmentRequestMessage struct {
	TenantID    string   `json:"tenant_id"`
	ContactUIDs []string `json:"contact_uids"`
}

// EnrichmentRequestReply is sent back to the EnrichmentRequestSubject caller.
type EnrichmentRequestReply struct {
	JobUID    string `json:"job_uid,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WorkflowStartReply is the workflow engine's answer to a WorkflowStartRequest.
type WorkflowStartReply struct {
	RunID string `json:"run_id"`
	Error string `json:"error,omitempty"`
}
