// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// WorkflowSink is the workflow orchestration engine as seen by side-effect dispatch.
// Both calls are fire-and-forget; the engine owns retries.
type WorkflowSink interface {
	StartWorkflow(ctx context.Context, req models.WorkflowStartRequest) (*models.WorkflowHandle, error)
	SignalStatus(ctx context.Context, signal models.WorkflowSignal) error
}

// NotificationSender publishes user-facing notifications.
type NotificationSender interface {
	SendNotification(ctx context.Context, notification models.Notification) error
}

// EnrichmentProvider submits outbound enrichment requests.
type EnrichmentProvider interface {
	RequestEnrichment(ctx context.Context, req models.EnrichmentAPIRequest) (*models.EnrichmentAPIResponse, error)
}
