// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
)

// EnrichmentRequester starts an outbound enrichment request.
type EnrichmentRequester interface {
	RequestEnrichment(ctx context.Context, msg models.EnrichmentRequestMessage) (*models.EnrichmentJob, error)
	ServiceReady() bool
}

// EnrichmentRequestHandler handles enrichment requests sent over NATS.
type EnrichmentRequestHandler struct {
	requester EnrichmentRequester
}

// NewEnrichmentRequestHandler creates an EnrichmentRequestHandler
func NewEnrichmentRequestHandler(requester EnrichmentRequester) *EnrichmentRequestHandler {
	return &EnrichmentRequestHandler{requester: requester}
}

func (h *EnrichmentRequestHandler) HandlerReady() bool {
	return h.requester.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *EnrichmentRequestHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	if subject != models.EnrichmentRequestSubject {
		slog.WarnContext(ctx, "unknown subject")
		h.reply(ctx, msg, models.EnrichmentRequestReply{Error: "unknown subject"})
		return
	}

	var request models.EnrichmentRequestMessage
	if err := json.Unmarshal(msg.Data(), &request); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling enrichment request", logging.ErrKey, err)
		h.reply(ctx, msg, models.EnrichmentRequestReply{Error: "invalid enrichment request"})
		return
	}

	job, err := h.requester.RequestEnrichment(ctx, request)
	if err != nil {
		slog.ErrorContext(ctx, "error requesting enrichment", logging.ErrKey, err)
		h.reply(ctx, msg, models.EnrichmentRequestReply{Error: err.Error()})
		return
	}

	h.reply(ctx, msg, models.EnrichmentRequestReply{JobUID: job.UID, RequestID: job.RequestData.RequestID})
}

func (h *EnrichmentRequestHandler) reply(ctx context.Context, msg domain.Message, reply models.EnrichmentRequestReply) {
	if !msg.HasReply() {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling enrichment reply", logging.ErrKey, err)
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
	}
}
