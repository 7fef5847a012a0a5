// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
)

// Translation is the closed set of reconciliation effects a provider event can
// request. Every event translates to exactly one variant.
type Translation interface {
	translation()
}

// BotTransition moves a bot session, and through it the meeting, along the
// meeting lifecycle.
type BotTransition struct {
	ProviderBotID string
	RawStatus     BotStatusCode
	Status        models.MeetingStatus
	// CountJoinAttempt increments the session join counter on every delivery.
	CountJoinAttempt bool
	// MarkJoined sets the session joinedAt when it is unset.
	MarkJoined    bool
	FailureReason *string
	OccurredAt    time.Time
}

// CalendarSyncRequest asks for a sync of the connection behind a push channel.
type CalendarSyncRequest struct {
	Provider   models.Provider
	ChannelID  string
	ResourceID string
	// Reauthorize is set for subscription lifecycle notifications.
	Reauthorize bool
	Reason      string
}

// EnrichmentCompletion finishes the enrichment job behind a provider request id.
type EnrichmentCompletion struct {
	RequestID     string
	Status        models.EnrichmentJobStatus
	FailureReason *string
	Items         []models.EnrichmentResultItem
}

// NoTransition is a recognized status that carries no lifecycle effect.
type NoTransition struct {
	Reason string
}

// Unrecognized is a status outside the provider's known vocabulary. The event
// is still recorded and acknowledged.
type Unrecognized struct {
	Raw string
}

func (BotTransition) translation()        {}
func (CalendarSyncRequest) translation()  {}
func (EnrichmentCompletion) translation() {}
func (NoTransition) translation()         {}
func (Unrecognized) translation()         {}

// BotStatusCode is the bot provider's raw status vocabulary.
type BotStatusCode string

const (
	BotStatusReady                      BotStatusCode = "ready"
	BotStatusJoiningCall                BotStatusCode = "joining_call"
	BotStatusJoining                    BotStatusCode = "joining"
	BotStatusInWaitingRoom              BotStatusCode = "in_waiting_room"
	BotStatusInCallNotRecording         BotStatusCode = "in_call_not_recording"
	BotStatusRecordingPermissionAllowed BotStatusCode = "recording_permission_allowed"
	BotStatusRecordingPermissionDenied  BotStatusCode = "recording_permission_denied"
	BotStatusInCallRecording            BotStatusCode = "in_call_recording"
	BotStatusCallEnded                  BotStatusCode = "call_ended"
	BotStatusDone                       BotStatusCode = "done"
	BotStatusAnalysisDone               BotStatusCode = "analysis_done"
	BotStatusFatal                      BotStatusCode = "fatal"
	BotStatusAnalysisFailed             BotStatusCode = "analysis_failed"
	BotStatusMediaExpired               BotStatusCode = "media_expired"
)

type botRule struct {
	status      models.MeetingStatus
	joinAttempt bool
	joined      bool
	failure     bool
}

var botRules = map[BotStatusCode]botRule{
	BotStatusReady:                      {status: models.MeetingStatusScheduled},
	BotStatusJoiningCall:                {status: models.MeetingStatusBotJoining, joinAttempt: true},
	BotStatusJoining:                    {status: models.MeetingStatusBotJoining, joinAttempt: true},
	BotStatusInWaitingRoom:              {status: models.MeetingStatusBotJoining},
	BotStatusInCallNotRecording:         {status: models.MeetingStatusBotJoining, joined: true},
	BotStatusRecordingPermissionAllowed: {status: models.MeetingStatusBotJoining, joined: true},
	BotStatusRecordingPermissionDenied:  {status: models.MeetingStatusFailed, failure: true},
	BotStatusInCallRecording:            {status: models.MeetingStatusRecording, joined: true},
	BotStatusCallEnded:                  {status: models.MeetingStatusReady},
	BotStatusDone:                       {status: models.MeetingStatusReady},
	BotStatusAnalysisDone:               {status: models.MeetingStatusReady},
	BotStatusFatal:                      {status: models.MeetingStatusFailed, failure: true},
	BotStatusAnalysisFailed:             {status: models.MeetingStatusFailed, failure: true},
}

// TranslateBot maps a bot status change to a lifecycle transition.
func TranslateBot(payload *models.BotWebhookPayload, receivedAt time.Time) Translation {
	if payload == nil {
		return Unrecognized{}
	}
	change := payload.Data.Status
	code := BotStatusCode(change.Code)

	if code == BotStatusMediaExpired {
		return NoTransition{Reason: "recording media expired"}
	}
	rule, ok := botRules[code]
	if !ok {
		return Unrecognized{Raw: change.Code}
	}

	occurredAt := receivedAt
	if change.CreatedAt != nil && !change.CreatedAt.IsZero() {
		occurredAt = *change.CreatedAt
	}

	transition := BotTransition{
		ProviderBotID:    payload.Data.BotID,
		RawStatus:        code,
		Status:           rule.status,
		CountJoinAttempt: rule.joinAttempt,
		MarkJoined:       rule.joined,
		OccurredAt:       occurredAt.UTC(),
	}
	if rule.failure {
		reason := botFailureReason(change)
		transition.FailureReason = &reason
	}
	return transition
}

// botFailureReason prefers the status-change message, then the sub code.
func botFailureReason(change models.BotStatusChange) string {
	return utils.CoalesceString(change.Message, change.SubCode, &change.Code)
}

// Google resource states
const (
	googleStateSync      = "sync"
	googleStateExists    = "exists"
	googleStateNotExists = "not_exists"
)

// TranslateGoogle maps a Google push notification to a sync request.
func TranslateGoogle(n *models.GoogleChannelNotification) Translation {
	if n == nil {
		return Unrecognized{}
	}
	switch n.ResourceState {
	case googleStateExists, googleStateNotExists:
		return CalendarSyncRequest{
			Provider:   models.ProviderCalendarGoogle,
			ChannelID:  n.ChannelID,
			ResourceID: n.ResourceID,
			Reason:     n.ResourceState,
		}
	case googleStateSync:
		return NoTransition{Reason: "channel sync handshake"}
	default:
		return Unrecognized{Raw: n.ResourceState}
	}
}

// Microsoft Graph change types and lifecycle events
const (
	microsoftChangeCreated               = "created"
	microsoftChangeUpdated               = "updated"
	microsoftChangeDeleted               = "deleted"
	microsoftLifecycleRemoved            = "subscriptionRemoved"
	microsoftLifecycleMissed             = "missed"
	microsoftLifecycleReauthorizeRequest = "reauthorizationRequired"
)

// TranslateMicrosoft maps a Graph change notification to a sync request.
func TranslateMicrosoft(n *models.MicrosoftChangeNotification) Translation {
	if n == nil {
		return Unrecognized{}
	}
	if n.LifecycleEvent != "" {
		switch n.LifecycleEvent {
		case microsoftLifecycleRemoved, microsoftLifecycleMissed, microsoftLifecycleReauthorizeRequest:
			return CalendarSyncRequest{
				Provider:    models.ProviderCalendarMicrosoft,
				ChannelID:   n.SubscriptionID,
				Reauthorize: true,
				Reason:      n.LifecycleEvent,
			}
		default:
			return Unrecognized{Raw: n.LifecycleEvent}
		}
	}

	// Graph may join several change types with commas
	for _, changeType := range strings.Split(n.ChangeType, ",") {
		switch strings.TrimSpace(changeType) {
		case microsoftChangeCreated, microsoftChangeUpdated, microsoftChangeDeleted:
			return CalendarSyncRequest{
				Provider:  models.ProviderCalendarMicrosoft,
				ChannelID: n.SubscriptionID,
				Reason:    n.ChangeType,
			}
		}
	}
	return Unrecognized{Raw: n.ChangeType}
}

// Enrichment provider request statuses
const (
	enrichmentStatusFinished            = "FINISHED"
	enrichmentStatusInProgress          = "IN_PROGRESS"
	enrichmentStatusCanceled            = "CANCELED"
	enrichmentStatusCreditsInsufficient = "CREDITS_INSUFFICIENT"
	enrichmentStatusRateLimit           = "RATE_LIMIT"
	enrichmentStatusUnknown             = "UNKNOWN"
)

// TranslateEnrichment maps an enrichment callback to a job completion.
func TranslateEnrichment(payload *models.EnrichmentWebhookPayload) Translation {
	if payload == nil {
		return Unrecognized{}
	}
	status := strings.ToUpper(payload.Status)
	switch status {
	case enrichmentStatusFinished:
		return EnrichmentCompletion{
			RequestID: payload.RequestID,
			Status:    models.EnrichmentJobStatusCompleted,
			Items:     payload.Items,
		}
	case enrichmentStatusCanceled, enrichmentStatusCreditsInsufficient, enrichmentStatusRateLimit, enrichmentStatusUnknown:
		reason := "enrichment " + strings.ToLower(status)
		return EnrichmentCompletion{
			RequestID:     payload.RequestID,
			Status:        models.EnrichmentJobStatusFailed,
			FailureReason: &reason,
		}
	case enrichmentStatusInProgress:
		return NoTransition{Reason: "enrichment in progress"}
	default:
		return Unrecognized{Raw: payload.Status}
	}
}

// Translate dispatches an event to its provider's translator.
func Translate(event models.InboundEvent) Translation {
	switch event.Provider {
	case models.ProviderBot:
		return TranslateBot(event.Bot, event.ReceivedAt)
	case models.ProviderCalendarGoogle:
		return TranslateGoogle(event.Google)
	case models.ProviderCalendarMicrosoft:
		return TranslateMicrosoft(event.Microsoft)
	case models.ProviderEnrichment:
		return TranslateEnrichment(event.Enrichment)
	default:
		return Unrecognized{Raw: string(event.Provider)}
	}
}
