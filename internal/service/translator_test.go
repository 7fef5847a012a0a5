// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func botPayload(code string) *models.BotWebhookPayload {
	return &models.BotWebhookPayload{
		Event: "bot.status_change",
		Data: models.BotWebhookData{
			BotID:  "bot-1",
			Status: models.BotStatusChange{Code: code},
		},
	}
}

func TestTranslateBot(t *testing.T) {
	received := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		code        string
		wantStatus  models.MeetingStatus
		joinAttempt bool
		joined      bool
		failure     bool
	}{
		{code: "ready", wantStatus: models.MeetingStatusScheduled},
		{code: "joining_call", wantStatus: models.MeetingStatusBotJoining, joinAttempt: true},
		{code: "joining", wantStatus: models.MeetingStatusBotJoining, joinAttempt: true},
		{code: "in_waiting_room", wantStatus: models.MeetingStatusBotJoining},
		{code: "in_call_not_recording", wantStatus: models.MeetingStatusBotJoining, joined: true},
		{code: "recording_permission_allowed", wantStatus: models.MeetingStatusBotJoining, joined: true},
		{code: "recording_permission_denied", wantStatus: models.MeetingStatusFailed, failure: true},
		{code: "in_call_recording", wantStatus: models.MeetingStatusRecording, joined: true},
		{code: "call_ended", wantStatus: models.MeetingStatusReady},
		{code: "done", wantStatus: models.MeetingStatusReady},
		{code: "analysis_done", wantStatus: models.MeetingStatusReady},
		{code: "fatal", wantStatus: models.MeetingStatusFailed, failure: true},
		{code: "analysis_failed", wantStatus: models.MeetingStatusFailed, failure: true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			translation := TranslateBot(botPayload(tt.code), received)

			transition, ok := translation.(BotTransition)
			require.True(t, ok, "got %T", translation)
			assert.Equal(t, "bot-1", transition.ProviderBotID)
			assert.Equal(t, tt.wantStatus, transition.Status)
			assert.Equal(t, tt.joinAttempt, transition.CountJoinAttempt)
			assert.Equal(t, tt.joined, transition.MarkJoined)
			assert.Equal(t, tt.failure, transition.FailureReason != nil)
			assert.Equal(t, received, transition.OccurredAt)
		})
	}
}

func TestTranslateBot_NonTransitions(t *testing.T) {
	assert.IsType(t, NoTransition{}, TranslateBot(botPayload("media_expired"), time.Now()))
	assert.Equal(t, Unrecognized{Raw: "teleported"}, TranslateBot(botPayload("teleported"), time.Now()))
	assert.Equal(t, Unrecognized{}, TranslateBot(nil, time.Now()))
}

func TestTranslateBot_FailureReason(t *testing.T) {
	tests := []struct {
		name    string
		message *string
		subCode *string
		want    string
	}{
		{name: "message", message: utils.StringPtr("media error"), subCode: utils.StringPtr("bot_errored"), want: "media error"},
		{name: "sub code", subCode: utils.StringPtr("meeting_not_found"), want: "meeting_not_found"},
		{name: "empty message falls back", message: utils.StringPtr(""), want: "fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := botPayload("fatal")
			payload.Data.Status.Message = tt.message
			payload.Data.Status.SubCode = tt.subCode

			transition := TranslateBot(payload, time.Now()).(BotTransition)
			require.NotNil(t, transition.FailureReason)
			assert.Equal(t, tt.want, *transition.FailureReason)
		})
	}
}

func TestTranslateBot_UsesProviderTimestamp(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 59, 0, 0, time.FixedZone("CEST", 2*3600))
	payload := botPayload("in_call_recording")
	payload.Data.Status.CreatedAt = &created

	transition := TranslateBot(payload, time.Now()).(BotTransition)
	assert.True(t, created.Equal(transition.OccurredAt))
	assert.Equal(t, time.UTC, transition.OccurredAt.Location())
}

func TestTranslateGoogle(t *testing.T) {
	tests := []struct {
		state string
		want  Translation
	}{
		{state: "exists", want: CalendarSyncRequest{Provider: models.ProviderCalendarGoogle, ChannelID: "chan-1", ResourceID: "res-1", Reason: "exists"}},
		{state: "not_exists", want: CalendarSyncRequest{Provider: models.ProviderCalendarGoogle, ChannelID: "chan-1", ResourceID: "res-1", Reason: "not_exists"}},
		{state: "sync", want: NoTransition{Reason: "channel sync handshake"}},
		{state: "moved", want: Unrecognized{Raw: "moved"}},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got := TranslateGoogle(&models.GoogleChannelNotification{
				ChannelID:     "chan-1",
				ResourceID:    "res-1",
				ResourceState: tt.state,
				MessageNumber: "1",
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateMicrosoft(t *testing.T) {
	tests := []struct {
		name         string
		notification models.MicrosoftChangeNotification
		want         Translation
	}{
		{
			name:         "updated",
			notification: models.MicrosoftChangeNotification{SubscriptionID: "sub-1", ChangeType: "updated"},
			want:         CalendarSyncRequest{Provider: models.ProviderCalendarMicrosoft, ChannelID: "sub-1", Reason: "updated"},
		},
		{
			name:         "combined change types",
			notification: models.MicrosoftChangeNotification{SubscriptionID: "sub-1", ChangeType: "created,deleted"},
			want:         CalendarSyncRequest{Provider: models.ProviderCalendarMicrosoft, ChannelID: "sub-1", Reason: "created,deleted"},
		},
		{
			name:         "reauthorization",
			notification: models.MicrosoftChangeNotification{SubscriptionID: "sub-1", LifecycleEvent: "reauthorizationRequired"},
			want:         CalendarSyncRequest{Provider: models.ProviderCalendarMicrosoft, ChannelID: "sub-1", Reauthorize: true, Reason: "reauthorizationRequired"},
		},
		{
			name:         "unknown lifecycle event",
			notification: models.MicrosoftChangeNotification{SubscriptionID: "sub-1", LifecycleEvent: "paused"},
			want:         Unrecognized{Raw: "paused"},
		},
		{
			name:         "unknown change type",
			notification: models.MicrosoftChangeNotification{SubscriptionID: "sub-1", ChangeType: "archived"},
			want:         Unrecognized{Raw: "archived"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateMicrosoft(&tt.notification))
		})
	}
}

func TestTranslateEnrichment(t *testing.T) {
	items := []models.EnrichmentResultItem{{Email: "ada@example.com"}}

	finished := TranslateEnrichment(&models.EnrichmentWebhookPayload{RequestID: "req-1", Status: "FINISHED", Items: items})
	assert.Equal(t, EnrichmentCompletion{RequestID: "req-1", Status: models.EnrichmentJobStatusCompleted, Items: items}, finished)

	for _, status := range []string{"CANCELED", "CREDITS_INSUFFICIENT", "RATE_LIMIT", "UNKNOWN", "canceled"} {
		t.Run(status, func(t *testing.T) {
			completion, ok := TranslateEnrichment(&models.EnrichmentWebhookPayload{RequestID: "req-1", Status: status}).(EnrichmentCompletion)
			require.True(t, ok)
			assert.Equal(t, models.EnrichmentJobStatusFailed, completion.Status)
			require.NotNil(t, completion.FailureReason)
		})
	}

	assert.IsType(t, NoTransition{}, TranslateEnrichment(&models.EnrichmentWebhookPayload{Status: "IN_PROGRESS"}))
	assert.Equal(t, Unrecognized{Raw: "QUEUED"}, TranslateEnrichment(&models.EnrichmentWebhookPayload{Status: "QUEUED"}))
}

func TestTranslate_Dispatch(t *testing.T) {
	assert.IsType(t, BotTransition{}, Translate(models.InboundEvent{Provider: models.ProviderBot, Bot: botPayload("done")}))
	assert.IsType(t, CalendarSyncRequest{}, Translate(models.InboundEvent{
		Provider: models.ProviderCalendarGoogle,
		Google:   &models.GoogleChannelNotification{ChannelID: "c", ResourceState: "exists"},
	}))
	assert.IsType(t, Unrecognized{}, Translate(models.InboundEvent{Provider: "FAX"}))
	// provider set without its payload never panics
	assert.IsType(t, Unrecognized{}, Translate(models.InboundEvent{Provider: models.ProviderCalendarMicrosoft}))
}
