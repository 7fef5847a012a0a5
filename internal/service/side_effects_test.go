// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSideEffects_ForMeeting(t *testing.T) {
	session := models.MeetingBotSession{UID: "session-1", ProviderBotID: "bot-1"}

	tests := []struct {
		name        string
		status      models.MeetingStatus
		wantActions []string
	}{
		{"joining signals only", models.MeetingStatusBotJoining, []string{ActionSignalMeetingStatus}},
		{"recording signals only", models.MeetingStatusRecording, []string{ActionSignalMeetingStatus}},
		{"ready starts post-meeting processing", models.MeetingStatusReady, []string{ActionSignalMeetingStatus, ActionStartPostMeetingWorkflow}},
		{"failed notifies", models.MeetingStatusFailed, []string{ActionSignalMeetingStatus, ActionCreateNotification}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effects := NewSideEffects(&recordingSink{}, &recordingNotifier{})
			meeting := models.Meeting{UID: "meeting-1", TenantID: "tenant-1", Status: tt.status, UpdatedAt: utils.TimePtr(testTime)}
			assert.Equal(t, tt.wantActions, actionNames(effects.ForMeeting(meeting, session)))
		})
	}
}

func TestSideEffects_WithoutCollaborators(t *testing.T) {
	effects := NewSideEffects(nil, nil)
	meeting := models.Meeting{UID: "meeting-1", Status: models.MeetingStatusFailed}

	assert.Empty(t, effects.ForMeeting(meeting, models.MeetingBotSession{}))
	assert.Empty(t, effects.ForCalendar(models.CalendarConnection{UID: "conn-1"}, CalendarSyncRequest{}))
	assert.Empty(t, effects.ForEnrichment(models.EnrichmentJob{UID: "job-1"}))
}

func TestSideEffects_SignalCarriesCurrentStatus(t *testing.T) {
	ctx := context.Background()
	sink := &mocks.MockWorkflowSink{}
	sink.On("SignalStatus", mock.Anything, mock.MatchedBy(func(signal models.WorkflowSignal) bool {
		return signal.WorkflowType == models.WorkflowTypeMeetingBot &&
			signal.EntityID == "meeting-1" &&
			signal.Status == string(models.MeetingStatusRecording) &&
			signal.TenantID == "tenant-1" &&
			signal.OccurredAt.Equal(testTime)
	})).Return(nil).Once()

	effects := NewSideEffects(sink, nil)
	meeting := models.Meeting{UID: "meeting-1", TenantID: "tenant-1", Status: models.MeetingStatusRecording, UpdatedAt: utils.TimePtr(testTime)}
	actions := effects.ForMeeting(meeting, models.MeetingBotSession{})

	require.Len(t, actions, 1)
	require.NoError(t, actions[0].Run(ctx))
	sink.AssertExpectations(t)
}

func TestSideEffects_ForEnrichment(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	effects := NewSideEffects(sink, nil)

	job := models.EnrichmentJob{UID: "job-1", TenantID: "tenant-1", Status: models.EnrichmentJobStatusFailed, CompletedAt: utils.TimePtr(testTime)}
	require.Empty(t, runActions(ctx, effects.ForEnrichment(job)))

	signals := sink.Signals()
	require.Len(t, signals, 1)
	assert.Equal(t, models.WorkflowTypeEnrichment, signals[0].WorkflowType)
	assert.Equal(t, "FAILED", signals[0].Status)
	assert.True(t, testTime.Equal(signals[0].OccurredAt))
}
