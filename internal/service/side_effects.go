// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
)

// Action names
const (
	ActionSignalMeetingStatus      = "workflow.signal_meeting_status"
	ActionStartPostMeetingWorkflow = "workflow.start_post_meeting"
	ActionCreateNotification       = "notification.create"
	ActionStartCalendarSync        = "workflow.start_calendar_sync"
	ActionSignalEnrichmentStatus   = "workflow.signal_enrichment_status"
	ActionApplyEnrichmentBatch     = "enrichment.apply_batch"
)

// NotificationKindRecordingFailed is sent when a meeting recording fails.
const NotificationKindRecordingFailed = "meeting.recording_failed"

// SideEffects builds the downstream actions for applied transitions. Every
// action is idempotent on the receiving side: signals carry the current
// status, starts carry a deterministic workflow id and notifications a dedup key.
type SideEffects struct {
	workflows domain.WorkflowSink
	notifier  domain.NotificationSender
}

// NewSideEffects creates a SideEffects. Either collaborator may be nil, which
// drops its actions.
func NewSideEffects(workflows domain.WorkflowSink, notifier domain.NotificationSender) *SideEffects {
	return &SideEffects{workflows: workflows, notifier: notifier}
}

// ForMeeting returns the actions for a meeting that moved to a new status.
func (s *SideEffects) ForMeeting(meeting models.Meeting, session models.MeetingBotSession) []Action {
	occurredAt := utils.Value(meeting.UpdatedAt)
	var actions []Action

	if s.workflows != nil {
		signal := models.WorkflowSignal{
			WorkflowType: models.WorkflowTypeMeetingBot,
			EntityID:     meeting.UID,
			Status:       string(meeting.Status),
			TenantID:     meeting.TenantID,
			OccurredAt:   occurredAt,
		}
		actions = append(actions, Action{
			Name: ActionSignalMeetingStatus,
			Run: func(ctx context.Context) error {
				return s.workflows.SignalStatus(ctx, signal)
			},
		})

		if meeting.Status == models.MeetingStatusReady {
			start := models.WorkflowStartRequest{
				WorkflowType: models.WorkflowTypePostMeeting,
				WorkflowID:   models.WorkflowIDPrefixPostMeet + meeting.UID,
				TenantID:     meeting.TenantID,
				Input: map[string]any{
					"meeting_uid":     meeting.UID,
					"bot_session_uid": session.UID,
					"provider_bot_id": session.ProviderBotID,
				},
			}
			actions = append(actions, Action{
				Name: ActionStartPostMeetingWorkflow,
				Run: func(ctx context.Context) error {
					_, err := s.workflows.StartWorkflow(ctx, start)
					return err
				},
			})
		}
	}

	if s.notifier != nil && meeting.Status == models.MeetingStatusFailed {
		notification := models.Notification{
			DedupKey:   meeting.UID + ":" + string(meeting.Status),
			TenantID:   meeting.TenantID,
			Kind:       NotificationKindRecordingFailed,
			EntityType: "meeting",
			EntityID:   meeting.UID,
			Title:      recordingFailedTitle(meeting),
			Body:       utils.StringValue(meeting.FailureReason),
			CreatedAt:  occurredAt,
		}
		actions = append(actions, Action{
			Name: ActionCreateNotification,
			Run: func(ctx context.Context) error {
				return s.notifier.SendNotification(ctx, notification)
			},
		})
	}

	return actions
}

func recordingFailedTitle(meeting models.Meeting) string {
	if meeting.Title == "" {
		return "Meeting recording failed"
	}
	return "Recording failed for " + meeting.Title
}

// ForCalendar returns the actions for a calendar change on an active connection.
func (s *SideEffects) ForCalendar(connection models.CalendarConnection, req CalendarSyncRequest) []Action {
	if s.workflows == nil {
		return nil
	}
	start := models.WorkflowStartRequest{
		WorkflowType: models.WorkflowTypeCalendarSync,
		WorkflowID:   models.WorkflowIDPrefixCalSync + connection.UID,
		TenantID:     connection.TenantID,
		Input: map[string]any{
			"connection_uid": connection.UID,
			"provider":       string(connection.Provider),
			"user_id":        connection.UserID,
			"reauthorize":    req.Reauthorize,
			"reason":         req.Reason,
		},
	}
	return []Action{{
		Name: ActionStartCalendarSync,
		Run: func(ctx context.Context) error {
			_, err := s.workflows.StartWorkflow(ctx, start)
			return err
		},
	}}
}

// ForEnrichment returns the actions for an enrichment job that reached a terminal status.
func (s *SideEffects) ForEnrichment(job models.EnrichmentJob) []Action {
	if s.workflows == nil {
		return nil
	}
	occurredAt := utils.Value(job.CompletedAt)
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	signal := models.WorkflowSignal{
		WorkflowType: models.WorkflowTypeEnrichment,
		EntityID:     job.UID,
		Status:       string(job.Status),
		TenantID:     job.TenantID,
		OccurredAt:   occurredAt,
	}
	return []Action{{
		Name: ActionSignalEnrichmentStatus,
		Run: func(ctx context.Context) error {
			return s.workflows.SignalStatus(ctx, signal)
		},
	}}
}
