// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
)

// maxReconcileRetries bounds compare-and-set retries on one entity row.
const maxReconcileRetries = 5

// Result is the outcome of reconciling one event against its entity.
type Result struct {
	Outcome       models.EventOutcome
	TenantID      string
	FailureReason string
	// Actions are dispatched only when Outcome is OutcomeApplied.
	Actions []Action
}

func notFoundResult() *Result {
	return &Result{Outcome: models.OutcomeNotFound, FailureReason: models.FailureReasonEntityNotFound}
}

func conflictResult(tenantID, entity string) *Result {
	return &Result{
		Outcome:       models.OutcomeConflict,
		TenantID:      tenantID,
		FailureReason: fmt.Sprintf("%s still contended after %d attempts", entity, maxReconcileRetries),
	}
}

// Reconciler folds translated bot and calendar events into entity state.
// Every mutation is a single conditional update on the entity's revision.
type Reconciler struct {
	meetings  domain.MeetingRepository
	sessions  domain.MeetingBotSessionRepository
	calendars domain.CalendarConnectionRepository
	effects   *SideEffects
	now       func() time.Time
}

// NewReconciler creates a Reconciler
func NewReconciler(
	meetings domain.MeetingRepository,
	sessions domain.MeetingBotSessionRepository,
	calendars domain.CalendarConnectionRepository,
	effects *SideEffects,
) *Reconciler {
	return &Reconciler{
		meetings:  meetings,
		sessions:  sessions,
		calendars: calendars,
		effects:   effects,
		now:       time.Now,
	}
}

// IsReady checks if every entity store is ready
func (r *Reconciler) IsReady(ctx context.Context) bool {
	return r.meetings != nil && r.meetings.IsReady(ctx) &&
		r.sessions != nil && r.sessions.IsReady(ctx) &&
		r.calendars != nil && r.calendars.IsReady(ctx)
}

// ReconcileBot applies a bot status change to its session and meeting. The
// session always records the delivery; the meeting only moves forward.
func (r *Reconciler) ReconcileBot(ctx context.Context, t BotTransition, payload json.RawMessage) (*Result, error) {
	session, revision, err := r.sessions.GetByProviderBotID(ctx, t.ProviderBotID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "bot session not found", "provider_bot_id", t.ProviderBotID)
			return notFoundResult(), nil
		}
		return nil, err
	}

	session, err = r.updateSession(ctx, session, revision, t, payload)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return conflictResult(session.TenantID, "bot session"), nil
		}
		return nil, err
	}

	return r.advanceMeeting(ctx, session, t)
}

// updateSession records the delivery on the session row.
func (r *Reconciler) updateSession(ctx context.Context, session *models.MeetingBotSession, revision uint64, t BotTransition, payload json.RawMessage) (*models.MeetingBotSession, error) {
	for attempt := 0; ; attempt++ {
		now := r.now().UTC()
		if t.CountJoinAttempt {
			session.JoinAttempts++
		}
		session.LastRawStatus = string(t.RawStatus)
		if len(payload) > 0 {
			session.ProviderPayload = payload
		}
		if t.MarkJoined {
			utils.SetOnce(&session.JoinedAt, t.OccurredAt)
		}
		if session.Status.Advances(t.Status) {
			session.Status = t.Status
			if t.Status.IsTerminal() {
				utils.SetOnce(&session.LeftAt, t.OccurredAt)
			}
			if t.Status == models.MeetingStatusFailed && t.FailureReason != nil {
				session.FailureReason = t.FailureReason
			}
		}
		session.UpdatedAt = &now

		err := r.sessions.Update(ctx, session, revision)
		if err == nil {
			return session, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict || attempt+1 >= maxReconcileRetries {
			return session, err
		}

		slog.DebugContext(ctx, "bot session modified concurrently, retrying", "session_uid", session.UID, "attempt", attempt+1)
		session, revision, err = r.sessions.GetWithRevision(ctx, session.UID)
		if err != nil {
			return nil, err
		}
	}
}

// advanceMeeting moves the session's meeting forward when the status advances.
func (r *Reconciler) advanceMeeting(ctx context.Context, session *models.MeetingBotSession, t BotTransition) (*Result, error) {
	for attempt := 0; attempt < maxReconcileRetries; attempt++ {
		meeting, revision, err := r.meetings.GetWithRevision(ctx, session.MeetingUID)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				slog.WarnContext(ctx, "meeting not found for bot session",
					"session_uid", session.UID,
					"meeting_uid", session.MeetingUID,
				)
				result := notFoundResult()
				result.TenantID = session.TenantID
				return result, nil
			}
			return nil, err
		}

		if !meeting.Status.Advances(t.Status) {
			slog.DebugContext(ctx, "meeting transition rejected",
				"meeting_uid", meeting.UID,
				"current_status", meeting.Status,
				"incoming_status", t.Status,
			)
			return &Result{Outcome: models.OutcomeNoOp, TenantID: meeting.TenantID}, nil
		}

		now := r.now().UTC()
		meeting.Status = t.Status
		meeting.ActiveBotSessionUID = session.UID
		if t.Status == models.MeetingStatusRecording {
			utils.SetOnce(&meeting.StartedAt, t.OccurredAt)
		}
		if t.Status.IsTerminal() {
			utils.SetOnce(&meeting.EndedAt, t.OccurredAt)
		}
		if t.Status == models.MeetingStatusFailed && t.FailureReason != nil {
			meeting.FailureReason = t.FailureReason
		}
		meeting.UpdatedAt = &now

		err = r.meetings.Update(ctx, meeting, revision)
		if err == nil {
			slog.InfoContext(ctx, "meeting status advanced",
				"meeting_uid", meeting.UID,
				"status", meeting.Status,
				"raw_status", t.RawStatus,
			)
			return &Result{
				Outcome:  models.OutcomeApplied,
				TenantID: meeting.TenantID,
				Actions:  r.effects.ForMeeting(*meeting, *session),
			}, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, err
		}
		slog.DebugContext(ctx, "meeting modified concurrently, retrying", "meeting_uid", meeting.UID, "attempt", attempt+1)
	}
	return conflictResult(session.TenantID, "meeting"), nil
}

// ReconcileCalendar resolves the connection behind a push channel and
// requests a sync when it is active. The connection row is never written.
func (r *Reconciler) ReconcileCalendar(ctx context.Context, req CalendarSyncRequest) (*Result, error) {
	connection, err := r.calendars.GetByChannelID(ctx, req.Provider, req.ChannelID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "calendar connection not found", "channel_id", req.ChannelID)
			return notFoundResult(), nil
		}
		return nil, err
	}

	if !connection.IsActive {
		return &Result{Outcome: models.OutcomeNoOp, TenantID: connection.TenantID, FailureReason: "calendar connection inactive"}, nil
	}
	if req.ResourceID != "" && connection.ResourceID != "" && req.ResourceID != connection.ResourceID {
		slog.WarnContext(ctx, "calendar notification for a stale resource",
			"connection_uid", connection.UID,
			"resource_id", req.ResourceID,
		)
		return &Result{Outcome: models.OutcomeNoOp, TenantID: connection.TenantID, FailureReason: "resource id mismatch"}, nil
	}

	return &Result{
		Outcome:  models.OutcomeApplied,
		TenantID: connection.TenantID,
		Actions:  r.effects.ForCalendar(*connection, req),
	}, nil
}
