// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// MeetingStatus is the canonical lifecycle status of a recorded meeting.
type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "SCHEDULED"
	MeetingStatusBotJoining MeetingStatus = "BOT_JOINING"
	MeetingStatusRecording  MeetingStatus = "RECORDING"
	MeetingStatusReady      MeetingStatus = "READY"
	MeetingStatusCancelled  MeetingStatus = "CANCELLED"
	MeetingStatusFailed     MeetingStatus = "FAILED"
)

// position is the rank of a status along SCHEDULED -> BOT_JOINING -> RECORDING -> READY.
// CANCELLED and FAILED branch off any non-terminal status, so they rank after READY.
var meetingStatusPosition = map[MeetingStatus]int{
	MeetingStatusScheduled:  0,
	MeetingStatusBotJoining: 1,
	MeetingStatusRecording:  2,
	MeetingStatusReady:      3,
	MeetingStatusCancelled:  3,
	MeetingStatusFailed:     3,
}

// IsValid reports whether s is a known lifecycle status.
func (s MeetingStatus) IsValid() bool {
	_, ok := meetingStatusPosition[s]
	return ok
}

// IsTerminal reports whether s is absorbing.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusReady || s == MeetingStatusCancelled || s == MeetingStatusFailed
}

// Position returns the lifecycle rank of s, or -1 when s is unknown.
func (s MeetingStatus) Position() int {
	if p, ok := meetingStatusPosition[s]; ok {
		return p
	}
	return -1
}

// Advances reports whether moving from s to next is a forward transition.
// Terminal statuses never advance, and an empty current status is treated as SCHEDULED.
func (s MeetingStatus) Advances(next MeetingStatus) bool {
	if !next.IsValid() {
		return false
	}
	current := s
	if current == "" {
		current = MeetingStatusScheduled
	}
	if current.IsTerminal() {
		return false
	}
	return next.Position() > current.Position()
}

// Meeting is the key-value store representation of a meeting that has a recording bot.
// Only the lifecycle fields are written by webhook reconciliation.
type Meeting struct {
	UID                 string        `json:"uid"`
	TenantID            string        `json:"tenant_id"`
	Title               string        `json:"title,omitempty"`
	Status              MeetingStatus `json:"status"`
	ActiveBotSessionUID string        `json:"active_bot_session_uid,omitempty"`
	WorkflowID          string        `json:"workflow_id,omitempty"`
	StartedAt           *time.Time    `json:"started_at,omitempty"`
	EndedAt             *time.Time    `json:"ended_at,omitempty"`
	FailureReason       *string       `json:"failure_reason,omitempty"`
	CreatedAt           *time.Time    `json:"created_at,omitempty"`
	UpdatedAt           *time.Time    `json:"updated_at,omitempty"`
}
