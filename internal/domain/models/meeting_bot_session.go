// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"time"
)

// MeetingBotSession tracks one recording bot dispatched to a meeting.
// JoinedAt and LeftAt are set at most once.
type MeetingBotSession struct {
	UID             string          `json:"uid"`
	MeetingUID      string          `json:"meeting_uid"`
	TenantID        string          `json:"tenant_id"`
	ProviderBotID   string          `json:"provider_bot_id"`
	Status          MeetingStatus   `json:"status"`
	LastRawStatus   string          `json:"last_raw_status,omitempty"`
	JoinedAt        *time.Time      `json:"joined_at,omitempty"`
	LeftAt          *time.Time      `json:"left_at,omitempty"`
	JoinAttempts    int             `json:"join_attempts"`
	FailureReason   *string         `json:"failure_reason,omitempty"`
	ProviderPayload json.RawMessage `json:"provider_payload,omitempty"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}
