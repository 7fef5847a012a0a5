// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// CalendarConnection is a user's linked calendar. The sync workflow owns
// IsActive and SyncCursor; webhooks only read the record to decide whether
// a sync should be triggered.
type CalendarConnection struct {
	UID      string   `json:"uid"`
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Provider Provider `json:"provider"`
	// ChannelID is the Google push channel id or the Microsoft Graph subscription id.
	ChannelID  string     `json:"channel_id"`
	ResourceID string     `json:"resource_id,omitempty"`
	IsActive   bool       `json:"is_active"`
	SyncCursor string     `json:"sync_cursor,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}
