// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// BotWebhookPayload is the body of a bot provider status-change webhook.
type BotWebhookPayload struct {
	Event string         `json:"event"`
	Data  BotWebhookData `json:"data"`
}

// BotWebhookData carries the bot id and its latest status change.
type BotWebhookData struct {
	BotID    string          `json:"bot_id"`
	Status   BotStatusChange `json:"status"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// BotStatusChange is a single status transition reported by the bot provider.
type BotStatusChange struct {
	Code      string     `json:"code"`
	SubCode   *string    `json:"sub_code,omitempty"`
	Message   *string    `json:"message,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// BotMetadata is the metadata this service attaches when it creates a bot.
type BotMetadata struct {
	TenantID   string `json:"tenant_id"`
	MeetingUID string `json:"meeting_uid"`
}

// GoogleChannelNotification is a Google Calendar push notification. Google
// sends the fields as X-Goog-* headers with an empty body.
type GoogleChannelNotification struct {
	ChannelID         string `json:"channel_id"`
	ChannelToken      string `json:"channel_token,omitempty"`
	ChannelExpiration string `json:"channel_expiration,omitempty"`
	ResourceID        string `json:"resource_id"`
	ResourceState     string `json:"resource_state"`
	ResourceURI       string `json:"resource_uri,omitempty"`
	MessageNumber     string `json:"message_number"`
}

// MicrosoftNotificationBatch is the body of a Microsoft Graph change notification.
type MicrosoftNotificationBatch struct {
	Value []MicrosoftChangeNotification `json:"value"`
}

// MicrosoftChangeNotification is a single entry of a Microsoft Graph batch.
// Either ChangeType or LifecycleEvent is set.
type MicrosoftChangeNotification struct {
	SubscriptionID                 string                 `json:"subscriptionId"`
	ClientState                    string                 `json:"clientState,omitempty"`
	ChangeType                     string                 `json:"changeType,omitempty"`
	LifecycleEvent                 string                 `json:"lifecycleEvent,omitempty"`
	Resource                       string                 `json:"resource,omitempty"`
	TenantID                       string                 `json:"tenantId,omitempty"`
	SubscriptionExpirationDateTime string                 `json:"subscriptionExpirationDateTime,omitempty"`
	ResourceData                   *MicrosoftResourceData `json:"resourceData,omitempty"`
}

// MicrosoftResourceData identifies the changed calendar resource.
type MicrosoftResourceData struct {
	ID        string `json:"id"`
	ODataType string `json:"@odata.type,omitempty"`
	ODataEtag string `json:"@odata.etag,omitempty"`
}

// EnrichmentWebhookPayload is the body of an enrichment provider callback.
type EnrichmentWebhookPayload struct {
	EventID   string                 `json:"event_id,omitempty"`
	EventType string                 `json:"event_type"`
	RequestID string                 `json:"request_id"`
	Status    string                 `json:"status"`
	Items     []EnrichmentResultItem `json:"items,omitempty"`
}

// EnrichmentResultItem is one enriched person in a batch.
type EnrichmentResultItem struct {
	Status      string         `json:"status,omitempty"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	JobTitle    string         `json:"job_title,omitempty"`
	CompanyName string         `json:"company_name,omitempty"`
	LinkedInURL string         `json:"linkedin_url,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// EnrichmentCustomFields are the custom fields this service sends outbound
// and expects back on each result item.
type EnrichmentCustomFields struct {
	CorrelationID string `json:"correlation_id"`
	ContactUID    string `json:"contact_uid,omitempty"`
}

// EnrichmentAPIRequest is the outbound enrichment request body.
type EnrichmentAPIRequest struct {
	WebhookURL string                `json:"webhook_url,omitempty"`
	People     []EnrichmentAPIPerson `json:"people"`
}

// EnrichmentAPIPerson is one person in an outbound enrichment request.
type EnrichmentAPIPerson struct {
	FirstName   string                 `json:"first_name,omitempty"`
	LastName    string                 `json:"last_name,omitempty"`
	Email       string                 `json:"email,omitempty"`
	CompanyName string                 `json:"company_name,omitempty"`
	LinkedInURL string                 `json:"linkedin_url,omitempty"`
	Custom      EnrichmentCustomFields `json:"custom"`
}

// EnrichmentAPIResponse is returned by the provider when a request is accepted.
type EnrichmentAPIResponse struct {
	RequestID string `json:"request_id"`
}
