// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"time"
)

// InboundEvent is a webhook that passed authenticity and schema checks.
// Exactly one of the provider payload pointers is set, matching Provider.
type InboundEvent struct {
	Provider        Provider
	ProviderEventID string
	EventType       string
	TenantID        *string
	// Payload is recorded verbatim in the ledger.
	Payload    json.RawMessage
	ReceivedAt time.Time

	Bot        *BotWebhookPayload
	Google     *GoogleChannelNotification
	Microsoft  *MicrosoftChangeNotification
	Enrichment *EnrichmentWebhookPayload
}
