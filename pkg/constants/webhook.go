// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Bot provider signature headers (Standard Webhooks / Svix scheme)
const (
	BotWebhookIDHeader        = "webhook-id"
	BotWebhookTimestampHeader = "webhook-timestamp"
	BotWebhookSignatureHeader = "webhook-signature"

	// BotSecretPrefix prefixes base64 encoded signing secrets.
	BotSecretPrefix = "whsec_"
	// BotSignatureVersion prefixes each signature in the signature header.
	BotSignatureVersion = "v1"
	// BotTimestampTolerance is the maximum allowed clock skew for a signed delivery.
	BotTimestampTolerance = 5 * time.Minute
)

// Google Calendar push notification headers
const (
	GoogleChannelIDHeader         = "X-Goog-Channel-ID"
	GoogleChannelTokenHeader      = "X-Goog-Channel-Token"
	GoogleChannelExpirationHeader = "X-Goog-Channel-Expiration"
	GoogleResourceIDHeader        = "X-Goog-Resource-ID"
	GoogleResourceStateHeader     = "X-Goog-Resource-State"
	GoogleResourceURIHeader       = "X-Goog-Resource-URI"
	GoogleMessageNumberHeader     = "X-Goog-Message-Number"
)

// Microsoft Graph change notification parameters
const (
	MicrosoftValidationTokenParam = "validationToken"
)

// Enrichment provider headers
const (
	EnrichmentSecretHeader = "X-Webhook-Secret"
)

// Webhook routes
const (
	WebhookPathPrefix            = "/webhooks/"
	WebhookPathBot               = "/webhooks/bot"
	WebhookPathCalendarGoogle    = "/webhooks/calendar/google"
	WebhookPathCalendarMicrosoft = "/webhooks/calendar/microsoft"
	WebhookPathEnrichment        = "/webhooks/enrichment"
)
