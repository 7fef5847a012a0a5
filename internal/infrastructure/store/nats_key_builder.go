// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"strings"
)

// Common key prefixes
const (
	// Entity prefixes
	KeyPrefixWebhookEvent       = "event"
	KeyPrefixMeeting            = "meeting"
	KeyPrefixBotSession         = "bot_session"
	KeyPrefixCalendarConnection = "calendar_connection"
	KeyPrefixEnrichmentJob      = "enrichment_job"
	KeyPrefixContact            = "contact"

	// Lookup prefixes
	KeyPrefixLookup                = "lookup"
	KeyPrefixLookupProviderBot     = "provider_bot"
	KeyPrefixLookupGoogleChannel   = "google_channel"
	KeyPrefixLookupMicrosoftSub    = "microsoft_subscription"
	KeyPrefixLookupEnrichmentReqID = "request"
)

// KeyBuilder builds NATS KV keys. Every path segment is base64url encoded so
// that provider-supplied identifiers never produce invalid keys; segments are
// joined with '.'.
type KeyBuilder struct{}

// NewKeyBuilder creates a new key builder
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{}
}

// EntityKey builds a key for an entity (e.g., "meeting/uid-123")
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return kb.encode(entityType, uid)
}

// LookupKey builds a unique secondary key (e.g., "lookup/provider_bot/bot-123")
func (kb *KeyBuilder) LookupKey(lookupType, value string) string {
	return kb.encode(KeyPrefixLookup, lookupType, value)
}

// CompoundKey builds a key from multiple parts
func (kb *KeyBuilder) CompoundKey(parts ...string) string {
	return kb.encode(parts...)
}

func (kb *KeyBuilder) encode(parts ...string) string {
	encoded := make([]string, 0, len(parts))
	for _, part := range parts {
		encoded = append(encoded, base64.RawURLEncoding.EncodeToString([]byte(part)))
	}
	return strings.Join(encoded, ".")
}

// DecodeKey reverses the encoding and returns the "/" separated path.
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	decoded := make([]string, 0, len(parts))
	for _, part := range parts {
		raw, err := base64.RawURLEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}
		decoded = append(decoded, string(raw))
	}
	return strings.Join(decoded, "/"), nil
}
