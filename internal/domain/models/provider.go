// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// Provider identifies the external system that delivered a webhook.
type Provider string

// Providers the service accepts webhooks from.
const (
	ProviderBot               Provider = "BOT_PROVIDER"
	ProviderCalendarGoogle    Provider = "CALENDAR_GOOGLE"
	ProviderCalendarMicrosoft Provider = "CALENDAR_MICROSOFT"
	ProviderEnrichment        Provider = "ENRICHMENT_PROVIDER"
)

// IsValid reports whether p is one of the known providers.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderBot, ProviderCalendarGoogle, ProviderCalendarMicrosoft, ProviderEnrichment:
		return true
	}
	return false
}

// IsCalendar reports whether p is a calendar provider.
func (p Provider) IsCalendar() bool {
	return p == ProviderCalendarGoogle || p == ProviderCalendarMicrosoft
}

func (p Provider) String() string {
	return string(p)
}
