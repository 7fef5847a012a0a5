// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// EnrichmentJobStatus is the lifecycle status of an outbound enrichment request.
type EnrichmentJobStatus string

const (
	EnrichmentJobStatusProcessing EnrichmentJobStatus = "PROCESSING"
	EnrichmentJobStatusCompleted  EnrichmentJobStatus = "COMPLETED"
	EnrichmentJobStatusFailed     EnrichmentJobStatus = "FAILED"
)

// IsTerminal reports whether the job status is absorbing.
func (s EnrichmentJobStatus) IsTerminal() bool {
	return s == EnrichmentJobStatusCompleted || s == EnrichmentJobStatusFailed
}

// EnrichmentRequestItem ties a contact to the correlation id embedded in the
// outbound request's custom fields.
type EnrichmentRequestItem struct {
	ContactUID    string `json:"contact_uid"`
	CorrelationID string `json:"correlation_id"`
}

// EnrichmentRequestData is what was sent to the enrichment provider.
type EnrichmentRequestData struct {
	// RequestID is issued by the provider and echoed back on the webhook.
	RequestID string                  `json:"request_id"`
	Items     []EnrichmentRequestItem `json:"items"`
}

// ContactUIDFor returns the contact a correlation id was issued for.
func (d EnrichmentRequestData) ContactUIDFor(correlationID string) (string, bool) {
	if correlationID == "" {
		return "", false
	}
	for _, item := range d.Items {
		if item.CorrelationID == correlationID {
			return item.ContactUID, true
		}
	}
	return "", false
}

// EnrichmentJob is one outbound enrichment request awaiting its webhook.
type EnrichmentJob struct {
	UID           string                `json:"uid"`
	TenantID      string                `json:"tenant_id"`
	Status        EnrichmentJobStatus   `json:"status"`
	RequestData   EnrichmentRequestData `json:"request_data"`
	AppliedItems  int                   `json:"applied_items"`
	SkippedItems  int                   `json:"skipped_items"`
	FailureReason *string               `json:"failure_reason,omitempty"`
	CreatedAt     *time.Time            `json:"created_at,omitempty"`
	UpdatedAt     *time.Time            `json:"updated_at,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

// Contact is the subset of a CRM contact that enrichment writes to.
type Contact struct {
	UID              string     `json:"uid"`
	TenantID         string     `json:"tenant_id"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	JobTitle         string     `json:"job_title,omitempty"`
	CompanyName      string     `json:"company_name,omitempty"`
	LinkedInURL      string     `json:"linkedin_url,omitempty"`
	EnrichmentSource string     `json:"enrichment_source,omitempty"`
	EnrichedAt       *time.Time `json:"enriched_at,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}
