// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// ContentTypeHeader is the header name for the content type
	ContentTypeHeader string = "Content-Type"

	// ContentTypeJSON is the media type of every JSON response
	ContentTypeJSON string = "application/json"

	// ContentTypeText is the media type of handshake echoes
	ContentTypeText string = "text/plain"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// Deployment environments
const (
	EnvironmentDev     = "dev"
	EnvironmentStaging = "staging"
	EnvironmentProd    = "prod"
)

// NormalizeEnvironment maps unknown environment names to prod.
func NormalizeEnvironment(environment string) string {
	switch environment {
	case EnvironmentDev, EnvironmentStaging, EnvironmentProd:
		return environment
	default:
		return EnvironmentProd
	}
}
