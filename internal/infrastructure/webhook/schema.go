// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://schemas.lfx.dev/webhooks/"

var schemaFiles = map[models.Provider]string{
	models.ProviderBot:               "bot.json",
	models.ProviderCalendarGoogle:    "google.json",
	models.ProviderCalendarMicrosoft: "microsoft.json",
	models.ProviderEnrichment:        "enrichment.json",
}

// SchemaValidator validates provider payloads against the embedded JSON schemas.
type SchemaValidator struct {
	schemas map[models.Provider]*jsonschema.Schema
}

// NewSchemaValidator compiles every embedded provider schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	for _, file := range schemaFiles {
		raw, err := schemaFS.ReadFile("schemas/" + file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", file, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", file, err)
		}
		if err := compiler.AddResource(schemaBaseURL+file, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", file, err)
		}
	}

	validator := &SchemaValidator{schemas: make(map[models.Provider]*jsonschema.Schema, len(schemaFiles))}
	for provider, file := range schemaFiles {
		schema, err := compiler.Compile(schemaBaseURL + file)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", file, err)
		}
		validator.schemas[provider] = schema
	}
	return validator, nil
}

// Validate checks body against the provider schema. Failures are validation
// (bad payload) errors.
func (v *SchemaValidator) Validate(provider models.Provider, body []byte) error {
	schema, ok := v.schemas[provider]
	if !ok {
		return domain.NewInternalError(fmt.Sprintf("no payload schema for provider %s", provider))
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return domain.NewValidationError("payload is not valid JSON", err)
	}
	if err := schema.Validate(instance); err != nil {
		return domain.NewValidationError(fmt.Sprintf("%s payload does not match schema", provider), err)
	}
	return nil
}
