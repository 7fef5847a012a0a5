// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"fmt"
	"sync"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// Registry implements domain.WebhookVerifierRegistry
type Registry struct {
	verifiers map[models.Provider]domain.WebhookVerifier
	mu        sync.RWMutex
}

// NewRegistry creates a new verifier registry
func NewRegistry(verifiers ...domain.WebhookVerifier) *Registry {
	r := &Registry{
		verifiers: make(map[models.Provider]domain.WebhookVerifier),
	}
	for _, v := range verifiers {
		r.RegisterVerifier(v)
	}
	return r
}

// GetVerifier returns the verifier for the specified provider
func (r *Registry) GetVerifier(provider models.Provider) (domain.WebhookVerifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	verifier, exists := r.verifiers[provider]
	if !exists {
		return nil, domain.NewNotFoundError(fmt.Sprintf("webhook verifier for provider %s not found", provider))
	}

	return verifier, nil
}

// RegisterVerifier registers a verifier under its provider
func (r *Registry) RegisterVerifier(verifier domain.WebhookVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.verifiers[verifier.Provider()] = verifier
}

// Config holds the per-provider secrets. Empty values disable the check.
type Config struct {
	BotSecret            string
	GoogleChannelToken   string
	MicrosoftClientState string
	EnrichmentSecret     string
}

// NewDefaultRegistry builds a registry with a verifier for every provider.
func NewDefaultRegistry(cfg Config) (*Registry, error) {
	schemas, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	bot, err := NewBotVerifier(cfg.BotSecret, schemas)
	if err != nil {
		return nil, err
	}
	return NewRegistry(
		bot,
		NewGoogleVerifier(cfg.GoogleChannelToken, schemas),
		NewMicrosoftVerifier(cfg.MicrosoftClientState, schemas),
		NewEnrichmentVerifier(cfg.EnrichmentSecret, schemas),
	), nil
}

// InsecureProviders lists providers whose secret is not configured.
func (c Config) InsecureProviders() []models.Provider {
	var insecure []models.Provider
	if c.BotSecret == "" {
		insecure = append(insecure, models.ProviderBot)
	}
	if c.GoogleChannelToken == "" {
		insecure = append(insecure, models.ProviderCalendarGoogle)
	}
	if c.MicrosoftClientState == "" {
		insecure = append(insecure, models.ProviderCalendarMicrosoft)
	}
	if c.EnrichmentSecret == "" {
		insecure = append(insecure, models.ProviderEnrichment)
	}
	return insecure
}
