// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// secretsEqual compares a configured secret with a supplied one in constant time.
func secretsEqual(configured, supplied string) bool {
	return hmac.Equal([]byte(configured), []byte(supplied))
}

// contentID derives a stable event id from fields that identify a delivery.
func contentID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func unauthorized(provider models.Provider, err error) error {
	return domain.NewUnauthorizedError(provider.String()+" webhook authentication failed", err)
}

func logInsecure(ctx context.Context, provider models.Provider) {
	slog.WarnContext(ctx, "webhook secret not configured, skipping authenticity check",
		"provider", provider.String())
}
