// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/nats-io/nats.go"
)

// ConnectionConfig holds the NATS connection settings.
type ConnectionConfig struct {
	Name          string
	URL           string
	Timeout       time.Duration
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Connect opens a NATS connection with logging handlers for connection events.
func Connect(ctx context.Context, cfg ConnectionConfig) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, domain.NewValidationError("NATS URL is required")
	}

	slog.InfoContext(ctx, "connecting to NATS", "name", cfg.Name, "url", cfg.URL, "timeout", cfg.Timeout)

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.WarnContext(ctx, "NATS disconnected",
				logging.ErrKey, err,
				"name", cfg.Name,
				"status", nc.Status().String(),
			)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "name", cfg.Name, "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed", "name", cfg.Name)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to connect to NATS", err)
	}

	slog.InfoContext(ctx, "NATS connection established", "name", cfg.Name, "connected_url", conn.ConnectedUrl())
	return conn, nil
}

// IsConnReady reports whether conn is connected and not draining.
func IsConnReady(conn *nats.Conn) bool {
	return conn != nil && conn.IsConnected() && !conn.IsDraining()
}
