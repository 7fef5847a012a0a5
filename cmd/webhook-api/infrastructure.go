// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/enrichment"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/workflow"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
)

const (
	natsConnectionName         = "lfx-v2-webhook-service"
	workflowConnectionName     = "lfx-v2-webhook-service-workflow"
	enrichmentRequestQueueName = "lfx.webhook-service.queue"
)

// repositories holds the KV-backed repositories of the service.
type repositories struct {
	WebhookEvents       *store.NatsWebhookEventRepository
	Meetings            *store.NatsMeetingRepository
	BotSessions         *store.NatsBotSessionRepository
	CalendarConnections *store.NatsCalendarConnectionRepository
	EnrichmentJobs      *store.NatsEnrichmentJobRepository
	Contacts            *store.NatsContactRepository
}

func natsConfig(env environment, name, url string) messaging.ConnectionConfig {
	return messaging.ConnectionConfig{
		Name:          name,
		URL:           url,
		Timeout:       env.NATSTimeout,
		MaxReconnect:  env.NATSMaxReconnect,
		ReconnectWait: env.NATSReconnectWait,
	}
}

// setupNATS opens the primary NATS connection used for KV and subscriptions.
func setupNATS(ctx context.Context, env environment) (*nats.Conn, error) {
	return messaging.Connect(ctx, natsConfig(env, natsConnectionName, env.NATSURL))
}

// setupWorkflowClient creates the lazily-connected workflow client.
func setupWorkflowClient(env environment) *workflow.Client {
	return workflow.NewClient(workflow.NewNATSDialer(natsConfig(env, workflowConnectionName, env.WorkflowNATSURL)))
}

// getKeyValueStores binds every bucket the service uses, creating missing ones.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to create JetStream context", err)
	}

	buckets := []string{
		store.KVStoreNameWebhookEvents,
		store.KVStoreNameMeetings,
		store.KVStoreNameMeetingBotSessions,
		store.KVStoreNameCalendarConnections,
		store.KVStoreNameEnrichmentJobs,
		store.KVStoreNameContacts,
	}
	kv := make(map[string]jetstream.KeyValue, len(buckets))
	for _, bucket := range buckets {
		kv[bucket], err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket, History: 1})
		if err != nil {
			return nil, domain.NewUnavailableError(fmt.Sprintf("failed to bind key-value store %s", bucket), err)
		}
		slog.DebugContext(ctx, "bound key-value store", "bucket", bucket)
	}

	return &repositories{
		WebhookEvents:       store.NewNatsWebhookEventRepository(kv[store.KVStoreNameWebhookEvents]),
		Meetings:            store.NewNatsMeetingRepository(kv[store.KVStoreNameMeetings]),
		BotSessions:         store.NewNatsBotSessionRepository(kv[store.KVStoreNameMeetingBotSessions]),
		CalendarConnections: store.NewNatsCalendarConnectionRepository(kv[store.KVStoreNameCalendarConnections]),
		EnrichmentJobs:      store.NewNatsEnrichmentJobRepository(kv[store.KVStoreNameEnrichmentJobs]),
		Contacts:            store.NewNatsContactRepository(kv[store.KVStoreNameContacts]),
	}, nil
}

// setupEnrichmentClient returns nil when outbound enrichment is not configured.
func setupEnrichmentClient(ctx context.Context, cfg enrichmentConfig) (domain.EnrichmentProvider, error) {
	if !cfg.Enabled() {
		slog.InfoContext(ctx, "enrichment API not configured, outbound enrichment disabled")
		return nil, nil
	}
	client, err := enrichment.NewClient(ctx, enrichment.Config{
		BaseURL:           cfg.APIURL,
		APIKey:            cfg.APIKey,
		OAuthClientID:     cfg.OAuthClientID,
		OAuthClientSecret: cfg.OAuthClientSecret,
		OAuthTokenURL:     cfg.OAuthTokenURL,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// createNatsSubscriptions subscribes handler to the enrichment request subject
// in a queue group so each request is handled by one replica.
func createNatsSubscriptions(ctx context.Context, natsConn *nats.Conn, handler domain.MessageHandler) (*nats.Subscription, error) {
	subject := models.EnrichmentRequestSubject
	slog.InfoContext(ctx, "subscribing to NATS subject", "subject", subject, "queue", enrichmentRequestQueueName)

	sub, err := natsConn.QueueSubscribe(subject, enrichmentRequestQueueName, func(msg *nats.Msg) {
		handler.HandleMessage(ctx, messaging.NewNatsMessage(msg))
	})
	if err != nil {
		slog.With(logging.ErrKey, err, "subject", subject).Error("error creating NATS queue subscription")
		return nil, err
	}
	return sub, nil
}
