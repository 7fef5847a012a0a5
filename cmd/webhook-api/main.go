// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the webhook service API that receives provider webhooks
// and reconciles meeting, calendar and enrichment state from them.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/workflow"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/utils"
)

const gracefulShutdownSeconds = 25

func main() {
	env, err := parseEnv(os.Getenv)
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error parsing configuration")
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	registry, err := webhook.NewDefaultRegistry(env.Webhook)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up webhook verifiers")
		return
	}

	enrichmentProvider, err := setupEnrichmentClient(ctx, env.Enrichment)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up enrichment client")
		return
	}

	// Initialize services
	workflowClient := setupWorkflowClient(env)
	effects := service.NewSideEffects(workflowClient, messaging.NewMessageBuilder(natsConn))

	dispatcher, err := service.NewDispatcher(service.DispatcherConfig{
		Workers:       env.DispatchWorkers,
		QueueSize:     env.DispatchQueueSize,
		ActionTimeout: env.DispatchActionTimeout,
	})
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up dispatcher")
		return
	}
	dispatcher.Start()

	reconciler := service.NewReconciler(repos.Meetings, repos.BotSessions, repos.CalendarConnections, effects)
	correlator := service.NewEnrichmentCorrelator(repos.EnrichmentJobs, repos.Contacts, effects, service.EnrichmentCorrelatorConfig{
		MaxInlineItems: env.EnrichmentMaxInlineItems,
		MaxBatchItems:  env.EnrichmentMaxBatchItems,
	})
	intakeService, err := service.NewIntakeService(
		registry,
		service.NewLedger(repos.WebhookEvents),
		reconciler,
		correlator,
		dispatcher,
		service.ServiceConfig{
			HandlerTimeout: env.HandlerTimeout,
			LFXEnvironment: env.LFXEnvironment,
		},
	)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up intake service")
		return
	}
	enrichmentRequestService := service.NewEnrichmentRequestService(
		repos.EnrichmentJobs,
		repos.Contacts,
		enrichmentProvider,
		env.Enrichment.WebhookURL,
	)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(intakeService)
	enrichmentRequestHandler := handlers.NewEnrichmentRequestHandler(enrichmentRequestService)
	healthHandler := handlers.NewHealthHandler(
		handlers.ReadinessCheck{Name: "nats", Ready: func() bool { return messaging.IsConnReady(natsConn) }},
		handlers.ReadinessCheck{Name: "webhooks", Ready: webhookHandler.HandlerReady},
	)

	httpServer := setupHTTPServer(flags, newHTTPHandler(env, webhookHandler, healthHandler), &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	var subscription *nats.Subscription
	if enrichmentRequestHandler.HandlerReady() {
		subscription, err = createNatsSubscriptions(ctx, natsConn, enrichmentRequestHandler)
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
			return
		}
	}

	go logDispatchErrors(ctx, dispatcher)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, subscription, dispatcher, natsConn, workflowClient, otelShutdown, &gracefulCloseWG, cancel)
}

// logDispatchErrors drains the dispatcher error channel until ctx ends.
func logDispatchErrors(ctx context.Context, dispatcher *service.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-dispatcher.Errors():
			slog.DebugContext(ctx, "side effect failed", logging.ErrKey, err)
		}
	}
}

// gracefulShutdown stops accepting webhooks, drains queued side effects and
// then closes the connections and telemetry pipelines.
func gracefulShutdown(
	httpServer interface{ Shutdown(context.Context) error },
	subscription *nats.Subscription,
	dispatcher *service.Dispatcher,
	natsConn *nats.Conn,
	workflowClient *workflow.Client,
	otelShutdown func(context.Context) error,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
) {
	slog.Info("graceful shutdown started")
	ctx, timeoutCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer timeoutCancel()

	// in-flight webhooks finish before the dispatcher stops accepting tasks
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("http shutdown error")
	}
	gracefulCloseWG.Done()
	gracefulCloseWG.Wait()

	if subscription != nil {
		if err := subscription.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS subscription")
		}
	}

	if err := dispatcher.Shutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err, "pending", dispatcher.Pending()).Error("dispatcher did not drain before shutdown deadline")
	}

	cancel()

	if err := workflowClient.Close(); err != nil {
		slog.With(logging.ErrKey, err).Error("error closing workflow client")
	}
	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}
	if err := otelShutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
	}

	slog.Info("graceful shutdown complete")
}
