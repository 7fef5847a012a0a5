// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/constants"
)

// flags are the command line flags for the webhook service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the webhook service.
type environment struct {
	Port           string `validate:"required,numeric"`
	LFXEnvironment string `validate:"oneof=dev staging prod"`

	NATSURL           string        `validate:"required,url"`
	WorkflowNATSURL   string        `validate:"required,url"`
	NATSTimeout       time.Duration `validate:"gt=0"`
	NATSMaxReconnect  int
	NATSReconnectWait time.Duration `validate:"gte=0"`

	Webhook             webhook.Config
	AllowInsecure       bool
	HandlerTimeout      time.Duration `validate:"gt=0"`
	MaxWebhookBodyBytes int64         `validate:"gt=0"`

	DispatchWorkers       int           `validate:"gt=0"`
	DispatchQueueSize     int           `validate:"gt=0"`
	DispatchActionTimeout time.Duration `validate:"gt=0"`

	EnrichmentMaxInlineItems int `validate:"gt=0"`
	EnrichmentMaxBatchItems  int `validate:"gtefield=EnrichmentMaxInlineItems"`

	Enrichment enrichmentConfig
}

// enrichmentConfig holds the outbound enrichment API settings. The API is
// optional; without a URL the enrichment request subscription is not started.
type enrichmentConfig struct {
	APIURL            string `validate:"omitempty,url"`
	APIKey            string
	OAuthClientID     string
	OAuthClientSecret string `validate:"required_with=OAuthClientID"`
	OAuthTokenURL     string `validate:"required_with=OAuthClientID"`
	WebhookURL        string `validate:"required_with=APIURL"`
}

// Enabled reports whether outbound enrichment is configured
func (c enrichmentConfig) Enabled() bool {
	return c.APIURL != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseFlags parses command line flags for the webhook service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// envReader reads typed environment values and collects parse errors.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (r *envReader) string(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) bool(key string) bool {
	v := r.getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
	}
	return b
}

func (r *envReader) int(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}

func (r *envReader) int64(key string, def int64) int64 {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

// normalizeEnvironment maps the accepted spellings of LFX_ENVIRONMENT,
// defaulting to prod.
func normalizeEnvironment(raw string) string {
	switch raw {
	case "dev", "development":
		return constants.EnvironmentDev
	case "staging", "stg", "stage":
		return constants.EnvironmentStaging
	default:
		return constants.NormalizeEnvironment(raw)
	}
}

// parseEnv parses and validates environment variables for the webhook service
func parseEnv(getenv func(string) string) (environment, error) {
	r := &envReader{getenv: getenv}

	natsURL := r.string("NATS_URL", "nats://localhost:4222")
	env := environment{
		Port:              r.string("PORT", "8080"),
		LFXEnvironment:    normalizeEnvironment(getenv("LFX_ENVIRONMENT")),
		NATSURL:           natsURL,
		WorkflowNATSURL:   r.string("WORKFLOW_NATS_URL", natsURL),
		NATSTimeout:       r.duration("NATS_TIMEOUT", 10*time.Second),
		NATSMaxReconnect:  r.int("NATS_MAX_RECONNECT", 3),
		NATSReconnectWait: r.duration("NATS_RECONNECT_WAIT", 2*time.Second),
		Webhook: webhook.Config{
			BotSecret:            getenv("BOT_WEBHOOK_SECRET"),
			GoogleChannelToken:   getenv("GOOGLE_CHANNEL_TOKEN"),
			MicrosoftClientState: getenv("MICROSOFT_CLIENT_STATE"),
			EnrichmentSecret:     getenv("ENRICHMENT_WEBHOOK_SECRET"),
		},
		AllowInsecure:            r.bool("WEBHOOK_ALLOW_INSECURE"),
		HandlerTimeout:           r.duration("WEBHOOK_HANDLER_TIMEOUT", service.DefaultHandlerTimeout),
		MaxWebhookBodyBytes:      r.int64("WEBHOOK_MAX_BODY_BYTES", middleware.DefaultMaxWebhookBodyBytes),
		DispatchWorkers:          r.int("DISPATCH_WORKERS", service.DefaultDispatchWorkers),
		DispatchQueueSize:        r.int("DISPATCH_QUEUE_SIZE", service.DefaultDispatchQueueSize),
		DispatchActionTimeout:    r.duration("DISPATCH_ACTION_TIMEOUT", service.DefaultDispatchActionTimeout),
		EnrichmentMaxInlineItems: r.int("ENRICHMENT_MAX_INLINE_ITEMS", service.DefaultEnrichmentMaxInlineItems),
		EnrichmentMaxBatchItems:  r.int("ENRICHMENT_MAX_BATCH_ITEMS", service.DefaultEnrichmentMaxBatchItems),
		Enrichment: enrichmentConfig{
			APIURL:            getenv("ENRICHMENT_API_URL"),
			APIKey:            getenv("ENRICHMENT_API_KEY"),
			OAuthClientID:     getenv("ENRICHMENT_OAUTH_CLIENT_ID"),
			OAuthClientSecret: getenv("ENRICHMENT_OAUTH_CLIENT_SECRET"),
			OAuthTokenURL:     getenv("ENRICHMENT_OAUTH_TOKEN_URL"),
			WebhookURL:        getenv("ENRICHMENT_WEBHOOK_URL"),
		},
	}
	if len(r.errs) > 0 {
		return environment{}, errors.Join(r.errs...)
	}

	if err := validate.Struct(env); err != nil {
		return environment{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if env.Enrichment.Enabled() && env.Enrichment.APIKey == "" && env.Enrichment.OAuthClientID == "" {
		return environment{}, errors.New("invalid configuration: ENRICHMENT_API_KEY or ENRICHMENT_OAUTH_CLIENT_ID is required with ENRICHMENT_API_URL")
	}
	if err := checkInsecure(env); err != nil {
		return environment{}, err
	}

	return env, nil
}

// checkInsecure refuses to run without webhook secrets in prod unless
// WEBHOOK_ALLOW_INSECURE is set.
func checkInsecure(env environment) error {
	insecure := env.Webhook.InsecureProviders()
	if len(insecure) == 0 {
		return nil
	}
	if env.LFXEnvironment == constants.EnvironmentProd && !env.AllowInsecure {
		return fmt.Errorf("webhook secrets missing for %v in prod; set WEBHOOK_ALLOW_INSECURE=true to override", insecure)
	}
	slog.Warn("webhook signature verification disabled",
		"providers", insecure,
		"environment", env.LFXEnvironment,
		logging.PriorityCritical(),
	)
	return nil
}
