// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameWebhookEvents       = "webhook-events"
	KVStoreNameMeetings            = "meetings"
	KVStoreNameMeetingBotSessions  = "meeting-bot-sessions"
	KVStoreNameCalendarConnections = "calendar-connections"
	KVStoreNameEnrichmentJobs      = "enrichment-jobs"
	KVStoreNameContacts            = "contacts"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/store"

// INatsKeyValue is the subset of jetstream.KeyValue the repositories need.
// Create gives unique-insert semantics and Update gives per-key compare-and-set.
type INatsKeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Create(ctx context.Context, key string, value []byte, opts ...jetstream.KVCreateOpt) (uint64, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
}

// NatsBaseRepository provides common NATS KV operations that can be reused across all repositories
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // Used in error messages (e.g., "meeting", "webhook event")
}

// NewNatsBaseRepository creates a new base repository for NATS KV operations
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string) *NatsBaseRepository[T] {
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
	}
}

// IsReady checks if the repository is ready for use
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, operation, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", operation),
		attribute.String("db.nats.key", key),
		attribute.String("db.nats.entity", r.entityName),
	}, attrs...)
	return otel.Tracer(tracerName).Start(ctx, "nats.kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func failSpan(span trace.Span, err error, description string) error {
	span.RecordError(err)
	if description == "" {
		description = err.Error()
	}
	span.SetStatus(codes.Error, description)
	return err
}

func (r *NatsBaseRepository[T]) unavailable() error {
	return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
}

// isWrongLastSequence reports whether err is the JetStream revision mismatch on a conditional write.
func isWrongLastSequence(err error) bool {
	return err != nil && strings.Contains(err.Error(), "wrong last sequence")
}

// GetRaw retrieves a raw entry from NATS KV store
func (r *NatsBaseRepository[T]) GetRaw(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	ctx, span := r.startSpan(ctx, "get", key)
	defer span.End()

	if !r.IsReady() {
		return nil, failSpan(span, r.unavailable(), "")
	}

	entry, err := r.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, failSpan(span, domain.NewNotFoundError(
				fmt.Sprintf("%s with key '%s' not found", r.entityName, key), err), "not found")
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error getting %s from NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		return nil, failSpan(span, domain.NewInternalError(
			fmt.Sprintf("failed to retrieve %s from store", r.entityName), err), "")
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// GetWithRevision retrieves an entity with its revision from NATS KV store
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (*T, uint64, error) {
	entry, err := r.GetRaw(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	var entity T
	if err := json.Unmarshal(entry.Value(), &entity); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error unmarshaling %s", r.entityName), logging.ErrKey, err)
		return nil, 0, domain.NewInternalError(
			fmt.Sprintf("failed to unmarshal %s data", r.entityName), err)
	}

	return &entity, entry.Revision(), nil
}

// Create inserts a new entity. It fails with a conflict error when the key already exists.
func (r *NatsBaseRepository[T]) Create(ctx context.Context, key string, entity *T) error {
	ctx, span := r.startSpan(ctx, "create", key)
	defer span.End()

	if !r.IsReady() {
		return failSpan(span, r.unavailable(), "")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return failSpan(span, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err), "")
	}

	if _, err := r.kvStore.Create(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return failSpan(span, domain.NewConflictError(
				fmt.Sprintf("%s with key '%s' already exists", r.entityName, key), err), "conflict")
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error creating %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		return failSpan(span, domain.NewInternalError(
			fmt.Sprintf("failed to create %s in store", r.entityName), err), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Update writes the entity only if the key is still at revision.
func (r *NatsBaseRepository[T]) Update(ctx context.Context, key string, entity *T, revision uint64) error {
	ctx, span := r.startSpan(ctx, "update", key, attribute.Int64("db.nats.revision", int64(revision)))
	defer span.End()

	if !r.IsReady() {
		return failSpan(span, r.unavailable(), "")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return failSpan(span, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err), "")
	}

	if _, err := r.kvStore.Update(ctx, key, data, revision); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return failSpan(span, domain.NewNotFoundError(fmt.Sprintf("%s not found", r.entityName), err), "not found")
		}
		if isWrongLastSequence(err) {
			return failSpan(span, domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), err), "conflict")
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error updating %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key, "revision", revision)
		return failSpan(span, domain.NewInternalError(fmt.Sprintf("failed to update %s in store", r.entityName), err), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CreateLookup stores a unique secondary key whose value is the owning entity UID.
// Re-creating a lookup that already points at the same UID is not an error.
func (r *NatsBaseRepository[T]) CreateLookup(ctx context.Context, lookupKey, entityUID string) error {
	ctx, span := r.startSpan(ctx, "create_lookup", lookupKey)
	defer span.End()

	if !r.IsReady() {
		return failSpan(span, r.unavailable(), "")
	}

	if _, err := r.kvStore.Create(ctx, lookupKey, []byte(entityUID)); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			existing, getErr := r.ResolveLookup(ctx, lookupKey)
			if getErr == nil && existing == entityUID {
				span.SetStatus(codes.Ok, "")
				return nil
			}
			return failSpan(span, domain.NewConflictError(
				fmt.Sprintf("%s lookup '%s' is already taken", r.entityName, lookupKey), err), "conflict")
		}
		slog.ErrorContext(ctx, "error creating lookup", logging.ErrKey, err, "lookup_key", lookupKey)
		return failSpan(span, domain.NewInternalError("failed to create lookup", err), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ResolveLookup returns the entity UID stored under a lookup key.
func (r *NatsBaseRepository[T]) ResolveLookup(ctx context.Context, lookupKey string) (string, error) {
	entry, err := r.GetRaw(ctx, lookupKey)
	if err != nil {
		return "", err
	}
	uid := string(entry.Value())
	if uid == "" {
		return "", domain.NewNotFoundError(fmt.Sprintf("%s lookup '%s' is empty", r.entityName, lookupKey))
	}
	return uid, nil
}
