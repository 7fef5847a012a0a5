// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCtx(t *testing.T) {
	ctx := AppendCtx(context.TODO(), slog.String("key1", "value1"))

	attrs, ok := ctx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	require.Len(t, attrs, 1)
	assert.Equal(t, "key1", attrs[0].Key)
	assert.Equal(t, "value1", attrs[0].Value.String())
}

func TestAppendCtx_WithParent(t *testing.T) {
	parentCtx := AppendCtx(context.Background(), slog.String("parent_key", "parent_value"))
	childCtx := AppendCtx(parentCtx, slog.String("child_key", "child_value"))

	attrs, ok := childCtx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	require.Len(t, attrs, 2)
	assert.Equal(t, "parent_key", attrs[0].Key)
	assert.Equal(t, "child_key", attrs[1].Key)

	parentAttrs := parentCtx.Value(slogFields).([]slog.Attr)
	assert.Len(t, parentAttrs, 1, "parent context must not see child attributes")
}

func TestAppendCtx_SiblingsDoNotShareAttributes(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("base", "1"))
	parent = AppendCtx(parent, slog.String("base2", "2"))

	left := AppendCtx(parent, slog.String("side", "left"))
	right := AppendCtx(parent, slog.String("side", "right"))

	leftAttrs := left.Value(slogFields).([]slog.Attr)
	rightAttrs := right.Value(slogFields).([]slog.Attr)
	assert.Equal(t, "left", leftAttrs[2].Value.String())
	assert.Equal(t, "right", rightAttrs[2].Value.String())
}

func TestWithWebhookEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithWebhookEvent(context.Background(), "BOT_PROVIDER", "evt-42")
	logger.InfoContext(ctx, "webhook received", OutcomeKey, "applied")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "webhook received", line["msg"])
	assert.Equal(t, "BOT_PROVIDER", line[ProviderKey])
	assert.Equal(t, "evt-42", line[ProviderEventIDKey])
	assert.Equal(t, "applied", line[OutcomeKey])
}

func TestContextHandler_Handle(t *testing.T) {
	var captured slog.Record
	handler := contextHandler{Handler: &testSlogHandler{
		handleFunc: func(_ context.Context, r slog.Record) error {
			captured = r
			return nil
		},
	}}

	ctx := AppendCtx(context.Background(), slog.String("ctx_key", "ctx_value"))
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test message", 0)
	record.AddAttrs(slog.String("record_key", "record_value"))

	require.NoError(t, handler.Handle(ctx, record))

	got := map[string]string{}
	captured.Attrs(func(a slog.Attr) bool {
		got[a.Key] = a.Value.String()
		return true
	})
	assert.Equal(t, map[string]string{"record_key": "record_value", "ctx_key": "ctx_value"}, got)
}

func TestContextHandler_WithAttrsKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).With("component", "dispatcher")

	ctx := AppendCtx(context.Background(), slog.String("request_id", "req-1"))
	logger.InfoContext(ctx, "queued")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dispatcher", line["component"])
	assert.Equal(t, "req-1", line["request_id"])
}

func TestInitStructureLogConfig(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		addSource string
		enabled   slog.Level
		disabled  *slog.Level
	}{
		{name: "default level", logLevel: "", enabled: slog.LevelDebug},
		{name: "debug level", logLevel: "debug", enabled: slog.LevelDebug},
		{name: "warn level", logLevel: "warn", enabled: slog.LevelWarn, disabled: levelPtr(slog.LevelInfo)},
		{name: "error level", logLevel: "error", enabled: slog.LevelError, disabled: levelPtr(slog.LevelWarn)},
		{name: "info level", logLevel: "info", enabled: slog.LevelInfo, disabled: levelPtr(slog.LevelDebug)},
		{name: "unknown level", logLevel: "unknown", enabled: slog.LevelDebug},
		{name: "add source", logLevel: "info", addSource: "1", enabled: slog.LevelInfo},
	}

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)
			t.Setenv("LOG_ADD_SOURCE", tt.addSource)

			handler := InitStructureLogConfig()

			require.NotNil(t, handler)
			assert.True(t, handler.Enabled(context.Background(), tt.enabled))
			if tt.disabled != nil {
				assert.False(t, handler.Enabled(context.Background(), *tt.disabled))
			}
		})
	}
}

func TestPriorityCritical(t *testing.T) {
	attr := PriorityCritical()
	assert.Equal(t, "priority", attr.Key)
	assert.Equal(t, "critical", attr.Value.String())
	assert.Equal(t, "error", ErrKey)
}

func levelPtr(l slog.Level) *slog.Level {
	return &l
}

// testSlogHandler is a helper for testing
type testSlogHandler struct {
	handleFunc func(context.Context, slog.Record) error
}

func (h *testSlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *testSlogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.handleFunc != nil {
		return h.handleFunc(ctx, r)
	}
	return nil
}

func (h *testSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *testSlogHandler) WithGroup(name string) slog.Handler {
	return h
}
