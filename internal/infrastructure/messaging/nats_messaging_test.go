// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNATSConn is a testify mock of INatsConn
type MockNATSConn struct {
	mock.Mock
}

func (m *MockNATSConn) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNATSConn) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func TestMessageBuilder_sendMessage(t *testing.T) {
	tests := []struct {
		name         string
		connected    bool
		publishError error
		wantErr      bool
		wantType     domain.ErrorType
	}{
		{name: "successful send", connected: true},
		{name: "publish error", connected: true, publishError: errors.New("publish failed"), wantErr: true, wantType: domain.ErrorTypeInternal},
		{name: "disconnected", connected: false, wantErr: true, wantType: domain.ErrorTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockConn := new(MockNATSConn)
			mockConn.On("IsConnected").Return(tt.connected)
			if tt.connected {
				mockConn.On("Publish", "test.subject", []byte("test data")).Return(tt.publishError)
			}

			builder := NewMessageBuilder(mockConn)
			err := builder.sendMessage(context.Background(), "test.subject", []byte("test data"))

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantType, domain.GetErrorType(err))
			} else {
				assert.NoError(t, err)
			}
			mockConn.AssertExpectations(t)
		})
	}
}

func TestMessageBuilder_SendNotification(t *testing.T) {
	notification := models.Notification{
		DedupKey:   "m-1:FAILED",
		TenantID:   "tenant-1",
		Kind:       "meeting.recording_failed",
		EntityType: "meeting",
		EntityID:   "m-1",
		Title:      "Recording failed",
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	mockConn := new(MockNATSConn)
	mockConn.On("IsConnected").Return(true)
	mockConn.On("Publish", models.NotificationCreateSubject, mock.MatchedBy(func(data []byte) bool {
		var got models.Notification
		return json.Unmarshal(data, &got) == nil &&
			got.DedupKey == notification.DedupKey &&
			got.EntityID == notification.EntityID &&
			got.CreatedAt.Equal(notification.CreatedAt)
	})).Return(nil)

	require.NoError(t, NewMessageBuilder(mockConn).SendNotification(context.Background(), notification))
	mockConn.AssertExpectations(t)
}

func TestNatsMessage(t *testing.T) {
	msg := NewNatsMessage(&nats.Msg{Subject: "lfx.webhooks.enrichment.request", Data: []byte("{}")})

	assert.Equal(t, "lfx.webhooks.enrichment.request", msg.Subject())
	assert.Equal(t, []byte("{}"), msg.Data())
	assert.False(t, msg.HasReply())

	withReply := NewNatsMessage(&nats.Msg{Subject: "s", Reply: "_INBOX.1"})
	assert.True(t, withReply.HasReply())
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), ConnectionConfig{Name: "test"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	assert.False(t, IsConnReady(nil))
}
