// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
)

// MockWorkflowSink implements domain.WorkflowSink for testing
type MockWorkflowSink struct {
	mock.Mock
}

func (m *MockWorkflowSink) StartWorkflow(ctx context.Context, req models.WorkflowStartRequest) (*models.WorkflowHandle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkflowHandle), args.Error(1)
}

func (m *MockWorkflowSink) SignalStatus(ctx context.Context, signal models.WorkflowSignal) error {
	args := m.Called(ctx, signal)
	return args.Error(0)
}

// MockNotificationSender implements domain.NotificationSender for testing
type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) SendNotification(ctx context.Context, notification models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockEnrichmentProvider implements domain.EnrichmentProvider for testing
type MockEnrichmentProvider struct {
	mock.Mock
}

func (m *MockEnrichmentProvider) RequestEnrichment(ctx context.Context, req models.EnrichmentAPIRequest) (*models.EnrichmentAPIResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EnrichmentAPIResponse), args.Error(1)
}
