// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/store"
	"github.com/stretchr/testify/require"
)

// testStores holds in-memory buckets and the repositories over them.
type testStores struct {
	meetingsKV  *store.MemoryKeyValue
	sessionsKV  *store.MemoryKeyValue
	calendarsKV *store.MemoryKeyValue
	jobsKV      *store.MemoryKeyValue
	contactsKV  *store.MemoryKeyValue
	eventsKV    *store.MemoryKeyValue

	meetings  *store.NatsMeetingRepository
	sessions  *store.NatsBotSessionRepository
	calendars *store.NatsCalendarConnectionRepository
	jobs      *store.NatsEnrichmentJobRepository
	contacts  *store.NatsContactRepository
	events    *store.NatsWebhookEventRepository
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()
	s := &testStores{
		meetingsKV:  store.NewMemoryKeyValue(store.KVStoreNameMeetings),
		sessionsKV:  store.NewMemoryKeyValue(store.KVStoreNameMeetingBotSessions),
		calendarsKV: store.NewMemoryKeyValue(store.KVStoreNameCalendarConnections),
		jobsKV:      store.NewMemoryKeyValue(store.KVStoreNameEnrichmentJobs),
		contactsKV:  store.NewMemoryKeyValue(store.KVStoreNameContacts),
		eventsKV:    store.NewMemoryKeyValue(store.KVStoreNameWebhookEvents),
	}
	s.meetings = store.NewNatsMeetingRepository(s.meetingsKV)
	s.sessions = store.NewNatsBotSessionRepository(s.sessionsKV)
	s.calendars = store.NewNatsCalendarConnectionRepository(s.calendarsKV)
	s.jobs = store.NewNatsEnrichmentJobRepository(s.jobsKV)
	s.contacts = store.NewNatsContactRepository(s.contactsKV)
	s.events = store.NewNatsWebhookEventRepository(s.eventsKV)
	return s
}

// seedBotSession stores a meeting and a bot session for provider bot id botID.
func (s *testStores) seedBotSession(t *testing.T, botID string, status models.MeetingStatus) (*models.Meeting, *models.MeetingBotSession) {
	t.Helper()
	ctx := context.Background()

	meeting := &models.Meeting{TenantID: "tenant-1", Title: "Weekly sync", Status: status}
	require.NoError(t, s.meetings.Create(ctx, meeting))

	session := &models.MeetingBotSession{
		MeetingUID:    meeting.UID,
		TenantID:      "tenant-1",
		ProviderBotID: botID,
		Status:        status,
	}
	require.NoError(t, s.sessions.Create(ctx, session))
	return meeting, session
}

func (s *testStores) meeting(t *testing.T, uid string) *models.Meeting {
	t.Helper()
	meeting, _, err := s.meetings.GetWithRevision(context.Background(), uid)
	require.NoError(t, err)
	return meeting
}

func (s *testStores) session(t *testing.T, uid string) *models.MeetingBotSession {
	t.Helper()
	session, _, err := s.sessions.GetWithRevision(context.Background(), uid)
	require.NoError(t, err)
	return session
}

func (s *testStores) seedCalendar(t *testing.T, provider models.Provider, channelID, resourceID string, active bool) *models.CalendarConnection {
	t.Helper()
	connection := &models.CalendarConnection{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Provider:   provider,
		ChannelID:  channelID,
		ResourceID: resourceID,
		IsActive:   active,
	}
	require.NoError(t, s.calendars.Create(context.Background(), connection))
	return connection
}

// seedEnrichmentJob stores n contacts and a PROCESSING job that issued
// correlation ids corr-0..corr-n-1 for them.
func (s *testStores) seedEnrichmentJob(t *testing.T, requestID string, n int) (*models.EnrichmentJob, []*models.Contact) {
	t.Helper()
	ctx := context.Background()

	contacts := make([]*models.Contact, 0, n)
	items := make([]models.EnrichmentRequestItem, 0, n)
	for i := 0; i < n; i++ {
		contact := &models.Contact{TenantID: "tenant-1", FirstName: "Ada", Email: "ada@example.org"}
		require.NoError(t, s.contacts.Create(ctx, contact))
		contacts = append(contacts, contact)
		items = append(items, models.EnrichmentRequestItem{ContactUID: contact.UID, CorrelationID: correlationID(i)})
	}

	job := &models.EnrichmentJob{
		TenantID:    "tenant-1",
		RequestData: models.EnrichmentRequestData{RequestID: requestID, Items: items},
	}
	require.NoError(t, s.jobs.Create(ctx, job))
	return job, contacts
}

func (s *testStores) job(t *testing.T, uid string) *models.EnrichmentJob {
	t.Helper()
	job, _, err := s.jobs.GetWithRevision(context.Background(), uid)
	require.NoError(t, err)
	return job
}

func (s *testStores) contact(t *testing.T, uid string) *models.Contact {
	t.Helper()
	contact, _, err := s.contacts.GetWithRevision(context.Background(), uid)
	require.NoError(t, err)
	return contact
}

func correlationID(i int) string {
	return "corr-" + string(rune('a'+i%26)) + string(rune('a'+i/26%26)) + string(rune('a'+i/676%26))
}

// enrichedItem is a FOUND result item echoing correlation id i.
func enrichedItem(i int) models.EnrichmentResultItem {
	return models.EnrichmentResultItem{
		Status:      "FOUND",
		JobTitle:    "Engineer",
		CompanyName: "Example Corp",
		Custom:      map[string]any{"correlation_id": correlationID(i)},
	}
}

// runActions executes actions inline and returns their errors.
func runActions(ctx context.Context, actions []Action) []error {
	var errs []error
	for _, action := range actions {
		if err := action.Run(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func actionNames(actions []Action) []string {
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, action.Name)
	}
	return names
}

// recordingSink is a WorkflowSink that records every call.
type recordingSink struct {
	mu      sync.Mutex
	starts  []models.WorkflowStartRequest
	signals []models.WorkflowSignal
	err     error
}

func (r *recordingSink) StartWorkflow(_ context.Context, req models.WorkflowStartRequest) (*models.WorkflowHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, req)
	if r.err != nil {
		return nil, r.err
	}
	return &models.WorkflowHandle{WorkflowID: req.WorkflowID}, nil
}

func (r *recordingSink) SignalStatus(_ context.Context, signal models.WorkflowSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, signal)
	return r.err
}

func (r *recordingSink) Starts() []models.WorkflowStartRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WorkflowStartRequest(nil), r.starts...)
}

func (r *recordingSink) Signals() []models.WorkflowSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WorkflowSignal(nil), r.signals...)
}

// recordingNotifier is a NotificationSender that records every call.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) SendNotification(_ context.Context, notification models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification)
	return nil
}

func (r *recordingNotifier) Sent() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.sent...)
}

var testTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
