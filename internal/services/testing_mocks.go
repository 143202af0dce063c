package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/models"
)

// MockBookmakerStore implements BookmakerStore for testing
type MockBookmakerStore struct {
	mock.Mock
}

func (m *MockBookmakerStore) Upsert(ctx context.Context, b models.Bookmaker) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}

func (m *MockBookmakerStore) List(ctx context.Context) ([]models.Bookmaker, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bookmaker), args.Error(1)
}

// MockEventStore implements EventStore for testing
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Upsert(ctx context.Context, ev models.NormalizedEvent) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

func (m *MockEventStore) GetByID(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

// MockOddsStore implements OddsStore and OddsHistoryStore for testing
type MockOddsStore struct {
	mock.Mock
}

func (m *MockOddsStore) InsertSnapshots(ctx context.Context, snapshots []models.OddsSnapshot) (int, error) {
	args := m.Called(ctx, snapshots)
	return args.Int(0), args.Error(1)
}

func (m *MockOddsStore) ListRecent(ctx context.Context, since time.Time) ([]models.QuoteSnapshot, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuoteSnapshot), args.Error(1)
}

func (m *MockOddsStore) HistoryForEvent(ctx context.Context, eventID, market string, limit int) ([]models.QuoteSnapshot, error) {
	args := m.Called(ctx, eventID, market, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuoteSnapshot), args.Error(1)
}

// MockOpportunityStore implements OpportunityStore and OpportunityExpirer for testing
type MockOpportunityStore struct {
	mock.Mock
}

func (m *MockOpportunityStore) Create(ctx context.Context, o *models.Opportunity) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOpportunityStore) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Opportunity), args.Error(1)
}

func (m *MockOpportunityStore) Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockOpportunityStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockSyncStateStore implements SyncStateStore for testing
type MockSyncStateStore struct {
	mock.Mock
}

func (m *MockSyncStateStore) Record(ctx context.Context, provider, sportKey string, success bool, errMsg string, at time.Time) error {
	args := m.Called(ctx, provider, sportKey, success, errMsg, at)
	return args.Error(0)
}

// MockSettingsStore implements SettingsStore for testing
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Get(ctx context.Context) (*models.UserSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSettings), args.Error(1)
}

// MockAlertStore implements AlertStore for testing
type MockAlertStore struct {
	mock.Mock
}

func (m *MockAlertStore) Create(ctx context.Context, a *models.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAlertStore) MarkResult(ctx context.Context, id string, status models.AlertStatus, errMsg string, sentAt *time.Time) error {
	args := m.Called(ctx, id, status, errMsg, sentAt)
	return args.Error(0)
}

func (m *MockAlertStore) SentStakeSince(ctx context.Context, since time.Time) (float64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(float64), args.Error(1)
}

// MockRetentionStore implements RetentionStore for testing
type MockRetentionStore struct {
	mock.Mock
}

func (m *MockRetentionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	mock.Mock
	channel models.AlertChannel
}

// NewMockNotifier creates a mock notifier for channel.
func NewMockNotifier(channel models.AlertChannel) *MockNotifier {
	return &MockNotifier{channel: channel}
}

func (m *MockNotifier) Channel() models.AlertChannel {
	return m.channel
}

func (m *MockNotifier) Send(ctx context.Context, recipient string, msg AlertMessage) error {
	args := m.Called(ctx, recipient, msg)
	return args.Error(0)
}

// MockSource implements connectors.Source for testing
type MockSource struct {
	mock.Mock
	name string
}

// NewMockSource creates a mock provider named name.
func NewMockSource(name string) *MockSource {
	return &MockSource{name: name}
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Fetch(ctx context.Context) (*connectors.FetchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connectors.FetchResult), args.Error(1)
}
