package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/services"
)

// Mocks for the handler dependencies, shared by the handler and route tests.

type MockOpportunityRepository struct {
	mock.Mock
}

func (m *MockOpportunityRepository) ListActive(ctx context.Context, filter models.OpportunityFilter) ([]models.Opportunity, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Opportunity), args.Error(1)
}

func (m *MockOpportunityRepository) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Opportunity), args.Error(1)
}

func (m *MockOpportunityRepository) UpdateStatus(ctx context.Context, id string, next models.OpportunityStatus) error {
	args := m.Called(ctx, id, next)
	return args.Error(0)
}

func (m *MockOpportunityRepository) Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockOpportunityRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

type MockOpportunityCache struct {
	mock.Mock
}

func (m *MockOpportunityCache) GetActive(ctx context.Context) ([]models.Opportunity, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]models.Opportunity), args.Bool(1)
}

func (m *MockOpportunityCache) SetActive(ctx context.Context, opportunities []models.Opportunity) {
	m.Called(ctx, opportunities)
}

func (m *MockOpportunityCache) GetDashboardStats(ctx context.Context) (*models.DashboardStats, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Bool(1)
}

func (m *MockOpportunityCache) SetDashboardStats(ctx context.Context, stats *models.DashboardStats) {
	m.Called(ctx, stats)
}

func (m *MockOpportunityCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

type MockLatestOddsReader struct {
	mock.Mock
}

func (m *MockLatestOddsReader) LatestForEvents(ctx context.Context, eventIDs []string) (map[string][]models.QuoteSnapshot, error) {
	args := m.Called(ctx, eventIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.QuoteSnapshot), args.Error(1)
}

type MockTrendAnalyzer struct {
	mock.Mock
}

func (m *MockTrendAnalyzer) Trend(ctx context.Context, eventID, market string) (*services.OddsTrend, error) {
	args := m.Called(ctx, eventID, market)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OddsTrend), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*models.UserSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSettings), args.Error(1)
}

func (m *MockSettingsRepository) Update(ctx context.Context, in models.SettingsInput) (*models.UserSettings, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSettings), args.Error(1)
}

type MockSyncRunner struct {
	mock.Mock
}

func (m *MockSyncRunner) RunOnce(ctx context.Context, source string) (*models.SyncReport, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncReport), args.Error(1)
}

func (m *MockSyncRunner) LastReport() *models.SyncReport {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.SyncReport)
}

func (m *MockSyncRunner) IsRunning() bool {
	args := m.Called()
	return args.Bool(0)
}

type MockSyncStateLister struct {
	mock.Mock
}

func (m *MockSyncStateLister) List(ctx context.Context) ([]models.SyncState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncState), args.Error(1)
}

type MockAlertLister struct {
	mock.Mock
}

func (m *MockAlertLister) ListRecent(ctx context.Context, limit int) ([]models.Alert, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

type MockManualAlerter struct {
	mock.Mock
}

func (m *MockManualAlerter) SendManual(ctx context.Context, opportunityID string, channel models.AlertChannel, recipient string) (*models.Alert, error) {
	args := m.Called(ctx, opportunityID, channel, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
