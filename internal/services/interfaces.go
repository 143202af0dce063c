package services

import (
	"context"
	"time"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/models"
)

// The store interfaces below are the slices of the database repositories the
// services depend on. The repositories in internal/database satisfy them.

type BookmakerStore interface {
	Upsert(ctx context.Context, b models.Bookmaker) (string, error)
	List(ctx context.Context) ([]models.Bookmaker, error)
}

type EventStore interface {
	Upsert(ctx context.Context, ev models.NormalizedEvent) (string, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

type OddsStore interface {
	InsertSnapshots(ctx context.Context, snapshots []models.OddsSnapshot) (int, error)
	ListRecent(ctx context.Context, since time.Time) ([]models.QuoteSnapshot, error)
}

type OddsHistoryStore interface {
	HistoryForEvent(ctx context.Context, eventID, market string, limit int) ([]models.QuoteSnapshot, error)
}

type OpportunityStore interface {
	Create(ctx context.Context, o *models.Opportunity) error
	GetByID(ctx context.Context, id string) (*models.Opportunity, error)
	Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

type SyncStateStore interface {
	Record(ctx context.Context, provider, sportKey string, success bool, errMsg string, at time.Time) error
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.UserSettings, error)
}

type AlertStore interface {
	Create(ctx context.Context, a *models.Alert) error
	MarkResult(ctx context.Context, id string, status models.AlertStatus, errMsg string, sentAt *time.Time) error
	SentStakeSince(ctx context.Context, since time.Time) (float64, error)
}

// CacheInvalidator drops cached opportunity listings after new data lands.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// OpportunityPublisher pushes a new opportunity to live subscribers.
type OpportunityPublisher interface {
	PublishOpportunity(o models.Opportunity)
}

// OpportunityAlerter decides whether and where to alert on an opportunity.
type OpportunityAlerter interface {
	Dispatch(ctx context.Context, o *models.Opportunity) error
}

// VolatilityEstimator classifies how fast prices move in a market.
type VolatilityEstimator interface {
	Volatility(ctx context.Context, eventID, market string) (arbitrage.Volatility, error)
}

// AlertDeduplicator suppresses repeated alerts for the same arbitrage.
type AlertDeduplicator interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// AlertLimiter caps the global alert rate.
type AlertLimiter interface {
	Allow(ctx context.Context) (bool, error)
}
