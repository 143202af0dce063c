package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RetentionStore is a table the cleanup service can prune or expire.
type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OpportunityExpirer moves active opportunities past their expiry to expired.
type OpportunityExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// CleanupConfig defines cleanup configuration
type CleanupConfig struct {
	Interval             time.Duration
	SnapshotRetention    time.Duration
	OpportunityRetention time.Duration
	AlertRetention       time.Duration
}

// CleanupResult counts the rows touched by one cleanup pass.
type CleanupResult struct {
	Expired              int64 `json:"expired"`
	SnapshotsDeleted     int64 `json:"snapshots_deleted"`
	OpportunitiesDeleted int64 `json:"opportunities_deleted"`
	AlertsDeleted        int64 `json:"alerts_deleted"`
}

// CleanupService expires stale opportunities and prunes old data
type CleanupService struct {
	expirer       OpportunityExpirer
	snapshots     RetentionStore
	opportunities RetentionStore
	alerts        RetentionStore
	config        CleanupConfig
	logger        *logrus.Logger
	now           func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewCleanupService creates a new cleanup service. Zero retentions keep the
// defaults of 24h snapshots, 72h opportunities and 30 days of alerts.
func NewCleanupService(expirer OpportunityExpirer, snapshots, opportunities, alerts RetentionStore, cfg CleanupConfig, logger *logrus.Logger) *CleanupService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.SnapshotRetention <= 0 {
		cfg.SnapshotRetention = 24 * time.Hour
	}
	if cfg.OpportunityRetention <= 0 {
		cfg.OpportunityRetention = 72 * time.Hour
	}
	if cfg.AlertRetention <= 0 {
		cfg.AlertRetention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CleanupService{
		expirer:       expirer,
		snapshots:     snapshots,
		opportunities: opportunities,
		alerts:        alerts,
		config:        cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Start begins the cleanup service with periodic cleanup
func (c *CleanupService) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true

	c.logger.WithFields(logrus.Fields{
		"interval":              c.config.Interval.String(),
		"snapshot_retention":    c.config.SnapshotRetention.String(),
		"opportunity_retention": c.config.OpportunityRetention.String(),
	}).Info("Starting cleanup service")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runLogged(ctx)

		ticker := time.NewTicker(c.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.runLogged(ctx)
			}
		}
	}()
}

// Stop stops the cleanup service
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("Cleanup service stopped")
}

func (c *CleanupService) runLogged(ctx context.Context) {
	if _, err := c.RunCleanup(ctx); err != nil && ctx.Err() == nil {
		c.logger.WithError(err).Error("Cleanup failed")
	}
}

// RunCleanup performs one cleanup pass: expire due opportunities, then drop
// rows past their retention.
func (c *CleanupService) RunCleanup(ctx context.Context) (*CleanupResult, error) {
	now := c.now()
	var result CleanupResult
	var err error

	if result.Expired, err = c.expirer.ExpireDue(ctx, now); err != nil {
		return nil, fmt.Errorf("failed to expire opportunities: %w", err)
	}
	if result.SnapshotsDeleted, err = c.snapshots.DeleteOlderThan(ctx, now.Add(-c.config.SnapshotRetention)); err != nil {
		return nil, fmt.Errorf("failed to cleanup odds snapshots: %w", err)
	}
	if result.OpportunitiesDeleted, err = c.opportunities.DeleteOlderThan(ctx, now.Add(-c.config.OpportunityRetention)); err != nil {
		return nil, fmt.Errorf("failed to cleanup opportunities: %w", err)
	}
	if result.AlertsDeleted, err = c.alerts.DeleteOlderThan(ctx, now.Add(-c.config.AlertRetention)); err != nil {
		return nil, fmt.Errorf("failed to cleanup alerts: %w", err)
	}

	if result != (CleanupResult{}) {
		c.logger.WithFields(logrus.Fields{
			"expired":               result.Expired,
			"snapshots_deleted":     result.SnapshotsDeleted,
			"opportunities_deleted": result.OpportunitiesDeleted,
			"alerts_deleted":        result.AlertsDeleted,
		}).Info("Data cleanup completed")
	}
	return &result, nil
}
