package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// SyncStateRepository tracks the health of each provider across sync cycles.
type SyncStateRepository struct {
	pool DatabasePool
}

// NewSyncStateRepository creates a new sync state repository.
func NewSyncStateRepository(pool DatabasePool) *SyncStateRepository {
	return &SyncStateRepository{pool: pool}
}

// Record stores the outcome of one sync attempt. A success resets the
// consecutive error count; a failure increments it and keeps the previous
// success time.
func (r *SyncStateRepository) Record(ctx context.Context, provider, sportKey string, success bool, errMsg string, at time.Time) error {
	var successAt, errorAt *time.Time
	consecutive := 0
	if success {
		successAt = &at
		errMsg = ""
	} else {
		errorAt = &at
		consecutive = 1
	}

	query := `
		INSERT INTO sync_state (provider, sport_key, last_sync_at, last_success_at, last_error_at, last_error, consecutive_errors, total_syncs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (provider, sport_key) DO UPDATE SET
			last_sync_at = EXCLUDED.last_sync_at,
			last_success_at = COALESCE(EXCLUDED.last_success_at, sync_state.last_success_at),
			last_error_at = COALESCE(EXCLUDED.last_error_at, sync_state.last_error_at),
			last_error = EXCLUDED.last_error,
			consecutive_errors = CASE WHEN EXCLUDED.consecutive_errors = 0 THEN 0 ELSE sync_state.consecutive_errors + 1 END,
			total_syncs = sync_state.total_syncs + 1
	`
	_, err := r.pool.Exec(ctx, query, provider, sportKey, at, successAt, errorAt, errMsg, consecutive)
	if err != nil {
		return fmt.Errorf("failed to record sync state for %s: %w", provider, err)
	}
	return nil
}

// List returns every provider state, most recently synced first.
func (r *SyncStateRepository) List(ctx context.Context) ([]models.SyncState, error) {
	query := `
		SELECT provider, sport_key, last_sync_at, last_success_at, last_error_at, COALESCE(last_error, ''), consecutive_errors, total_syncs
		FROM sync_state
		ORDER BY last_sync_at DESC NULLS LAST, provider
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync state: %w", err)
	}
	defer rows.Close()

	out := make([]models.SyncState, 0)
	for rows.Next() {
		var s models.SyncState
		if err := rows.Scan(
			&s.Provider, &s.SportKey, &s.LastSyncAt, &s.LastSuccessAt, &s.LastErrorAt,
			&s.LastError, &s.ConsecutiveErrors, &s.TotalSyncs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync state: %w", err)
	}
	return out, nil
}
