package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// AlertRepository handles database operations for alert deliveries.
type AlertRepository struct {
	pool DatabasePool
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(pool DatabasePool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

// Create stores a new alert. The caller assigns the id.
func (r *AlertRepository) Create(ctx context.Context, a *models.Alert) error {
	query := `
		INSERT INTO alerts (id, opportunity_id, channel, recipient, title, message, status, total_stake, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.OpportunityID, string(a.Channel), a.Recipient, a.Title, a.Message,
		string(a.Status), a.TotalStake, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// MarkResult records the outcome of a delivery attempt. sentAt is nil for
// failed deliveries.
func (r *AlertRepository) MarkResult(ctx context.Context, id string, status models.AlertStatus, errMsg string, sentAt *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE alerts SET status = $2, error_message = NULLIF($3, ''), sent_at = $4 WHERE id = $1`,
		id, string(status), errMsg, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert %s: %w", id, err)
	}
	return nil
}

// ListRecent returns the newest alerts.
func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]models.Alert, error) {
	query := `
		SELECT id::text, opportunity_id::text, channel, recipient, title, message, status,
			COALESCE(error_message, ''), total_stake, sent_at, created_at
		FROM alerts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.Alert, 0)
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(
			&a.ID, &a.OpportunityID, &a.Channel, &a.Recipient, &a.Title, &a.Message, &a.Status,
			&a.ErrorMessage, &a.TotalStake, &a.SentAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return out, nil
}

// CountSince returns the number of alerts created since the given time.
func (r *AlertRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// SentStakeSince sums the stake of opportunities alerted since the given
// time. An opportunity delivered on several channels counts once.
func (r *AlertRepository) SentStakeSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_stake), 0)::float8
		FROM (
			SELECT DISTINCT ON (opportunity_id) total_stake
			FROM alerts
			WHERE status = 'sent' AND sent_at >= $1
		) sent
	`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum alerted stake: %w", err)
	}
	return total, nil
}

// DeleteOlderThan removes alerts created before cutoff.
func (r *AlertRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}
