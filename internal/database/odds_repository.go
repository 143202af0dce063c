package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/irfndi/oddsradar-go/internal/models"
)

const quoteColumns = `
	s.id, s.event_id::text, s.bookmaker_id::text, s.market_type, s.odds_home, s.odds_away,
	COALESCE(s.odds_draw, 0), COALESCE(s.point, 0), COALESCE(s.odds_over, 0), COALESCE(s.odds_under, 0),
	COALESCE(s.liquidity, 0), s.captured_at, s.source_api,
	b.key, b.name, b.commission, b.reliability, b.max_stake, b.supports_both_sides`

// OddsRepository handles database operations for odds snapshots.
type OddsRepository struct {
	pool DatabasePool
}

// NewOddsRepository creates a new odds repository.
func NewOddsRepository(pool DatabasePool) *OddsRepository {
	return &OddsRepository{pool: pool}
}

func scanQuote(row rowScanner) (models.QuoteSnapshot, error) {
	var q models.QuoteSnapshot
	err := row.Scan(
		&q.ID,
		&q.EventID,
		&q.BookmakerID,
		&q.MarketType,
		&q.OddsHome,
		&q.OddsAway,
		&q.OddsDraw,
		&q.Point,
		&q.OddsOver,
		&q.OddsUnder,
		&q.Liquidity,
		&q.CapturedAt,
		&q.SourceAPI,
		&q.BookmakerKey,
		&q.BookmakerName,
		&q.Commission,
		&q.Reliability,
		&q.MaxStake,
		&q.SupportsBothSides,
	)
	return q, err
}

func collectQuotes(rows pgx.Rows) ([]models.QuoteSnapshot, error) {
	defer rows.Close()

	var out []models.QuoteSnapshot
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan odds snapshot: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating odds snapshots: %w", err)
	}
	return out, nil
}

// InsertSnapshots stores snapshots in one transaction. Optional prices that
// are zero are stored as NULL.
//
// Returns:
//
//	int: Number of rows inserted.
//	error: Error if any insert fails; nothing is stored in that case.
func (r *OddsRepository) InsertSnapshots(ctx context.Context, snapshots []models.OddsSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer rollback(ctx, tx)

	query := `
		INSERT INTO odds_snapshots (
			event_id, bookmaker_id, market_type, odds_home, odds_away, odds_draw,
			point, odds_over, odds_under, liquidity, captured_at, source_api
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, s := range snapshots {
		_, err := tx.Exec(ctx, query,
			s.EventID, s.BookmakerID, s.MarketType, s.OddsHome, s.OddsAway, nullIfZero(s.OddsDraw),
			nullIfZero(s.Point), nullIfZero(s.OddsOver), nullIfZero(s.OddsUnder), nullIfZero(s.Liquidity),
			s.CapturedAt, string(s.SourceAPI),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert snapshot for event %s: %w", s.EventID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit snapshots: %w", err)
	}
	return len(snapshots), nil
}

// ListRecent returns snapshots captured since the given time for scheduled
// events and active bookmakers, newest first.
func (r *OddsRepository) ListRecent(ctx context.Context, since time.Time) ([]models.QuoteSnapshot, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM odds_snapshots s
		JOIN bookmakers b ON b.id = s.bookmaker_id
		JOIN events e ON e.id = s.event_id
		WHERE s.captured_at >= $1 AND b.is_active AND e.status = 'scheduled'
		ORDER BY s.captured_at DESC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent snapshots: %w", err)
	}
	return collectQuotes(rows)
}

// HistoryForEvent returns up to limit of the most recent snapshots of one
// event market, oldest first.
func (r *OddsRepository) HistoryForEvent(ctx context.Context, eventID, market string, limit int) ([]models.QuoteSnapshot, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM odds_snapshots s
		JOIN bookmakers b ON b.id = s.bookmaker_id
		WHERE s.event_id = $1 AND s.market_type = $2
		ORDER BY s.captured_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, eventID, market, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for event %s: %w", eventID, err)
	}
	out, err := collectQuotes(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestForEvents returns the newest snapshot per bookmaker and market for
// each of the given events.
func (r *OddsRepository) LatestForEvents(ctx context.Context, eventIDs []string) (map[string][]models.QuoteSnapshot, error) {
	out := make(map[string][]models.QuoteSnapshot, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT DISTINCT ON (s.event_id, s.bookmaker_id, s.market_type) ` + quoteColumns + `
		FROM odds_snapshots s
		JOIN bookmakers b ON b.id = s.bookmaker_id
		WHERE s.event_id = ANY($1::uuid[])
		ORDER BY s.event_id, s.bookmaker_id, s.market_type, s.captured_at DESC
	`

	rows, err := r.pool.Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest odds: %w", err)
	}
	quotes, err := collectQuotes(rows)
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		out[q.EventID] = append(out[q.EventID], q)
	}
	return out, nil
}

// DeleteOlderThan removes snapshots captured before cutoff.
func (r *OddsRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM odds_snapshots WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
