package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

const eventColumns = `id::text, external_id, source_api, sport_key, competition, home_team, away_team, commence_time, status, created_at, updated_at`

// EventRepository handles database operations for events.
type EventRepository struct {
	pool DatabasePool
}

// NewEventRepository creates a new event repository.
func NewEventRepository(pool DatabasePool) *EventRepository {
	return &EventRepository{pool: pool}
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID,
		&e.ExternalID,
		&e.SourceAPI,
		&e.SportKey,
		&e.Competition,
		&e.HomeTeam,
		&e.AwayTeam,
		&e.CommenceTime,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert stores a normalized event keyed by its external id and returns the
// internal id.
func (r *EventRepository) Upsert(ctx context.Context, ev models.NormalizedEvent) (string, error) {
	query := `
		INSERT INTO events (external_id, source_api, sport_key, competition, home_team, away_team, commence_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE SET
			sport_key = EXCLUDED.sport_key,
			competition = EXCLUDED.competition,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			commence_time = EXCLUDED.commence_time,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id::text
	`

	var id string
	err := r.pool.QueryRow(ctx, query,
		ev.ExternalID, string(ev.SourceAPI), ev.SportKey, ev.Competition,
		ev.HomeTeam, ev.AwayTeam, ev.CommenceTime, string(ev.Status),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert event %s: %w", ev.ExternalID, err)
	}
	return id, nil
}

// ListUpcoming returns scheduled events starting after now, soonest first.
func (r *EventRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = 'scheduled' AND commence_time > $1
		ORDER BY commence_time ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return out, nil
}

// GetByID returns one event.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, utils.NewNotFoundError("event", id)
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return e, nil
}
