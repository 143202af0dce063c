package database

import (
	"context"
	"fmt"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

const bookmakerColumns = `id::text, key, name, type, commission, reliability, max_stake, supports_both_sides, is_active, created_at, updated_at`

// BookmakerRepository handles database operations for bookmakers and the
// reference tables seeded with them.
type BookmakerRepository struct {
	pool DatabasePool
}

// NewBookmakerRepository creates a new bookmaker repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*BookmakerRepository: The initialized repository.
func NewBookmakerRepository(pool DatabasePool) *BookmakerRepository {
	return &BookmakerRepository{pool: pool}
}

func scanBookmaker(row rowScanner) (*models.Bookmaker, error) {
	var b models.Bookmaker
	err := row.Scan(
		&b.ID,
		&b.Key,
		&b.Name,
		&b.Type,
		&b.Commission,
		&b.Reliability,
		&b.MaxStake,
		&b.SupportsBothSides,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Upsert inserts a bookmaker or updates its name, type and commission. Admin
// managed fields (reliability, max stake, active flag) are only set on insert.
//
// Returns:
//
//	string: The bookmaker id.
//	error: Error if operation fails.
func (r *BookmakerRepository) Upsert(ctx context.Context, b models.Bookmaker) (string, error) {
	query := `
		INSERT INTO bookmakers (key, name, type, commission, reliability, max_stake, supports_both_sides, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			commission = EXCLUDED.commission,
			supports_both_sides = EXCLUDED.supports_both_sides,
			updated_at = NOW()
		RETURNING id::text
	`

	var id string
	err := r.pool.QueryRow(ctx, query,
		b.Key, b.Name, string(b.Type), b.Commission, b.Reliability, b.MaxStake, b.SupportsBothSides, b.IsActive,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert bookmaker %s: %w", b.Key, err)
	}
	return id, nil
}

// GetByKey returns the bookmaker with the given key.
func (r *BookmakerRepository) GetByKey(ctx context.Context, key string) (*models.Bookmaker, error) {
	query := `SELECT ` + bookmakerColumns + ` FROM bookmakers WHERE key = $1`

	b, err := scanBookmaker(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if isNoRows(err) {
			return nil, utils.NewNotFoundError("bookmaker", key)
		}
		return nil, fmt.Errorf("failed to get bookmaker %s: %w", key, err)
	}
	return b, nil
}

// List returns every bookmaker ordered by key.
func (r *BookmakerRepository) List(ctx context.Context) ([]models.Bookmaker, error) {
	query := `SELECT ` + bookmakerColumns + ` FROM bookmakers ORDER BY key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmakers: %w", err)
	}
	defer rows.Close()

	var out []models.Bookmaker
	for rows.Next() {
		b, err := scanBookmaker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmaker: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmakers: %w", err)
	}
	return out, nil
}

// SeedDefaults inserts the default bookmakers, sports and market types in a
// single transaction. Existing rows are left untouched.
func (r *BookmakerRepository) SeedDefaults(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer rollback(ctx, tx)

	for _, b := range models.DefaultBookmakers() {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookmakers (key, name, type, commission, reliability, max_stake, supports_both_sides, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (key) DO NOTHING
		`, b.Key, b.Name, string(b.Type), b.Commission, b.Reliability, b.MaxStake, b.SupportsBothSides, b.IsActive)
		if err != nil {
			return fmt.Errorf("failed to seed bookmaker %s: %w", b.Key, err)
		}
	}

	for _, s := range models.DefaultSports() {
		_, err := tx.Exec(ctx, `
			INSERT INTO sports (key, name, category, active)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO NOTHING
		`, s.Key, s.Name, s.Category, s.Active)
		if err != nil {
			return fmt.Errorf("failed to seed sport %s: %w", s.Key, err)
		}
	}

	for _, m := range models.DefaultMarketTypes() {
		_, err := tx.Exec(ctx, `
			INSERT INTO market_types (key, name, is_three_way)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO NOTHING
		`, m.Key, m.Name, m.IsThreeWay)
		if err != nil {
			return fmt.Errorf("failed to seed market type %s: %w", m.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return nil
}
