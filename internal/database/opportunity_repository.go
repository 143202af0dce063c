package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

const (
	defaultOpportunityLimit = 50
	topEntriesLimit         = 5
)

const opportunitySelect = `
	SELECT o.id::text, o.event_id::text, o.market_type, o.is_three_way,
		o.bookmaker_home_id::text, o.bookmaker_away_id::text, COALESCE(o.bookmaker_draw_id::text, ''),
		bh.key, ba.key, COALESCE(bd.key, ''),
		o.odds_home, o.odds_away, COALESCE(o.odds_draw, 0),
		o.total_implied_prob, o.arbitrage_margin, o.profit_percentage, o.total_stake,
		o.recommended_stake_home, o.recommended_stake_away, COALESCE(o.recommended_stake_draw, 0),
		o.expected_profit, o.commission_adjustment, o.slippage_estimate, o.adjusted_profit,
		o.quality_score, o.quality_grade, o.latency_risk, o.latency_ms, o.liquidity_score, o.max_stake,
		o.status, o.detected_at, o.expires_at, o.updated_at,
		e.home_team, e.away_team, e.sport_key, e.competition, e.commence_time
	FROM arbitrage_opportunities o
	JOIN events e ON e.id = o.event_id
	JOIN bookmakers bh ON bh.id = o.bookmaker_home_id
	JOIN bookmakers ba ON ba.id = o.bookmaker_away_id
	LEFT JOIN bookmakers bd ON bd.id = o.bookmaker_draw_id`

// OpportunityRepository handles database operations for arbitrage
// opportunities.
type OpportunityRepository struct {
	pool DatabasePool
}

// NewOpportunityRepository creates a new opportunity repository.
func NewOpportunityRepository(pool DatabasePool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

func scanOpportunity(row rowScanner) (*models.Opportunity, error) {
	var o models.Opportunity
	var ev models.EventSummary
	err := row.Scan(
		&o.ID, &o.EventID, &o.MarketType, &o.IsThreeWay,
		&o.BookmakerHomeID, &o.BookmakerAwayID, &o.BookmakerDrawID,
		&o.BookmakerHome, &o.BookmakerAway, &o.BookmakerDraw,
		&o.OddsHome, &o.OddsAway, &o.OddsDraw,
		&o.TotalImpliedProb, &o.ArbitrageMargin, &o.ProfitPercentage, &o.TotalStake,
		&o.StakeHome, &o.StakeAway, &o.StakeDraw,
		&o.ExpectedProfit, &o.CommissionAdjustment, &o.SlippageEstimate, &o.AdjustedProfit,
		&o.QualityScore, &o.QualityGrade, &o.LatencyRisk, &o.LatencyMs, &o.LiquidityScore, &o.MaxStake,
		&o.Status, &o.DetectedAt, &o.ExpiresAt, &o.UpdatedAt,
		&ev.HomeTeam, &ev.AwayTeam, &ev.SportKey, &ev.Competition, &ev.CommenceTime,
	)
	if err != nil {
		return nil, err
	}
	o.Event = &ev
	return &o, nil
}

// Create stores a new opportunity. The caller assigns the id.
func (r *OpportunityRepository) Create(ctx context.Context, o *models.Opportunity) error {
	query := `
		INSERT INTO arbitrage_opportunities (
			id, event_id, market_type, is_three_way,
			bookmaker_home_id, bookmaker_away_id, bookmaker_draw_id,
			odds_home, odds_away, odds_draw,
			total_implied_prob, arbitrage_margin, profit_percentage, total_stake,
			recommended_stake_home, recommended_stake_away, recommended_stake_draw,
			expected_profit, commission_adjustment, slippage_estimate, adjusted_profit,
			quality_score, quality_grade, latency_risk, latency_ms, liquidity_score, max_stake,
			status, detected_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30
		)
	`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.EventID, o.MarketType, o.IsThreeWay,
		o.BookmakerHomeID, o.BookmakerAwayID, nullIfEmpty(o.BookmakerDrawID),
		o.OddsHome, o.OddsAway, nullIfZero(o.OddsDraw),
		o.TotalImpliedProb, o.ArbitrageMargin, o.ProfitPercentage, o.TotalStake,
		o.StakeHome, o.StakeAway, nullIfZero(o.StakeDraw),
		o.ExpectedProfit, o.CommissionAdjustment, o.SlippageEstimate, o.AdjustedProfit,
		o.QualityScore, string(o.QualityGrade), string(o.LatencyRisk), o.LatencyMs, o.LiquidityScore, o.MaxStake,
		string(o.Status), o.DetectedAt, o.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}
	return nil
}

// ListActive returns active opportunities, newest first. An empty sport key
// or grade disables that filter; grades compare alphabetically so "B" keeps
// A and B.
func (r *OpportunityRepository) ListActive(ctx context.Context, filter models.OpportunityFilter) ([]models.Opportunity, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOpportunityLimit
	}

	query := opportunitySelect + `
		WHERE o.status = 'active'
			AND ($1 = '' OR e.sport_key = $1)
			AND ($2 = '' OR o.quality_grade <= $2)
		ORDER BY o.detected_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, filter.SportKey, string(filter.MinGrade), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active opportunities: %w", err)
	}
	defer rows.Close()

	out := make([]models.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunities: %w", err)
	}
	return out, nil
}

// GetByID returns one opportunity with its event summary.
func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	o, err := scanOpportunity(r.pool.QueryRow(ctx, opportunitySelect+` WHERE o.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, utils.NewNotFoundError("opportunity", id)
		}
		return nil, fmt.Errorf("failed to get opportunity %s: %w", id, err)
	}
	return o, nil
}

// UpdateStatus moves an opportunity to next. The current status is locked
// for the duration of the check so concurrent updates cannot both succeed.
// A disallowed transition returns a ConflictError.
func (r *OpportunityRepository) UpdateStatus(ctx context.Context, id string, next models.OpportunityStatus) error {
	if !next.Valid() {
		return utils.NewValidationErrorf("unknown status %q", next)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin status transaction: %w", err)
	}
	defer rollback(ctx, tx)

	var current models.OpportunityStatus
	err = tx.QueryRow(ctx, `SELECT status FROM arbitrage_opportunities WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if isNoRows(err) {
			return utils.NewNotFoundError("opportunity", id)
		}
		return fmt.Errorf("failed to lock opportunity %s: %w", id, err)
	}
	if !current.CanTransitionTo(next) {
		return utils.NewConflictErrorf("cannot move opportunity from %s to %s", current, next)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE arbitrage_opportunities SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(next),
	); err != nil {
		return fmt.Errorf("failed to update opportunity %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}
	return nil
}

// ExpireDue marks active opportunities whose expiry has passed as expired.
func (r *OpportunityRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE arbitrage_opportunities
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountSince returns the number of opportunities detected since the given
// time.
func (r *OpportunityRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM arbitrage_opportunities WHERE detected_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return n, nil
}

// Stats builds the dashboard summary for the 24 hours before now. The
// system health field is left for the caller.
func (r *OpportunityRepository) Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	since := now.Add(-24 * time.Hour)
	stats := &models.DashboardStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM arbitrage_opportunities WHERE status = 'active'),
			(SELECT COUNT(*) FROM arbitrage_opportunities WHERE detected_at >= $1),
			(SELECT COALESCE(AVG(profit_percentage), 0)::float8 FROM arbitrage_opportunities WHERE detected_at >= $1),
			(SELECT COALESCE(AVG(latency_ms), 0)::float8 FROM arbitrage_opportunities WHERE detected_at >= $1),
			(SELECT COUNT(*) FROM alerts WHERE created_at >= $1)
	`, since).Scan(
		&stats.ActiveOpportunities,
		&stats.OpportunitiesLast24h,
		&stats.AvgProfitPercentage,
		&stats.AvgLatencyMs,
		&stats.RecentAlerts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}

	stats.TopSports, err = r.topEntries(ctx, `
		SELECT e.sport_key, COUNT(*)
		FROM arbitrage_opportunities o
		JOIN events e ON e.id = o.event_id
		WHERE o.detected_at >= $1
		GROUP BY e.sport_key
		ORDER BY COUNT(*) DESC, e.sport_key
		LIMIT $2
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load top sports: %w", err)
	}

	stats.TopBookmakers, err = r.topEntries(ctx, `
		SELECT b.key, COUNT(*)
		FROM arbitrage_opportunities o
		JOIN bookmakers b ON b.id IN (o.bookmaker_home_id, o.bookmaker_away_id, o.bookmaker_draw_id)
		WHERE o.detected_at >= $1
		GROUP BY b.key
		ORDER BY COUNT(*) DESC, b.key
		LIMIT $2
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load top bookmakers: %w", err)
	}
	return stats, nil
}

func (r *OpportunityRepository) topEntries(ctx context.Context, query string, since time.Time) ([]models.CountEntry, error) {
	rows, err := r.pool.Query(ctx, query, since, topEntriesLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.CountEntry, 0, topEntriesLimit)
	for rows.Next() {
		var e models.CountEntry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes closed opportunities detected before cutoff.
// Active ones are kept regardless of age.
func (r *OpportunityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM arbitrage_opportunities WHERE status <> 'active' AND detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}
