package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/irfndi/oddsradar-go/internal/models"
)

const settingsRowID = 1

const settingsColumns = `id, min_margin, max_latency_risk, min_liquidity, sports_filter, markets_filter, bookmakers_filter,
	max_stake_per_bet, max_daily_exposure, telegram_enabled, telegram_chat_id, email_enabled, email_address,
	webhook_enabled, webhook_url, quiet_hours_start, quiet_hours_end, timezone, updated_at`

// SettingsRepository handles the single user settings row.
type SettingsRepository struct {
	pool DatabasePool
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(pool DatabasePool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func scanSettings(row rowScanner) (*models.UserSettings, error) {
	var s models.UserSettings
	err := row.Scan(
		&s.ID,
		&s.MinMargin,
		&s.MaxLatencyRisk,
		&s.MinLiquidity,
		&s.SportsFilter,
		&s.MarketsFilter,
		&s.BookmakersFilter,
		&s.MaxStakePerBet,
		&s.MaxDailyExposure,
		&s.TelegramEnabled,
		&s.TelegramChatID,
		&s.EmailEnabled,
		&s.EmailAddress,
		&s.WebhookEnabled,
		&s.WebhookURL,
		&s.QuietHoursStart,
		&s.QuietHoursEnd,
		&s.Timezone,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ensureRow creates the settings row with column defaults if it is missing.
func (r *SettingsRepository) ensureRow(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_settings (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, settingsRowID)
	return err
}

// Get returns the settings, creating the default row on first use.
func (r *SettingsRepository) Get(ctx context.Context) (*models.UserSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM user_settings WHERE id = $1`

	s, err := scanSettings(r.pool.QueryRow(ctx, query, settingsRowID))
	if err == nil {
		return s, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if err := r.ensureRow(ctx); err != nil {
		return nil, fmt.Errorf("failed to create default settings: %w", err)
	}
	s, err = scanSettings(r.pool.QueryRow(ctx, query, settingsRowID))
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

// Update applies the provided fields of in. Only columns with a non-nil
// input are written and every value is passed as a parameter. An empty input
// returns the current settings unchanged.
func (r *SettingsRepository) Update(ctx context.Context, in models.SettingsInput) (*models.UserSettings, error) {
	if in.IsEmpty() {
		return r.Get(ctx)
	}
	if err := r.ensureRow(ctx); err != nil {
		return nil, fmt.Errorf("failed to create default settings: %w", err)
	}

	sets, args := settingsAssignments(in)
	args = append(args, settingsRowID)
	query := fmt.Sprintf(
		`UPDATE user_settings SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), settingsColumns,
	)

	s, err := scanSettings(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return s, nil
}

// settingsAssignments returns "column = $n" fragments and their arguments
// for every field set in in, in a fixed column order.
func settingsAssignments(in models.SettingsInput) ([]string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.MinMargin != nil {
		add("min_margin", *in.MinMargin)
	}
	if in.MaxLatencyRisk != nil {
		add("max_latency_risk", string(*in.MaxLatencyRisk))
	}
	if in.MinLiquidity != nil {
		add("min_liquidity", *in.MinLiquidity)
	}
	if in.SportsFilter != nil {
		add("sports_filter", nonNil(*in.SportsFilter))
	}
	if in.MarketsFilter != nil {
		add("markets_filter", nonNil(*in.MarketsFilter))
	}
	if in.BookmakersFilter != nil {
		add("bookmakers_filter", nonNil(*in.BookmakersFilter))
	}
	if in.MaxStakePerBet != nil {
		add("max_stake_per_bet", *in.MaxStakePerBet)
	}
	if in.MaxDailyExposure != nil {
		add("max_daily_exposure", *in.MaxDailyExposure)
	}
	if in.TelegramEnabled != nil {
		add("telegram_enabled", *in.TelegramEnabled)
	}
	if in.TelegramChatID != nil {
		add("telegram_chat_id", *in.TelegramChatID)
	}
	if in.EmailEnabled != nil {
		add("email_enabled", *in.EmailEnabled)
	}
	if in.EmailAddress != nil {
		add("email_address", *in.EmailAddress)
	}
	if in.WebhookEnabled != nil {
		add("webhook_enabled", *in.WebhookEnabled)
	}
	if in.WebhookURL != nil {
		add("webhook_url", *in.WebhookURL)
	}
	if in.QuietHoursStart != nil {
		add("quiet_hours_start", *in.QuietHoursStart)
	}
	if in.QuietHoursEnd != nil {
		add("quiet_hours_end", *in.QuietHoursEnd)
	}
	if in.Timezone != nil {
		add("timezone", *in.Timezone)
	}
	return sets, args
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
