package models

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

const quietHoursLayout = "15:04"

// UserSettings holds alert filters, exposure limits and channel configuration.
// A single row exists per installation.
type UserSettings struct {
	ID               int                   `json:"id" db:"id"`
	MinMargin        float64               `json:"min_margin" db:"min_margin"`
	MaxLatencyRisk   arbitrage.LatencyRisk `json:"max_latency_risk" db:"max_latency_risk"`
	MinLiquidity     float64               `json:"min_liquidity" db:"min_liquidity"`
	SportsFilter     []string              `json:"sports_filter" db:"sports_filter"`
	MarketsFilter    []string              `json:"markets_filter" db:"markets_filter"`
	BookmakersFilter []string              `json:"bookmakers_filter" db:"bookmakers_filter"`
	MaxStakePerBet   float64               `json:"max_stake_per_bet" db:"max_stake_per_bet"`
	MaxDailyExposure float64               `json:"max_daily_exposure" db:"max_daily_exposure"`
	TelegramEnabled  bool                  `json:"telegram_enabled" db:"telegram_enabled"`
	TelegramChatID   string                `json:"telegram_chat_id" db:"telegram_chat_id"`
	EmailEnabled     bool                  `json:"email_enabled" db:"email_enabled"`
	EmailAddress     string                `json:"email_address" db:"email_address"`
	WebhookEnabled   bool                  `json:"webhook_enabled" db:"webhook_enabled"`
	WebhookURL       string                `json:"webhook_url" db:"webhook_url"`
	QuietHoursStart  string                `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd    string                `json:"quiet_hours_end" db:"quiet_hours_end"`
	Timezone         string                `json:"timezone" db:"timezone"`
	UpdatedAt        time.Time             `json:"updated_at" db:"updated_at"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() UserSettings {
	return UserSettings{
		ID:               1,
		MinMargin:        0.02,
		MaxLatencyRisk:   arbitrage.LatencyMedium,
		MinLiquidity:     30,
		SportsFilter:     []string{},
		MarketsFilter:    []string{},
		BookmakersFilter: []string{},
		MaxStakePerBet:   100,
		MaxDailyExposure: 1000,
		Timezone:         "Europe/Madrid",
	}
}

// EnabledChannels returns the channels that are switched on and have a
// destination.
func (s UserSettings) EnabledChannels() []AlertChannel {
	var channels []AlertChannel
	if s.TelegramEnabled && s.TelegramChatID != "" {
		channels = append(channels, ChannelTelegram)
	}
	if s.EmailEnabled && s.EmailAddress != "" {
		channels = append(channels, ChannelEmail)
	}
	if s.WebhookEnabled && s.WebhookURL != "" {
		channels = append(channels, ChannelWebhook)
	}
	return channels
}

// Recipient returns the configured destination for channel.
func (s UserSettings) Recipient(channel AlertChannel) string {
	switch channel {
	case ChannelTelegram:
		return s.TelegramChatID
	case ChannelEmail:
		return s.EmailAddress
	case ChannelWebhook:
		return s.WebhookURL
	}
	return ""
}

// InQuietHours reports whether now falls inside the quiet window, evaluated in
// the settings timezone. The window may wrap midnight ("23:00" to "07:00").
// An unset window is never quiet.
func (s UserSettings) InQuietHours(now time.Time) (bool, error) {
	if s.QuietHoursStart == "" || s.QuietHoursEnd == "" {
		return false, nil
	}
	start, err := time.Parse(quietHoursLayout, s.QuietHoursStart)
	if err != nil {
		return false, fmt.Errorf("parse quiet_hours_start: %w", err)
	}
	end, err := time.Parse(quietHoursLayout, s.QuietHoursEnd)
	if err != nil {
		return false, fmt.Errorf("parse quiet_hours_end: %w", err)
	}

	loc := time.UTC
	if s.Timezone != "" {
		if loc, err = time.LoadLocation(s.Timezone); err != nil {
			return false, fmt.Errorf("load timezone: %w", err)
		}
	}
	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	if startMin == endMin {
		return false, nil
	}
	if startMin < endMin {
		return minute >= startMin && minute < endMin, nil
	}
	return minute >= startMin || minute < endMin, nil
}

// Apply copies every provided field of in onto s.
func (s *UserSettings) Apply(in SettingsInput) {
	if in.MinMargin != nil {
		s.MinMargin = *in.MinMargin
	}
	if in.MaxLatencyRisk != nil {
		s.MaxLatencyRisk = *in.MaxLatencyRisk
	}
	if in.MinLiquidity != nil {
		s.MinLiquidity = *in.MinLiquidity
	}
	if in.SportsFilter != nil {
		s.SportsFilter = *in.SportsFilter
	}
	if in.MarketsFilter != nil {
		s.MarketsFilter = *in.MarketsFilter
	}
	if in.BookmakersFilter != nil {
		s.BookmakersFilter = *in.BookmakersFilter
	}
	if in.MaxStakePerBet != nil {
		s.MaxStakePerBet = *in.MaxStakePerBet
	}
	if in.MaxDailyExposure != nil {
		s.MaxDailyExposure = *in.MaxDailyExposure
	}
	if in.TelegramEnabled != nil {
		s.TelegramEnabled = *in.TelegramEnabled
	}
	if in.TelegramChatID != nil {
		s.TelegramChatID = *in.TelegramChatID
	}
	if in.EmailEnabled != nil {
		s.EmailEnabled = *in.EmailEnabled
	}
	if in.EmailAddress != nil {
		s.EmailAddress = *in.EmailAddress
	}
	if in.WebhookEnabled != nil {
		s.WebhookEnabled = *in.WebhookEnabled
	}
	if in.WebhookURL != nil {
		s.WebhookURL = *in.WebhookURL
	}
	if in.QuietHoursStart != nil {
		s.QuietHoursStart = *in.QuietHoursStart
	}
	if in.QuietHoursEnd != nil {
		s.QuietHoursEnd = *in.QuietHoursEnd
	}
	if in.Timezone != nil {
		s.Timezone = *in.Timezone
	}
}

// SettingsInput is a partial settings update. Nil fields are left unchanged.
type SettingsInput struct {
	MinMargin        *float64               `json:"min_margin"`
	MaxLatencyRisk   *arbitrage.LatencyRisk `json:"max_latency_risk"`
	MinLiquidity     *float64               `json:"min_liquidity"`
	SportsFilter     *[]string              `json:"sports_filter"`
	MarketsFilter    *[]string              `json:"markets_filter"`
	BookmakersFilter *[]string              `json:"bookmakers_filter"`
	MaxStakePerBet   *float64               `json:"max_stake_per_bet"`
	MaxDailyExposure *float64               `json:"max_daily_exposure"`
	TelegramEnabled  *bool                  `json:"telegram_enabled"`
	TelegramChatID   *string                `json:"telegram_chat_id"`
	EmailEnabled     *bool                  `json:"email_enabled"`
	EmailAddress     *string                `json:"email_address"`
	WebhookEnabled   *bool                  `json:"webhook_enabled"`
	WebhookURL       *string                `json:"webhook_url"`
	QuietHoursStart  *string                `json:"quiet_hours_start"`
	QuietHoursEnd    *string                `json:"quiet_hours_end"`
	Timezone         *string                `json:"timezone"`
}

// IsEmpty reports whether no field is set.
func (in SettingsInput) IsEmpty() bool {
	return in == SettingsInput{}
}

// Validate checks every provided field and returns a ValidationError for the
// first invalid one.
func (in SettingsInput) Validate() error {
	if in.MinMargin != nil && (*in.MinMargin < 0 || *in.MinMargin >= 1) {
		return utils.NewValidationErrorf("min_margin must be in [0, 1), got %v", *in.MinMargin)
	}
	if in.MaxLatencyRisk != nil && !in.MaxLatencyRisk.Valid() {
		return utils.NewValidationErrorf("max_latency_risk must be low, medium or high, got %q", *in.MaxLatencyRisk)
	}
	if in.MinLiquidity != nil && (*in.MinLiquidity < 0 || *in.MinLiquidity > 100) {
		return utils.NewValidationErrorf("min_liquidity must be in [0, 100], got %v", *in.MinLiquidity)
	}
	if in.MaxStakePerBet != nil && *in.MaxStakePerBet <= 0 {
		return utils.NewValidationError("max_stake_per_bet must be positive")
	}
	if in.MaxDailyExposure != nil && *in.MaxDailyExposure <= 0 {
		return utils.NewValidationError("max_daily_exposure must be positive")
	}
	if in.EmailAddress != nil && *in.EmailAddress != "" {
		if _, err := mail.ParseAddress(*in.EmailAddress); err != nil {
			return utils.NewValidationErrorf("email_address is invalid: %v", err)
		}
	}
	if in.WebhookURL != nil && *in.WebhookURL != "" {
		u, err := url.Parse(*in.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return utils.NewValidationError("webhook_url must be an absolute http(s) URL")
		}
	}
	for name, v := range map[string]*string{"quiet_hours_start": in.QuietHoursStart, "quiet_hours_end": in.QuietHoursEnd} {
		if v != nil && *v != "" {
			if _, err := time.Parse(quietHoursLayout, *v); err != nil {
				return utils.NewValidationErrorf("%s must be HH:MM, got %q", name, *v)
			}
		}
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil || *in.Timezone == "" {
			return utils.NewValidationErrorf("timezone %q is not a known location", *in.Timezone)
		}
	}
	return nil
}
