package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/irfndi/oddsradar-go/internal/cache"
	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/telemetry"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

// Reasons an opportunity is not alerted, as reported to metrics and logs.
const (
	SuppressMinMargin     = "min_margin"
	SuppressLatencyRisk   = "latency_risk"
	SuppressLiquidity     = "min_liquidity"
	SuppressSport         = "sport_filter"
	SuppressMarket        = "market_filter"
	SuppressBookmaker     = "bookmaker_filter"
	SuppressQuietHours    = "quiet_hours"
	SuppressDailyExposure = "daily_exposure"
	SuppressNoChannels    = "no_channels"
	SuppressDuplicate     = "duplicate"
	SuppressRateLimited   = "rate_limited"
	SuppressDeliveryError = "delivery_failed"
)

// AlertDispatcher applies the user's alert filters to new opportunities and
// delivers the survivors on every enabled channel.
type AlertDispatcher struct {
	settings      SettingsStore
	alerts        AlertStore
	opportunities OpportunityStore
	dedup         AlertDeduplicator
	limiter       AlertLimiter
	notifiers     map[models.AlertChannel]Notifier
	metrics       *metrics.Metrics
	logger        *logrus.Logger
	now           func() time.Time

	// exposureMu is held from the daily exposure check until the resulting
	// alerts are marked, so concurrent dispatches see each other's stakes.
	exposureMu sync.Mutex
}

// NewAlertDispatcher creates a dispatcher. dedup, limiter and m may be nil.
func NewAlertDispatcher(
	settings SettingsStore,
	alerts AlertStore,
	opportunities OpportunityStore,
	dedup AlertDeduplicator,
	limiter AlertLimiter,
	notifiers []Notifier,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *AlertDispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	byChannel := make(map[models.AlertChannel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			byChannel[n.Channel()] = n
		}
	}
	return &AlertDispatcher{
		settings:      settings,
		alerts:        alerts,
		opportunities: opportunities,
		dedup:         dedup,
		limiter:       limiter,
		notifiers:     byChannel,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// Channels returns the channels with a configured notifier.
func (d *AlertDispatcher) Channels() []models.AlertChannel {
	out := make([]models.AlertChannel, 0, len(d.notifiers))
	for ch := range d.notifiers {
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

// Dispatch alerts on o unless a filter suppresses it. Suppression is not an
// error. Dispatch is safe for concurrent use; when a daily exposure cap is set,
// dispatches are serialized so the cap holds across goroutines.
func (d *AlertDispatcher) Dispatch(ctx context.Context, o *models.Opportunity) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetAlertTracer(), "alerts.dispatch",
		attribute.String("opportunity.id", o.ID),
	)
	defer span.End()

	settings, err := d.settings.Get(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to load alert settings: %w", err)
	}

	if settings.MaxDailyExposure > 0 {
		d.exposureMu.Lock()
		defer d.exposureMu.Unlock()
	}

	now := d.now()
	reason, plan, err := d.evaluate(ctx, settings, o, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if reason != "" {
		d.suppress(o, reason)
		span.SetAttributes(attribute.String("alerts.suppressed", reason))
		return nil
	}

	channels := d.enabledChannels(settings)
	if len(channels) == 0 {
		d.suppress(o, SuppressNoChannels)
		return nil
	}

	key := cache.DedupKey(o.EventID, o.MarketType, o.BookmakerKeys())
	if d.dedup != nil {
		claimed, err := d.dedup.Claim(ctx, key)
		switch {
		case err != nil:
			d.logger.WithError(err).Warn("Alert dedup unavailable, sending anyway")
		case !claimed:
			d.suppress(o, SuppressDuplicate)
			return nil
		}
	}

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx)
		if err != nil {
			d.logger.WithError(err).Warn("Alert rate limiter unavailable, sending anyway")
		} else if !allowed {
			d.release(ctx, key)
			d.suppress(o, SuppressRateLimited)
			return nil
		}
	}

	msg := FormatAlertMessage(o, plan, now)
	sent := 0
	for _, ch := range channels {
		alert, err := d.deliver(ctx, ch, settings.Recipient(ch), o, msg)
		if err != nil {
			d.logger.WithError(err).WithField("channel", ch).Warn("Failed to record alert")
		}
		if alert != nil && alert.Status == models.AlertSent {
			sent++
		}
	}

	if sent == 0 {
		d.release(ctx, key)
		d.suppress(o, SuppressDeliveryError)
		return nil
	}
	span.SetAttributes(attribute.Int("alerts.sent", sent))
	return nil
}

// evaluate runs the filters in order and returns the first suppression
// reason, or "" together with the capped stake plan.
func (d *AlertDispatcher) evaluate(ctx context.Context, s *models.UserSettings, o *models.Opportunity, now time.Time) (string, StakePlan, error) {
	if o.ArbitrageMargin < s.MinMargin {
		return SuppressMinMargin, StakePlan{}, nil
	}
	if s.MaxLatencyRisk.Valid() && o.LatencyRisk.Rank() > s.MaxLatencyRisk.Rank() {
		return SuppressLatencyRisk, StakePlan{}, nil
	}
	if o.LiquidityScore < s.MinLiquidity {
		return SuppressLiquidity, StakePlan{}, nil
	}
	if len(s.SportsFilter) > 0 && !slices.Contains(s.SportsFilter, o.SportKey()) {
		return SuppressSport, StakePlan{}, nil
	}
	if len(s.MarketsFilter) > 0 && !slices.Contains(s.MarketsFilter, o.MarketType) {
		return SuppressMarket, StakePlan{}, nil
	}
	if len(s.BookmakersFilter) > 0 {
		for _, key := range o.BookmakerKeys() {
			if !slices.Contains(s.BookmakersFilter, key) {
				return SuppressBookmaker, StakePlan{}, nil
			}
		}
	}

	quiet, err := s.InQuietHours(now)
	if err != nil {
		d.logger.WithError(err).Warn("Ignoring invalid quiet hours")
	} else if quiet {
		return SuppressQuietHours, StakePlan{}, nil
	}

	plan := BuildStakePlan(o, s.MaxStakePerBet)

	if s.MaxDailyExposure > 0 {
		exposed, err := d.alerts.SentStakeSince(ctx, startOfDay(now, s.Timezone))
		if err != nil {
			return "", StakePlan{}, fmt.Errorf("failed to load daily exposure: %w", err)
		}
		total, _ := plan.TotalStake.Float64()
		if exposed+total > s.MaxDailyExposure {
			return SuppressDailyExposure, StakePlan{}, nil
		}
	}
	return "", plan, nil
}

// SendManual delivers an alert for a stored opportunity on one channel,
// bypassing the filters. An empty recipient falls back to the configured one.
func (d *AlertDispatcher) SendManual(ctx context.Context, opportunityID string, channel models.AlertChannel, recipient string) (*models.Alert, error) {
	if !channel.Valid() {
		return nil, utils.NewValidationErrorf("unknown alert channel %q", channel)
	}
	if _, ok := d.notifiers[channel]; !ok {
		return nil, utils.NewValidationErrorf("alert channel %q is not configured", channel)
	}

	o, err := d.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}

	settings, err := d.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert settings: %w", err)
	}
	if recipient == "" {
		recipient = settings.Recipient(channel)
	}
	if recipient == "" && channel != models.ChannelTelegram {
		return nil, utils.NewValidationErrorf("no recipient configured for %s", channel)
	}

	now := d.now()
	msg := FormatAlertMessage(o, BuildStakePlan(o, settings.MaxStakePerBet), now)
	return d.deliver(ctx, channel, recipient, o, msg)
}

// deliver records a pending alert, sends it and stores the outcome. The
// returned alert reflects the delivery result; the error is reserved for
// bookkeeping failures.
func (d *AlertDispatcher) deliver(ctx context.Context, ch models.AlertChannel, recipient string, o *models.Opportunity, msg AlertMessage) (*models.Alert, error) {
	total, _ := msg.Plan.TotalStake.Float64()
	alert := &models.Alert{
		ID:            uuid.NewString(),
		OpportunityID: o.ID,
		Channel:       ch,
		Recipient:     recipient,
		Title:         msg.Title,
		Message:       msg.Text,
		Status:        models.AlertPending,
		TotalStake:    total,
		CreatedAt:     msg.CreatedAt,
	}
	if err := d.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}

	sendErr := d.notifiers[ch].Send(ctx, recipient, msg)
	d.metrics.RecordAlert(string(ch), sendErr == nil)

	entry := d.logger.WithFields(logrus.Fields{
		"alert_id":       alert.ID,
		"opportunity_id": o.ID,
		"channel":        ch,
	})
	if sendErr != nil {
		alert.Status = models.AlertFailed
		alert.ErrorMessage = sendErr.Error()
		entry.WithError(sendErr).Warn("Alert delivery failed")
	} else {
		sentAt := d.now()
		alert.Status = models.AlertSent
		alert.SentAt = &sentAt
		entry.Info("Alert sent")
	}

	if err := d.alerts.MarkResult(ctx, alert.ID, alert.Status, alert.ErrorMessage, alert.SentAt); err != nil {
		return alert, err
	}
	return alert, nil
}

func (d *AlertDispatcher) enabledChannels(s *models.UserSettings) []models.AlertChannel {
	var out []models.AlertChannel
	for _, ch := range s.EnabledChannels() {
		if _, ok := d.notifiers[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

func (d *AlertDispatcher) release(ctx context.Context, key string) {
	if d.dedup == nil {
		return
	}
	if err := d.dedup.Release(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.WithError(err).Warn("Failed to release alert dedup claim")
	}
}

func (d *AlertDispatcher) suppress(o *models.Opportunity, reason string) {
	d.metrics.RecordAlertSuppressed(reason)
	d.logger.WithFields(logrus.Fields{
		"opportunity_id": o.ID,
		"reason":         reason,
	}).Debug("Alert suppressed")
}

// startOfDay returns local midnight of now in the named zone, or UTC midnight
// when the zone is unknown.
func startOfDay(now time.Time, zone string) time.Time {
	loc := time.UTC
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
