package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/normalizer"
	"github.com/irfndi/oddsradar-go/internal/telemetry"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

// ErrSyncRunning is returned by Start when the sync loop is already running.
var ErrSyncRunning = errors.New("sync service is already running")

// defaultBookmakerLimit stands in for a leg whose bookmaker has no recorded
// maximum stake.
const defaultBookmakerLimit = 1000.0

// SyncConfig configures the sync loop and opportunity detection.
type SyncConfig struct {
	Interval              time.Duration
	SnapshotWindow        time.Duration
	MaxWorkers            int
	DefaultLiquidityScore float64
	DefaultReliability    float64
	Volatility            arbitrage.Volatility
}

// SyncDependencies are the collaborators of a SyncService. Sources is keyed
// by sync source name (models.SyncSourceOddsAPI, models.SyncSourcePolymarket).
// Cache, Publisher, Alerter, Volatility and Metrics may be nil.
type SyncDependencies struct {
	Sources       map[string]connectors.Source
	Engine        *arbitrage.Engine
	Bookmakers    BookmakerStore
	Events        EventStore
	Odds          OddsStore
	Opportunities OpportunityStore
	SyncState     SyncStateStore
	Cache         CacheInvalidator
	Publisher     OpportunityPublisher
	Alerter       OpportunityAlerter
	Volatility    VolatilityEstimator
	Metrics       *metrics.Metrics
}

// SyncService polls the odds providers, stores their quotes and runs
// arbitrage detection over the recent snapshots.
type SyncService struct {
	deps   SyncDependencies
	config SyncConfig
	logger *logrus.Logger
	now    func() time.Time

	// cycleMu serializes sync cycles between the loop and manual triggers.
	cycleMu sync.Mutex

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastReport *models.SyncReport
}

// NewSyncService creates a sync service. Zero-valued config fields take the
// defaults: 5m interval and snapshot window, 4 workers, liquidity 50,
// reliability 75 and medium volatility.
func NewSyncService(deps SyncDependencies, cfg SyncConfig, logger *logrus.Logger) *SyncService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.SnapshotWindow <= 0 {
		cfg.SnapshotWindow = 5 * time.Minute
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.DefaultLiquidityScore <= 0 {
		cfg.DefaultLiquidityScore = 50
	}
	if cfg.DefaultReliability <= 0 {
		cfg.DefaultReliability = 75
	}
	if cfg.Volatility == "" {
		cfg.Volatility = arbitrage.VolatilityMedium
	}
	if deps.Engine == nil {
		deps.Engine = arbitrage.NewEngine(arbitrage.DefaultConfig())
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &SyncService{
		deps:   deps,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start runs a sync cycle immediately and then once per interval until Stop.
func (s *SyncService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSyncRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.WithFields(logrus.Fields{
		"interval": s.config.Interval.String(),
		"sources":  s.sourceNames(),
	}).Info("Sync service started")
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to return.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Sync service stopped")
}

// IsRunning reports whether the periodic loop is active.
func (s *SyncService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastReport returns the report of the most recent cycle, or nil.
func (s *SyncService) LastReport() *models.SyncReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

func (s *SyncService) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runScheduled(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *SyncService) runScheduled(ctx context.Context) {
	if _, err := s.RunOnce(ctx, models.SyncSourceAll); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("Scheduled sync failed")
	}
}

// RunOnce runs one sync cycle for source ("all", "odds_api" or "polymarket";
// empty means all). Provider failures are reported in the result rather than
// returned; an error means the cycle itself could not run.
func (s *SyncService) RunOnce(ctx context.Context, source string) (*models.SyncReport, error) {
	if source == "" {
		source = models.SyncSourceAll
	}
	sources, err := s.selectSources(source)
	if err != nil {
		return nil, err
	}

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.GetSyncTracer(), "sync.cycle",
		attribute.String("sync.source", source),
	)
	defer span.End()

	start := s.now()
	fetched := s.fetchAll(ctx, sources)

	bookmakerIDs, err := s.loadBookmakers(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &models.SyncReport{Results: make([]models.SyncResult, 0, len(fetched))}
	for _, f := range fetched {
		report.Results = append(report.Results, s.ingest(ctx, f, bookmakerIDs))
	}

	detected, err := s.detect(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.WithError(err).Error("Opportunity detection failed")
	}
	report.OpportunitiesDetected = detected

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate opportunity cache")
		}
	}
	s.refreshActiveGauge(ctx)

	report.Duration = s.now().Sub(start)
	s.deps.Metrics.ObserveSyncDuration(source, report.Duration)
	span.SetAttributes(attribute.Int("sync.opportunities", detected))

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"source":        source,
		"providers":     len(report.Results),
		"opportunities": detected,
		"duration":      report.Duration.String(),
	}).Info("Sync cycle completed")
	return report, nil
}

func (s *SyncService) selectSources(source string) ([]connectors.Source, error) {
	switch source {
	case models.SyncSourceAll:
		names := s.sourceNames()
		out := make([]connectors.Source, 0, len(names))
		for _, name := range names {
			out = append(out, s.deps.Sources[name])
		}
		return out, nil
	case models.SyncSourceOddsAPI, models.SyncSourcePolymarket:
		src, ok := s.deps.Sources[source]
		if !ok || src == nil {
			return nil, utils.NewValidationErrorf("sync source %q is not configured", source)
		}
		return []connectors.Source{src}, nil
	default:
		return nil, utils.NewValidationErrorf("unknown sync source %q", source)
	}
}

func (s *SyncService) sourceNames() []string {
	names := make([]string, 0, len(s.deps.Sources))
	for name, src := range s.deps.Sources {
		if src != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type fetchOutcome struct {
	source   connectors.Source
	result   *connectors.FetchResult
	err      error
	duration time.Duration
}

// fetchAll queries every source concurrently. One provider failing never
// cancels the others.
func (s *SyncService) fetchAll(ctx context.Context, sources []connectors.Source) []fetchOutcome {
	out := make([]fetchOutcome, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			started := time.Now()
			res, err := src.Fetch(ctx)
			out[i] = fetchOutcome{source: src, result: res, err: err, duration: time.Since(started)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *SyncService) loadBookmakers(ctx context.Context) (map[string]string, error) {
	bookmakers, err := s.deps.Bookmakers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmakers: %w", err)
	}
	ids := make(map[string]string, len(bookmakers))
	for _, b := range bookmakers {
		ids[b.Key] = b.ID
	}
	return ids, nil
}

func (s *SyncService) ingest(ctx context.Context, f fetchOutcome, bookmakerIDs map[string]string) models.SyncResult {
	provider := f.source.Name()
	result := models.SyncResult{
		Provider:  provider,
		Duration:  f.duration,
		Timestamp: s.now(),
	}

	switch {
	case f.err != nil:
		result.Errors = []string{f.err.Error()}
	case f.result == nil:
		result.Success = true
	default:
		result.Errors = append(result.Errors, f.result.Errors...)
		events, odds, err := s.persist(ctx, f.result, bookmakerIDs)
		result.EventsProcessed = events
		result.OddsProcessed = odds
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Success = true
		}
	}

	errMsg := strings.Join(result.Errors, "; ")
	if err := s.deps.SyncState.Record(ctx, provider, "", result.Success, errMsg, result.Timestamp); err != nil {
		s.logger.WithError(err).WithField("provider", provider).Warn("Failed to record sync state")
	}
	s.deps.Metrics.RecordSync(provider, result.Success, result.OddsProcessed)

	entry := s.logger.WithFields(logrus.Fields{
		"provider": provider,
		"events":   result.EventsProcessed,
		"odds":     result.OddsProcessed,
		"errors":   len(result.Errors),
	})
	if result.Success {
		entry.Info("Provider sync completed")
	} else {
		entry.WithField("error", errMsg).Warn("Provider sync failed")
	}
	return result
}

// persist upserts the events and bookmakers of a fetch and stores its valid
// quotes. It returns the number of events and snapshots written.
func (s *SyncService) persist(ctx context.Context, res *connectors.FetchResult, bookmakerIDs map[string]string) (int, int, error) {
	eventIDs := make(map[string]string, len(res.Events))
	for _, ev := range res.Events {
		id, err := s.deps.Events.Upsert(ctx, ev)
		if err != nil {
			return len(eventIDs), 0, err
		}
		eventIDs[ev.ExternalID] = id
	}

	snapshots := make([]models.OddsSnapshot, 0, len(res.Odds))
	for _, q := range res.Odds {
		if v := normalizer.ValidateOdds(q); !v.Valid {
			s.logger.WithFields(logrus.Fields{
				"bookmaker": q.BookmakerKey,
				"event":     q.EventExternalID,
				"market":    q.MarketType,
				"errors":    v.Errors,
			}).Debug("Skipping invalid odds")
			continue
		}
		eventID, ok := eventIDs[q.EventExternalID]
		if !ok {
			continue
		}
		bookmakerID, err := s.ensureBookmaker(ctx, q, bookmakerIDs)
		if err != nil {
			return len(eventIDs), 0, err
		}
		snapshots = append(snapshots, models.OddsSnapshot{
			EventID:     eventID,
			BookmakerID: bookmakerID,
			MarketType:  q.MarketType,
			OddsHome:    q.OddsHome,
			OddsAway:    q.OddsAway,
			OddsDraw:    q.OddsDraw,
			Point:       q.Point,
			OddsOver:    q.OddsOver,
			OddsUnder:   q.OddsUnder,
			Liquidity:   q.Liquidity,
			CapturedAt:  q.CapturedAt,
			SourceAPI:   q.SourceAPI,
		})
	}

	inserted, err := s.deps.Odds.InsertSnapshots(ctx, snapshots)
	if err != nil {
		return len(eventIDs), 0, err
	}
	return len(eventIDs), inserted, nil
}

func (s *SyncService) ensureBookmaker(ctx context.Context, q models.NormalizedOdds, ids map[string]string) (string, error) {
	if id, ok := ids[q.BookmakerKey]; ok {
		return id, nil
	}

	b := models.Bookmaker{
		Key:         q.BookmakerKey,
		Name:        q.BookmakerName,
		Type:        q.BookmakerType,
		Commission:  q.Commission,
		Reliability: s.config.DefaultReliability,
		IsActive:    true,
	}
	if b.Name == "" {
		b.Name = b.Key
	}
	if b.Type == "" {
		b.Type = models.BookmakerTypeBookmaker
	}
	b.SupportsBothSides = b.Type.SupportsBothSides()

	id, err := s.deps.Bookmakers.Upsert(ctx, b)
	if err != nil {
		return "", err
	}
	ids[b.Key] = id
	s.logger.WithFields(logrus.Fields{"key": b.Key, "type": b.Type}).Info("Registered new bookmaker")
	return id, nil
}

// detect evaluates every fresh event/market group on a bounded worker pool
// and returns the number of opportunities stored.
func (s *SyncService) detect(ctx context.Context) (int, error) {
	now := s.now()
	recent, err := s.deps.Odds.ListRecent(ctx, now.Add(-s.config.SnapshotWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to load recent odds: %w", err)
	}

	maxAge := s.deps.Engine.Config().MaxLatency()
	fresh := make([]models.QuoteSnapshot, 0, len(recent))
	for _, q := range recent {
		if normalizer.IsOddsFresh(q.CapturedAt, maxAge, now) {
			fresh = append(fresh, q)
		}
	}

	groups := normalizer.GroupByEventMarket(fresh)
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	events := s.resolveEvents(ctx, groups, now)

	var detected atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.config.MaxWorkers)
	for _, key := range keys {
		group := normalizer.LatestByBookmaker(groups[key])
		ev, ok := events[group[0].EventID]
		if !ok || len(group) < 2 {
			continue
		}
		g.Go(func() error {
			found, err := s.evaluateGroup(ctx, ev, group, now)
			if err != nil {
				s.logger.WithError(err).WithField("group", key).Warn("Failed to evaluate market")
				return nil
			}
			if found {
				detected.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(detected.Load()), ctx.Err()
}

// resolveEvents loads the events referenced by groups, skipping those that
// have already started.
func (s *SyncService) resolveEvents(ctx context.Context, groups map[string][]models.QuoteSnapshot, now time.Time) map[string]*models.Event {
	ids := make(map[string]struct{})
	for _, g := range groups {
		if len(g) > 0 {
			ids[g[0].EventID] = struct{}{}
		}
	}

	events := make(map[string]*models.Event, len(ids))
	for id := range ids {
		ev, err := s.deps.Events.GetByID(ctx, id)
		if err != nil {
			if !utils.IsNotFoundError(err) {
				s.logger.WithError(err).WithField("event_id", id).Warn("Failed to load event")
			}
			continue
		}
		if !ev.CommenceTime.After(now) {
			continue
		}
		events[id] = ev
	}
	return events
}

func (s *SyncService) evaluateGroup(ctx context.Context, ev *models.Event, group []models.QuoteSnapshot, now time.Time) (bool, error) {
	quotes := make([]arbitrage.Quote, len(group))
	engineCfg := s.deps.Engine.Config()
	for i, q := range group {
		quotes[i] = q.ToQuote()
		if quotes[i].SupportsBothSidesExposure && quotes[i].Commission == 0 {
			quotes[i].Commission = engineCfg.CommissionDefault
		}
	}

	calc, err := s.deps.Engine.CalculateFromOddsList(quotes)
	if err != nil {
		if errors.Is(err, arbitrage.ErrInvalidInput) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"event_id": ev.ID,
				"market":   group[0].MarketType,
			}).Warn("Skipping market with invalid quotes")
			return false, nil
		}
		return false, err
	}
	if calc == nil || !calc.IsArbitrage {
		return false, nil
	}

	opp, err := s.buildOpportunity(ctx, ev, group, calc, now)
	if err != nil {
		return false, err
	}
	if err := s.deps.Opportunities.Create(ctx, opp); err != nil {
		return false, err
	}

	s.deps.Metrics.RecordOpportunity(string(opp.QualityGrade), opp.ProfitPercentage)
	s.logger.WithFields(logrus.Fields{
		"opportunity_id": opp.ID,
		"event":          opp.Title(),
		"market":         opp.MarketType,
		"profit":         utils.FormatProfitPercentage(opp.ProfitPercentage),
		"grade":          opp.QualityGrade,
	}).Info("Arbitrage opportunity detected")

	if s.deps.Publisher != nil {
		s.deps.Publisher.PublishOpportunity(*opp)
	}
	if s.deps.Alerter != nil {
		if err := s.deps.Alerter.Dispatch(ctx, opp); err != nil {
			s.logger.WithError(err).WithField("opportunity_id", opp.ID).Warn("Alert dispatch failed")
		}
	}
	return true, nil
}

// buildOpportunity annotates a calculation with quality and risk estimates
// taken from the selected legs.
func (s *SyncService) buildOpportunity(ctx context.Context, ev *models.Event, group []models.QuoteSnapshot, calc *arbitrage.Calculation, now time.Time) (*models.Opportunity, error) {
	byBookmaker := make(map[string]models.QuoteSnapshot, len(group))
	for _, q := range group {
		byBookmaker[q.BookmakerID] = q
	}
	legs := []models.QuoteSnapshot{
		byBookmaker[calc.BestOddsHome.BookmakerID],
		byBookmaker[calc.BestOddsAway.BookmakerID],
	}
	if calc.BestOddsDraw != nil {
		legs = append(legs, byBookmaker[calc.BestOddsDraw.BookmakerID])
	}

	oldest := legs[0].CapturedAt
	for _, leg := range legs[1:] {
		if leg.CapturedAt.Before(oldest) {
			oldest = leg.CapturedAt
		}
	}
	risk := arbitrage.AssessLatencyRisk(oldest, now)
	liquidity := s.legLiquidity(legs)
	reliability := s.legReliability(legs)

	score, err := arbitrage.CalculateQualityScore(calc.ProfitPercentage, liquidity, risk, reliability)
	if err != nil {
		return nil, err
	}

	expiresAt, err := arbitrage.EstimateExpiration(now, ev.CommenceTime, s.volatilityFor(ctx, ev.ID, group[0].MarketType))
	if err != nil {
		return nil, err
	}

	limits := arbitrage.BookmakerLimits{Home: legLimit(legs[0]), Away: legLimit(legs[1])}
	if len(legs) == 3 {
		limits.Draw = legLimit(legs[2])
	}
	maxStake, err := arbitrage.EstimateMaxStake(liquidity, limits)
	if err != nil {
		return nil, err
	}

	opp := &models.Opportunity{
		ID:              uuid.NewString(),
		EventID:         ev.ID,
		MarketType:      group[0].MarketType,
		IsThreeWay:      calc.IsThreeWay,
		BookmakerHomeID: calc.BestOddsHome.BookmakerID,
		BookmakerAwayID: calc.BestOddsAway.BookmakerID,
		BookmakerHome:   calc.BestOddsHome.BookmakerKey,
		BookmakerAway:   calc.BestOddsAway.BookmakerKey,
		OddsHome:        calc.BestOddsHome.Odds,
		OddsAway:        calc.BestOddsAway.Odds,

		TotalImpliedProb:     calc.TotalImpliedProb,
		ArbitrageMargin:      calc.ArbitrageMargin,
		ProfitPercentage:     calc.ProfitPercentage,
		TotalStake:           calc.TotalStake,
		StakeHome:            calc.StakeHome,
		StakeAway:            calc.StakeAway,
		StakeDraw:            calc.StakeDraw,
		ExpectedProfit:       calc.ExpectedProfit,
		CommissionAdjustment: calc.CommissionAdjusted,
		SlippageEstimate:     calc.SlippageEstimate,
		AdjustedProfit:       calc.AdjustedProfit,

		QualityScore:   score,
		QualityGrade:   arbitrage.AssignQualityGrade(score),
		LatencyRisk:    risk,
		LatencyMs:      now.Sub(oldest).Milliseconds(),
		LiquidityScore: liquidity,
		MaxStake:       maxStake,

		Status:     models.OpportunityActive,
		DetectedAt: now,
		ExpiresAt:  expiresAt,
		UpdatedAt:  now,

		Event: &models.EventSummary{
			HomeTeam:     ev.HomeTeam,
			AwayTeam:     ev.AwayTeam,
			SportKey:     ev.SportKey,
			Competition:  ev.Competition,
			CommenceTime: ev.CommenceTime,
		},
	}
	if calc.BestOddsDraw != nil {
		opp.BookmakerDrawID = calc.BestOddsDraw.BookmakerID
		opp.BookmakerDraw = calc.BestOddsDraw.BookmakerKey
		opp.OddsDraw = calc.BestOddsDraw.Odds
	}
	return opp, nil
}

// legLiquidity maps order book depth in dollars onto a 0-100 score (100 at
// $10k) and averages it over the legs that report depth.
func (s *SyncService) legLiquidity(legs []models.QuoteSnapshot) float64 {
	var sum float64
	var n int
	for _, leg := range legs {
		if leg.Liquidity > 0 {
			sum += min(100, leg.Liquidity/100)
			n++
		}
	}
	if n == 0 {
		return s.config.DefaultLiquidityScore
	}
	return sum / float64(n)
}

func (s *SyncService) legReliability(legs []models.QuoteSnapshot) float64 {
	var sum float64
	var n int
	for _, leg := range legs {
		if leg.Reliability > 0 {
			sum += leg.Reliability
			n++
		}
	}
	if n == 0 {
		return s.config.DefaultReliability
	}
	return sum / float64(n)
}

func legLimit(leg models.QuoteSnapshot) float64 {
	if leg.MaxStake > 0 {
		return leg.MaxStake
	}
	return defaultBookmakerLimit
}

func (s *SyncService) volatilityFor(ctx context.Context, eventID, market string) arbitrage.Volatility {
	if s.deps.Volatility == nil {
		return s.config.Volatility
	}
	v, err := s.deps.Volatility.Volatility(ctx, eventID, market)
	if err != nil || v == "" {
		return s.config.Volatility
	}
	return v
}

func (s *SyncService) refreshActiveGauge(ctx context.Context) {
	if s.deps.Metrics == nil {
		return
	}
	stats, err := s.deps.Opportunities.Stats(ctx, s.now())
	if err != nil {
		s.logger.WithError(err).Debug("Failed to refresh active opportunity gauge")
		return
	}
	s.deps.Metrics.SetActiveOpportunities(stats.ActiveOpportunities)
}
