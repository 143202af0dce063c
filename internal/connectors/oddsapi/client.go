// Package oddsapi is the connector for The Odds API (the-odds-api.com).
package oddsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/normalizer"
)

const (
	ProviderName = string(models.SourceOddsAPI)

	DefaultBaseURL = "https://api.the-odds-api.com/v4"

	oddsFormatDecimal  = "decimal"
	oddsFormatAmerican = "american"
	drawOutcome        = "Draw"
	overOutcome        = "Over"
	underOutcome       = "Under"
)

// DefaultSports are the niche and lower-tier competitions scanned when no
// sport keys are configured.
var DefaultSports = []string{
	"esports_cs2",
	"esports_lol",
	"esports_dota2",
	"esports_valorant",
	"mma_mixed_martial_arts",
	"boxing_boxing",
	"tennis_atp",
	"tennis_wta",
	"soccer_australia_aleague",
	"soccer_argentina_primera_division",
	"soccer_brazil_serie_a",
	"soccer_chile_primera_division",
	"soccer_colombia_primera_a",
	"soccer_denmark_superliga",
	"soccer_finland_veikkausliiga",
	"soccer_japan_j_league",
	"soccer_mexico_ligamx",
	"soccer_norway_eliteserien",
	"soccer_poland_ekstraklasa",
	"soccer_romania_liga_1",
	"soccer_sweden_allsvenskan",
	"soccer_switzerland_superleague",
	"soccer_turkey_super_league",
}

// Config configures the client.
type Config struct {
	APIKey            string   `mapstructure:"api_key"`
	BaseURL           string   `mapstructure:"base_url"`
	Regions           string   `mapstructure:"regions"`
	Markets           string   `mapstructure:"markets"`
	OddsFormat        string   `mapstructure:"odds_format"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	Sports            []string `mapstructure:"sports"`
}

// Client talks to The Odds API v4.
type Client struct {
	config Config
	http   *connectors.HTTPClient
	logger *logrus.Logger
	now    func() time.Time

	mu    sync.RWMutex
	usage Usage
}

// NewClient creates a client. Empty config fields take the API defaults.
func NewClient(cfg Config, breaker connectors.Breaker, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Regions == "" {
		cfg.Regions = "us,uk,eu,au"
	}
	if cfg.Markets == "" {
		cfg.Markets = "h2h,spreads,totals"
	}
	if cfg.OddsFormat == "" {
		cfg.OddsFormat = oddsFormatDecimal
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if len(cfg.Sports) == 0 {
		cfg.Sports = DefaultSports
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		config: cfg,
		http: connectors.NewHTTPClient(connectors.HTTPClientConfig{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             1,
			Breaker:           breaker,
			Logger:            logger,
		}),
		logger: logger,
		now:    time.Now,
	}
}

// Name implements connectors.Source.
func (c *Client) Name() string {
	return ProviderName
}

// Usage returns the quota reported by the most recent response.
func (c *Client) Usage() Usage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usage
}

// Requests returns the number of HTTP requests issued.
func (c *Client) Requests() int64 {
	return c.http.Requests()
}

func (c *Client) get(ctx context.Context, path string, withOdds bool, out any) error {
	params := url.Values{"apiKey": {c.config.APIKey}}
	if withOdds {
		params.Set("regions", c.config.Regions)
		params.Set("markets", c.config.Markets)
		params.Set("oddsFormat", c.config.OddsFormat)
		params.Set("dateFormat", "iso")
	}

	start := c.now()
	header, err := c.http.GetJSON(ctx, strings.TrimRight(c.config.BaseURL, "/")+path, params, out)
	c.recordUsage(header)
	if err != nil {
		return err
	}

	usage := c.Usage()
	c.logger.WithFields(logrus.Fields{
		"provider":   ProviderName,
		"path":       path,
		"latency_ms": c.now().Sub(start).Milliseconds(),
		"used":       usage.Used,
		"remaining":  usage.Remaining,
	}).Debug("Odds API request completed")
	return nil
}

func (c *Client) recordUsage(h http.Header) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, err := strconv.Atoi(h.Get("x-requests-used")); err == nil {
		c.usage.Used = v
	}
	if v, err := strconv.Atoi(h.Get("x-requests-remaining")); err == nil {
		c.usage.Remaining = v
	}
}

// GetUpcomingEvents returns upcoming events with odds for a sport.
func (c *Client) GetUpcomingEvents(ctx context.Context, sportKey string) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "/sports/"+url.PathEscape(sportKey)+"/odds/", true, &events); err != nil {
		return nil, fmt.Errorf("get upcoming events for %s: %w", sportKey, err)
	}
	return events, nil
}

// GetEventOdds returns one event with odds.
func (c *Client) GetEventOdds(ctx context.Context, sportKey, eventID string) (*Event, error) {
	var event Event
	path := "/sports/" + url.PathEscape(sportKey) + "/events/" + url.PathEscape(eventID) + "/odds/"
	if err := c.get(ctx, path, true, &event); err != nil {
		return nil, fmt.Errorf("get event odds %s: %w", eventID, err)
	}
	return &event, nil
}

// GetSports lists the sports known to the API.
func (c *Client) GetSports(ctx context.Context) ([]Sport, error) {
	var sports []Sport
	if err := c.get(ctx, "/sports/", false, &sports); err != nil {
		return nil, fmt.Errorf("get sports: %w", err)
	}
	return sports, nil
}

// Fetch implements connectors.Source. Each configured sport is fetched in
// turn; failures are collected per sport.
func (c *Client) Fetch(ctx context.Context) (*connectors.FetchResult, error) {
	result := &connectors.FetchResult{Provider: ProviderName}
	before := c.http.Requests()
	failedSports := 0

	for _, sportKey := range c.config.Sports {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		events, err := c.GetUpcomingEvents(ctx, sportKey)
		if err != nil {
			failedSports++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sportKey, err))
			c.logger.WithError(err).WithField("sport_key", sportKey).Warn("Failed to sync sport")
			continue
		}

		for _, ev := range events {
			normalized, err := c.NormalizeEvent(ev, sportKey)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", sportKey, ev.ID, err))
				continue
			}
			result.Events = append(result.Events, normalized)
			result.Odds = append(result.Odds, c.NormalizeOdds(ev)...)
		}
	}

	result.Requests = c.http.Requests() - before
	if failedSports > 0 && failedSports == len(c.config.Sports) {
		return result, fmt.Errorf("all %d sports failed: %s", failedSports, result.Errors[0])
	}
	return result, nil
}

// NormalizeEvent maps an API event onto the shared model.
func (c *Client) NormalizeEvent(ev Event, sportKey string) (models.NormalizedEvent, error) {
	commence, err := time.Parse(time.RFC3339, ev.CommenceTime)
	if err != nil {
		return models.NormalizedEvent{}, fmt.Errorf("parse commence_time: %w", err)
	}
	if sportKey == "" {
		sportKey = ev.SportKey
	}
	return models.NormalizedEvent{
		ExternalID:   ev.ID,
		SourceAPI:    models.SourceOddsAPI,
		SportKey:     sportKey,
		Competition:  ev.SportTitle,
		HomeTeam:     normalizer.NormalizeName(ev.HomeTeam),
		AwayTeam:     normalizer.NormalizeName(ev.AwayTeam),
		CommenceTime: commence.UTC(),
		Status:       models.EventScheduled,
	}, nil
}

// NormalizeOdds flattens every bookmaker market of ev into quotes. Outcomes
// are matched by team name; markets missing either side are skipped, as are
// quotes that fail validation.
func (c *Client) NormalizeOdds(ev Event) []models.NormalizedOdds {
	capturedAt := c.now().UTC()
	var out []models.NormalizedOdds

	for _, bm := range ev.Bookmakers {
		for _, market := range bm.Markets {
			q, ok := c.normalizeMarket(ev, bm, market, capturedAt)
			if !ok {
				continue
			}
			if res := normalizer.ValidateOdds(q); !res.Valid {
				c.logger.WithFields(logrus.Fields{
					"event_id":  ev.ID,
					"bookmaker": bm.Key,
					"market":    market.Key,
					"errors":    res.Errors,
				}).Debug("Skipping invalid odds")
				continue
			}
			out = append(out, q)
		}
	}
	return out
}

func (c *Client) normalizeMarket(ev Event, bm Bookmaker, market Market, capturedAt time.Time) (models.NormalizedOdds, bool) {
	bmType, commission := bookmakerType(bm.Key)
	q := models.NormalizedOdds{
		EventExternalID: ev.ID,
		BookmakerKey:    bm.Key,
		BookmakerName:   bm.Title,
		BookmakerType:   bmType,
		Commission:      commission,
		MarketType:      market.Key,
		CapturedAt:      capturedAt,
		SourceAPI:       models.SourceOddsAPI,
	}

	if market.Key == models.MarketTotals {
		over, okOver := findOutcome(market.Outcomes, overOutcome)
		under, okUnder := findOutcome(market.Outcomes, underOutcome)
		if !okOver || !okUnder {
			return q, false
		}
		q.OddsOver, q.OddsUnder = c.price(over.Price), c.price(under.Price)
		q.OddsHome, q.OddsAway = q.OddsOver, q.OddsUnder
		if over.Point != nil {
			q.Point = *over.Point
		}
		return q, true
	}

	home, okHome := findOutcome(market.Outcomes, ev.HomeTeam)
	away, okAway := findOutcome(market.Outcomes, ev.AwayTeam)
	if !okHome || !okAway {
		return q, false
	}
	q.OddsHome, q.OddsAway = c.price(home.Price), c.price(away.Price)
	if draw, ok := findOutcome(market.Outcomes, drawOutcome); ok {
		q.OddsDraw = c.price(draw.Price)
	}
	if market.Key == models.MarketSpreads && home.Point != nil {
		q.Point = *home.Point
	}
	return q, true
}

// price converts an API price to decimal odds. Unconvertible prices become
// zero and fail validation downstream.
func (c *Client) price(p float64) float64 {
	if c.config.OddsFormat != oddsFormatAmerican {
		return p
	}
	d, err := normalizer.AmericanToDecimal(p)
	if err != nil {
		return 0
	}
	return d
}

func findOutcome(outcomes []Outcome, name string) (Outcome, bool) {
	for _, o := range outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// exchangeCommission lists betting exchanges and the commission they take on
// net winnings.
var exchangeCommission = map[string]float64{
	"betfair_ex_uk": 0.05,
	"betfair_ex_eu": 0.05,
	"betfair_ex_au": 0.05,
	"matchbook":     0.02,
	"smarkets":      0.02,
}

func bookmakerType(key string) (models.BookmakerType, float64) {
	if commission, ok := exchangeCommission[key]; ok {
		return models.BookmakerTypeExchange, commission
	}
	return models.BookmakerTypeBookmaker, 0
}
