// Package polymarket is the read-only connector for the Polymarket CLOB API.
// Two-outcome sports markets are mapped onto head-to-head quotes with decimal
// odds of 1/p.
package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/normalizer"
)

const (
	ProviderName   = string(models.SourcePolymarket)
	BookmakerKey   = "polymarket"
	BookmakerName  = "Polymarket"
	Commission     = 0.02
	DefaultBaseURL = "https://clob.polymarket.com"

	DefaultMaxPages  = 5
	DefaultLiquidity = 1000.0

	// endCursor is the base64 "-1" cursor the CLOB returns on the last page.
	endCursor   = "LTE="
	competition = "Polymarket Prediction Market"
)

// Config configures the client.
type Config struct {
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxPages          int     `mapstructure:"max_pages"`
	SportsTag         string  `mapstructure:"sports_tag"`
	FetchOrderBooks   bool    `mapstructure:"fetch_order_books"`
}

// Client reads markets and order books from the CLOB.
type Client struct {
	config Config
	http   *connectors.HTTPClient
	logger *logrus.Logger
	now    func() time.Time
}

// NewClient creates a client. Empty config fields take the defaults.
func NewClient(cfg Config, breaker connectors.Breaker, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
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

// Requests returns the number of HTTP requests issued.
func (c *Client) Requests() int64 {
	return c.http.Requests()
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	_, err := c.http.GetJSON(ctx, strings.TrimRight(c.config.BaseURL, "/")+path, params, out)
	return err
}

// GetMarkets returns one page of active markets starting at cursor. An empty
// cursor starts from the beginning.
func (c *Client) GetMarkets(ctx context.Context, cursor string) (*MarketsPage, error) {
	params := url.Values{
		"active": {"true"},
		"closed": {"false"},
		"limit":  {"100"},
	}
	if cursor != "" {
		params.Set("next_cursor", cursor)
	}
	if c.config.SportsTag != "" {
		params.Set("tag", c.config.SportsTag)
	}

	var page MarketsPage
	if err := c.get(ctx, "/markets", params, &page); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}
	return &page, nil
}

// GetMarket returns a single market by condition id.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (*Market, error) {
	var m Market
	if err := c.get(ctx, "/markets/"+url.PathEscape(conditionID), nil, &m); err != nil {
		return nil, fmt.Errorf("get market %s: %w", conditionID, err)
	}
	return &m, nil
}

// GetOrderBook returns the book of one outcome token.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	var book OrderBook
	if err := c.get(ctx, "/book", url.Values{"token_id": {tokenID}}, &book); err != nil {
		return nil, fmt.Errorf("get order book %s: %w", tokenID, err)
	}
	return &book, nil
}

// Fetch implements connectors.Source. It pages through at most MaxPages of
// markets and keeps the two-outcome sports markets. A failure on the first
// page fails the fetch; later pages only record an error.
func (c *Client) Fetch(ctx context.Context) (*connectors.FetchResult, error) {
	result := &connectors.FetchResult{Provider: ProviderName}
	before := c.http.Requests()
	defer func() { result.Requests = c.http.Requests() - before }()

	cursor := ""
	for page := 0; page < c.config.MaxPages; page++ {
		resp, err := c.GetMarkets(ctx, cursor)
		if err != nil {
			if page == 0 {
				return result, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("pagination: %v", err))
			break
		}

		for _, m := range resp.Data {
			c.collect(ctx, m, result)
		}

		if resp.NextCursor == "" || resp.NextCursor == endCursor {
			break
		}
		cursor = resp.NextCursor
	}

	c.logger.WithFields(logrus.Fields{
		"provider": ProviderName,
		"events":   len(result.Events),
		"odds":     len(result.Odds),
	}).Debug("Polymarket fetch completed")
	return result, nil
}

func (c *Client) collect(ctx context.Context, m Market, result *connectors.FetchResult) {
	if !IsBettingMarket(m) {
		return
	}
	event, ok := c.NormalizeMarket(m)
	if !ok {
		return
	}
	odds := c.NormalizeOdds(m, c.liquidity(ctx, m))
	if res := normalizer.ValidateOdds(odds); !res.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", m.ConditionID, strings.Join(res.Errors, "; ")))
		return
	}
	result.Events = append(result.Events, event)
	result.Odds = append(result.Odds, odds)
}

// liquidity estimates the dollars available on a market. The order book of the
// first outcome is used when enabled; otherwise minimum_bond, then
// DefaultLiquidity.
func (c *Client) liquidity(ctx context.Context, m Market) float64 {
	if c.config.FetchOrderBooks && len(m.Tokens) > 0 {
		book, err := c.GetOrderBook(ctx, m.Tokens[0].TokenID)
		if err != nil {
			c.logger.WithError(err).WithField("condition_id", m.ConditionID).Debug("Order book unavailable")
		} else if depth := book.Depth(); depth > 0 {
			return depth
		}
	}
	if m.MinimumBond > 0 {
		return m.MinimumBond
	}
	return DefaultLiquidity
}

// IsBettingMarket reports whether m is an open two-outcome market.
func IsBettingMarket(m Market) bool {
	return len(m.Tokens) == 2 && m.Active && !m.Closed
}

// orderedTokens returns the home and away tokens. Yes/No markets put Yes on
// the home side; other markets keep API order.
func orderedTokens(tokens []Token) (home, away Token) {
	home, away = tokens[0], tokens[1]
	if strings.EqualFold(home.Outcome, "no") || strings.EqualFold(away.Outcome, "yes") {
		home, away = away, home
	}
	return home, away
}

// ParseOutcomesToOdds converts the outcome prices of a two-token market into
// decimal odds for the home and away sides. A zero price gives zero odds.
func ParseOutcomesToOdds(tokens []Token) (oddsHome, oddsAway float64) {
	if len(tokens) != 2 {
		return 0, 0
	}
	home, away := orderedTokens(tokens)
	return probabilityToOdds(home.Price), probabilityToOdds(away.Price)
}

func probabilityToOdds(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return 1 / p
}

// NormalizeMarket maps a market onto an event. ok is false for markets that
// are not about a recognised sport. Teams come from a "X vs Y" question and
// fall back to the outcome names.
func (c *Client) NormalizeMarket(m Market) (models.NormalizedEvent, bool) {
	sportKey := normalizer.DetectPredictionMarketSport(m.Question, m.Tags)
	if sportKey == normalizer.PredictionMarketOther || len(m.Tokens) != 2 {
		return models.NormalizedEvent{}, false
	}

	home, away, ok := normalizer.ParseMatchup(m.Question)
	if !ok {
		h, a := orderedTokens(m.Tokens)
		home, away = normalizer.NormalizeName(h.Outcome), normalizer.NormalizeName(a.Outcome)
	}

	commence := c.now().UTC()
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		commence = t.UTC()
	}
	status := models.EventScheduled
	if m.Closed {
		status = models.EventEnded
	}

	return models.NormalizedEvent{
		ExternalID:   m.ConditionID,
		SourceAPI:    models.SourcePolymarket,
		SportKey:     sportKey,
		Competition:  competition,
		HomeTeam:     home,
		AwayTeam:     away,
		CommenceTime: commence,
		Status:       status,
	}, true
}

// NormalizeOdds returns the head-to-head quote of a two-outcome market.
func (c *Client) NormalizeOdds(m Market, liquidity float64) models.NormalizedOdds {
	home, away := ParseOutcomesToOdds(m.Tokens)
	return models.NormalizedOdds{
		EventExternalID: m.ConditionID,
		BookmakerKey:    BookmakerKey,
		BookmakerName:   BookmakerName,
		BookmakerType:   models.BookmakerTypePredictionMarket,
		Commission:      Commission,
		MarketType:      models.MarketH2H,
		OddsHome:        home,
		OddsAway:        away,
		Liquidity:       liquidity,
		CapturedAt:      c.now().UTC(),
		SourceAPI:       models.SourcePolymarket,
	}
}
