package polymarket

import "strconv"

// MarketsPage is one page of GET /markets.
type MarketsPage struct {
	Limit      int      `json:"limit"`
	Count      int      `json:"count"`
	NextCursor string   `json:"next_cursor"`
	Data       []Market `json:"data"`
}

// Market is a CLOB market. Prices on its tokens are probabilities in [0,1].
type Market struct {
	ConditionID string   `json:"condition_id"`
	QuestionID  string   `json:"question_id"`
	Question    string   `json:"question"`
	MarketSlug  string   `json:"market_slug"`
	EndDateISO  string   `json:"end_date_iso"`
	Tags        []string `json:"tags"`
	Tokens      []Token  `json:"tokens"`
	Active      bool     `json:"active"`
	Closed      bool     `json:"closed"`
	MinimumBond float64  `json:"minimum_bond,omitempty"`
}

// Token is one tradable outcome of a market.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// OrderBook is the response of GET /book.
type OrderBook struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
}

// BookLevel is a price level. The API sends numbers as strings.
type BookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Depth returns the dollar notional resting on both sides of the book.
// Unparseable levels are ignored.
func (b *OrderBook) Depth() float64 {
	var total float64
	for _, levels := range [][]BookLevel{b.Bids, b.Asks} {
		for _, l := range levels {
			price, err := strconv.ParseFloat(l.Price, 64)
			if err != nil {
				continue
			}
			size, err := strconv.ParseFloat(l.Size, 64)
			if err != nil {
				continue
			}
			total += price * size
		}
	}
	return total
}
