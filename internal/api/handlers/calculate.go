package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

const (
	calcDefaultLiquidity   = 50
	calcDefaultReliability = 75
	maxCalculateQuotes     = 100
)

// CalculateRequest is the body of POST /calculate. Only quotes is required.
type CalculateRequest struct {
	Quotes         []arbitrage.Quote          `json:"quotes" binding:"required"`
	TotalStake     float64                    `json:"total_stake"`
	LiquidityScore *float64                   `json:"liquidity_score"`
	Reliability    *float64                   `json:"reliability"`
	Volatility     arbitrage.Volatility       `json:"volatility"`
	EventStart     *time.Time                 `json:"event_start"`
	Limits         *arbitrage.BookmakerLimits `json:"limits"`
}

// CalculateResponse is the calculation plus the quality and risk annotations
// the sync cycle would attach. Calculation is nil when the quotes cannot form
// an executable set.
type CalculateResponse struct {
	Calculation   *arbitrage.Calculation `json:"calculation"`
	IsArbitrage   bool                   `json:"is_arbitrage"`
	ProfitDisplay string                 `json:"profit_display,omitempty"`
	QualityScore  int                    `json:"quality_score,omitempty"`
	QualityGrade  arbitrage.Grade        `json:"quality_grade,omitempty"`
	LatencyRisk   arbitrage.LatencyRisk  `json:"latency_risk,omitempty"`
	ExpiresAt     *time.Time             `json:"expires_at,omitempty"`
	MaxStake      *float64               `json:"max_stake,omitempty"`
}

type CalculateHandler struct {
	engine *arbitrage.Engine
	now    func() time.Time
}

func NewCalculateHandler(engine *arbitrage.Engine) *CalculateHandler {
	return &CalculateHandler{engine: engine, now: time.Now}
}

// Calculate evaluates caller-supplied quotes without touching storage.
func (h *CalculateHandler) Calculate(c *gin.Context) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Quotes) < 2 || len(req.Quotes) > maxCalculateQuotes {
		respondError(c, http.StatusBadRequest, "Between 2 and 100 quotes are required")
		return
	}

	now := h.now()
	cfg := h.engine.Config()
	quotes := make([]arbitrage.Quote, len(req.Quotes))
	copy(quotes, req.Quotes)
	for i := range quotes {
		if quotes[i].BookmakerID == "" {
			quotes[i].BookmakerID = quotes[i].BookmakerKey
		}
		if quotes[i].BookmakerID == "" {
			respondError(c, http.StatusBadRequest, "Every quote needs a bookmaker_id or bookmaker_key")
			return
		}
		if quotes[i].SupportsBothSidesExposure && quotes[i].Commission == 0 {
			quotes[i].Commission = cfg.CommissionDefault
		}
		if quotes[i].CapturedAt.IsZero() {
			quotes[i].CapturedAt = now
		}
	}
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].BookmakerID < quotes[j].BookmakerID })

	calc, err := h.engine.CalculateFromOddsList(quotes)
	if err != nil {
		respondErr(c, err, "Calculation failed")
		return
	}
	if calc == nil {
		respond(c, http.StatusOK, CalculateResponse{})
		return
	}
	if req.TotalStake != 0 {
		calc, err = h.restake(calc, quotes, req.TotalStake)
		if err != nil {
			respondErr(c, err, "Calculation failed")
			return
		}
	}

	resp := CalculateResponse{
		Calculation:   calc,
		IsArbitrage:   calc.IsArbitrage,
		ProfitDisplay: utils.FormatProfitPercentage(calc.ProfitPercentage),
	}
	if !calc.IsArbitrage {
		respond(c, http.StatusOK, resp)
		return
	}

	if err := h.annotate(&resp, req, quotes, now); err != nil {
		respondErr(c, err, "Calculation failed")
		return
	}
	respond(c, http.StatusOK, resp)
}

// restake reruns the calculation for the selected legs with the requested
// total stake.
func (h *CalculateHandler) restake(calc *arbitrage.Calculation, quotes []arbitrage.Quote, totalStake float64) (*arbitrage.Calculation, error) {
	commission := commissionsByBookmaker(quotes)
	var oddsDraw, commissionDraw float64
	if calc.BestOddsDraw != nil {
		oddsDraw = calc.BestOddsDraw.Odds
		commissionDraw = commission[calc.BestOddsDraw.BookmakerID]
	}
	staked, err := h.engine.CalculateWithStake(
		calc.BestOddsHome.Odds,
		calc.BestOddsAway.Odds,
		oddsDraw,
		commission[calc.BestOddsHome.BookmakerID],
		commission[calc.BestOddsAway.BookmakerID],
		commissionDraw,
		totalStake,
	)
	if err != nil {
		return nil, err
	}
	staked.BestOddsHome = calc.BestOddsHome
	staked.BestOddsAway = calc.BestOddsAway
	staked.BestOddsDraw = calc.BestOddsDraw
	return staked, nil
}

func (h *CalculateHandler) annotate(resp *CalculateResponse, req CalculateRequest, quotes []arbitrage.Quote, now time.Time) error {
	calc := resp.Calculation
	liquidity := float64(calcDefaultLiquidity)
	if req.LiquidityScore != nil {
		liquidity = *req.LiquidityScore
	}
	reliability := float64(calcDefaultReliability)
	if req.Reliability != nil {
		reliability = *req.Reliability
	}

	oldest := now
	captured := capturedByBookmaker(quotes)
	legs := []string{calc.BestOddsHome.BookmakerID, calc.BestOddsAway.BookmakerID}
	if calc.BestOddsDraw != nil {
		legs = append(legs, calc.BestOddsDraw.BookmakerID)
	}
	for _, id := range legs {
		if at := captured[id]; at.Before(oldest) {
			oldest = at
		}
	}
	resp.LatencyRisk = arbitrage.AssessLatencyRisk(oldest, now)

	score, err := arbitrage.CalculateQualityScore(calc.ProfitPercentage, liquidity, resp.LatencyRisk, reliability)
	if err != nil {
		return err
	}
	resp.QualityScore = score
	resp.QualityGrade = arbitrage.AssignQualityGrade(score)

	if req.EventStart != nil {
		expires, err := arbitrage.EstimateExpiration(now, *req.EventStart, req.Volatility)
		if err != nil {
			return err
		}
		resp.ExpiresAt = &expires
	}
	if req.Limits != nil {
		maxStake, err := arbitrage.EstimateMaxStake(liquidity, *req.Limits)
		if err != nil {
			return err
		}
		resp.MaxStake = &maxStake
	}
	return nil
}

func commissionsByBookmaker(quotes []arbitrage.Quote) map[string]float64 {
	out := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		if _, ok := out[q.BookmakerID]; !ok {
			out[q.BookmakerID] = q.Commission
		}
	}
	return out
}

func capturedByBookmaker(quotes []arbitrage.Quote) map[string]time.Time {
	out := make(map[string]time.Time, len(quotes))
	for _, q := range quotes {
		if _, ok := out[q.BookmakerID]; !ok {
			out[q.BookmakerID] = q.CapturedAt
		}
	}
	return out
}
