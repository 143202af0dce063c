package arbitrage

// BestOdds holds the winning quote per outcome.
type BestOdds struct {
	Home       Quote
	Away       Quote
	Draw       *Quote
	IsThreeWay bool
}

// FindBestOdds picks the highest price for each outcome independently. Draw
// prices are only considered when positive, and the market counts as
// three-way as soon as one quote carries a draw price.
//
// Ties keep the first quote in input order. Callers that want the lowest
// bookmaker id to win should sort quotes by BookmakerID first.
func FindBestOdds(quotes []Quote) (BestOdds, error) {
	if len(quotes) == 0 {
		return BestOdds{}, invalid("quotes", 0, "must not be empty")
	}

	best := BestOdds{Home: quotes[0], Away: quotes[0]}
	for _, q := range quotes[1:] {
		if q.OddsHome > best.Home.OddsHome {
			best.Home = q
		}
		if q.OddsAway > best.Away.OddsAway {
			best.Away = q
		}
	}

	for i := range quotes {
		q := quotes[i]
		if q.OddsDraw <= 0 {
			continue
		}
		if best.Draw == nil || q.OddsDraw > best.Draw.OddsDraw {
			best.Draw = &q
		}
	}
	best.IsThreeWay = best.Draw != nil

	return best, nil
}

// CalculateFromOddsList runs selection and the matching calculator for one
// event/market.
//
// A nil calculation with a nil error means the quotes cannot form an
// executable arbitrage set: fewer than two quotes, or the home and away legs
// land on the same bookmaker that cannot hold both sides. Only the home/away
// pair is checked; in a three-way market the draw leg may share a bookmaker
// with either side. A calculation with
// IsArbitrage=false means the legs were valid but the margin is too thin.
func (e *Engine) CalculateFromOddsList(quotes []Quote) (*Calculation, error) {
	if len(quotes) < 2 {
		return nil, nil
	}

	best, err := FindBestOdds(quotes)
	if err != nil {
		return nil, err
	}

	if best.Home.BookmakerID == best.Away.BookmakerID && !best.Home.SupportsBothSidesExposure {
		return nil, nil
	}

	var calc *Calculation
	if best.IsThreeWay {
		calc, err = e.Calculate3WayArbitrage(
			best.Home.OddsHome,
			best.Draw.OddsDraw,
			best.Away.OddsAway,
			best.Home.Commission,
			best.Draw.Commission,
			best.Away.Commission,
		)
		if err != nil {
			return nil, err
		}
		calc.BestOddsDraw = &LegOdds{
			Odds:         best.Draw.OddsDraw,
			BookmakerID:  best.Draw.BookmakerID,
			BookmakerKey: best.Draw.BookmakerKey,
		}
	} else {
		calc, err = e.Calculate2WayArbitrage(
			best.Home.OddsHome,
			best.Away.OddsAway,
			best.Home.Commission,
			best.Away.Commission,
		)
		if err != nil {
			return nil, err
		}
	}

	calc.BestOddsHome = LegOdds{
		Odds:         best.Home.OddsHome,
		BookmakerID:  best.Home.BookmakerID,
		BookmakerKey: best.Home.BookmakerKey,
	}
	calc.BestOddsAway = LegOdds{
		Odds:         best.Away.OddsAway,
		BookmakerID:  best.Away.BookmakerID,
		BookmakerKey: best.Away.BookmakerKey,
	}
	return calc, nil
}
