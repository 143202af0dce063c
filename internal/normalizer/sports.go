package normalizer

import (
	"regexp"
	"strings"
)

// PredictionMarketOther is the sport key of prediction markets that match no
// known sport.
const PredictionMarketOther = "polymarket_other"

type sportPattern struct {
	re       *regexp.Regexp
	sportKey string
}

var tagSports = []struct {
	tags     []string
	sportKey string
}{
	{[]string{"mma", "ufc"}, "polymarket_mma"},
	{[]string{"esports"}, "polymarket_esports"},
	{[]string{"tennis"}, "polymarket_tennis"},
	{[]string{"football", "soccer"}, "polymarket_football"},
}

var questionSports = []sportPattern{
	{regexp.MustCompile(`\b(ufc|mma|fight|vs\.?\s*\d)`), "polymarket_mma"},
	{regexp.MustCompile(`\b(cs2|csgo|lol|league of legends|dota|valorant)\b`), "polymarket_esports"},
	{regexp.MustCompile(`\b(atp|wta|tennis|open)\b`), "polymarket_tennis"},
	{regexp.MustCompile(`\b(nba|basketball)\b`), "polymarket_basketball"},
	{regexp.MustCompile(`\b(nfl|football|premier league|la liga)\b`), "polymarket_football"},
}

// DetectPredictionMarketSport guesses a sport key for a prediction market from
// its tags, falling back to keywords in the question. Unmatched markets get
// PredictionMarketOther.
func DetectPredictionMarketSport(question string, tags []string) string {
	for _, ts := range tagSports {
		for _, tag := range tags {
			for _, want := range ts.tags {
				if strings.EqualFold(tag, want) {
					return ts.sportKey
				}
			}
		}
	}
	q := strings.ToLower(question)
	for _, p := range questionSports {
		if p.re.MatchString(q) {
			return p.sportKey
		}
	}
	return PredictionMarketOther
}
