// Package normalizer maps provider data onto the shared model: entity names,
// sport categories, odds formats, validation and grouping for detection.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// Aliases are keyed by the folded form produced by foldKey.
var entityAliases = map[string]string{
	"navi":            "Natus Vincere",
	"natus vincere":   "Natus Vincere",
	"faze":            "FaZe Clan",
	"faze clan":       "FaZe Clan",
	"g2":              "G2 Esports",
	"g2 esports":      "G2 Esports",
	"vitality":        "Team Vitality",
	"team vitality":   "Team Vitality",
	"liquid":          "Team Liquid",
	"team liquid":     "Team Liquid",
	"c9":              "Cloud9",
	"cloud9":          "Cloud9",
	"jon jones":       "Jon Jones",
	"jones":           "Jon Jones",
	"stipe miocic":    "Stipe Miocic",
	"miocic":          "Stipe Miocic",
	"conor mcgregor":  "Conor McGregor",
	"mcgregor":        "Conor McGregor",
	"man utd":         "Manchester United",
	"manunited":       "Manchester United",
	"man city":        "Manchester City",
	"mancity":         "Manchester City",
	"atletico":        "Atlético Madrid",
	"atletico madrid": "Atlético Madrid",
}

var sportCategories = map[string]string{
	"esports_cs2":                       models.SportCategoryEsports,
	"esports_lol":                       models.SportCategoryEsports,
	"esports_dota2":                     models.SportCategoryEsports,
	"esports_valorant":                  models.SportCategoryEsports,
	"polymarket_esports":                models.SportCategoryEsports,
	"mma_mixed_martial_arts":            models.SportCategoryCombatSports,
	"boxing_boxing":                     models.SportCategoryCombatSports,
	"polymarket_mma":                    models.SportCategoryCombatSports,
	"tennis_atp":                        models.SportCategoryTennis,
	"tennis_wta":                        models.SportCategoryTennis,
	"polymarket_tennis":                 models.SportCategoryTennis,
	"soccer_australia_aleague":          models.SportCategoryFootball,
	"soccer_argentina_primera_division": models.SportCategoryFootball,
	"soccer_brazil_serie_a":             models.SportCategoryFootball,
	"polymarket_football":               models.SportCategoryFootball,
}

var matchupPattern = regexp.MustCompile(`(?i)^(.+?)\s+(?:vs\.?|v\.?|against)\s+(.+?)(?:\s*\?)?$`)

var marketNames = map[string]string{
	models.MarketH2H:          "Match Winner",
	models.MarketSpreads:      "Handicap",
	models.MarketTotals:       "Over/Under",
	models.MarketMapWinner:    "Map Winner",
	models.MarketRoundBetting: "Round Betting",
}

// foldKey lowercases s, strips diacritics and collapses whitespace.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// NormalizeName resolves a team or player name to its canonical form. Known
// aliases are matched case and accent insensitively; anything else is title
// cased.
func NormalizeName(name string) string {
	if canonical, ok := entityAliases[foldKey(name)]; ok {
		return canonical
	}
	clean := strings.Join(strings.Fields(name), " ")
	return cases.Title(language.English).String(clean)
}

// SportCategory maps a sport key onto its category, "other" when unknown.
func SportCategory(sportKey string) string {
	if category, ok := sportCategories[sportKey]; ok {
		return category
	}
	return models.SportCategoryOther
}

// FormatEventTitle renders "Home vs Away", with TBD for missing sides.
func FormatEventTitle(home, away string) string {
	if strings.TrimSpace(home) == "" {
		home = "TBD"
	}
	if strings.TrimSpace(away) == "" {
		away = "TBD"
	}
	return home + " vs " + away
}

// FormatMarketType returns the display name of a market key.
func FormatMarketType(key string) string {
	if name, ok := marketNames[key]; ok {
		return name
	}
	return key
}

// ParseMatchup extracts both sides from questions such as "NaVi vs FaZe?" or
// "Jones against Miocic". ok is false when no separator is found.
func ParseMatchup(question string) (home, away string, ok bool) {
	m := matchupPattern.FindStringSubmatch(strings.TrimSpace(question))
	if m == nil {
		return "", "", false
	}
	return NormalizeName(strings.TrimSpace(m[1])), NormalizeName(strings.TrimSpace(m[2])), true
}
