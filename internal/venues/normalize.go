package venues

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// teamAliases maps common short forms to canonical team names. Lookup keys
// are lowercase with collapsed whitespace.
var teamAliases = map[string]string{
	// NBA
	"la lakers":    "Los Angeles Lakers",
	"lakers":       "Los Angeles Lakers",
	"lac":          "Los Angeles Clippers",
	"la clippers":  "Los Angeles Clippers",
	"clippers":     "Los Angeles Clippers",
	"boston":       "Boston Celtics",
	"celtics":      "Boston Celtics",
	"gsw":          "Golden State Warriors",
	"golden state": "Golden State Warriors",
	"warriors":     "Golden State Warriors",
	"ny knicks":    "New York Knicks",
	"knicks":       "New York Knicks",
	"phx":          "Phoenix Suns",
	"phoenix":      "Phoenix Suns",
	"suns":         "Phoenix Suns",
	// NFL
	"kc":            "Kansas City Chiefs",
	"kansas city":   "Kansas City Chiefs",
	"chiefs":        "Kansas City Chiefs",
	"sf":            "San Francisco 49ers",
	"san francisco": "San Francisco 49ers",
	"49ers":         "San Francisco 49ers",
	"niners":        "San Francisco 49ers",
}

var marketTypeAliases = map[string]types.MarketType{
	"ml":           types.MarketTypeMoneyline,
	"money line":   types.MarketTypeMoneyline,
	"h2h":          types.MarketTypeMoneyline,
	"head to head": types.MarketTypeMoneyline,
	"spread":       types.MarketTypeSpread,
	"ats":          types.MarketTypeSpread,
	"point spread": types.MarketTypeSpread,
	"handicap":     types.MarketTypeSpread,
	"total":        types.MarketTypeTotal,
	"ou":           types.MarketTypeTotal,
	"over under":   types.MarketTypeTotal,
	"prop":         types.MarketTypeProp,
	"player prop":  types.MarketTypeProp,
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	slashPattern      = regexp.MustCompile(`[/\\]`)
	spreadPattern     = regexp.MustCompile(`^(.+?)\s*([-+]?\d+\.?\d*)$`)
)

// NormalizeTeamName maps a team name to its canonical form. Unknown names
// are returned title-cased so the fuzzy matcher still sees a stable shape.
func NormalizeTeamName(name string) string {
	if name == "" {
		return name
	}

	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	if canonical, ok := teamAliases[cleaned]; ok {
		return canonical
	}

	return titleCase(strings.TrimSpace(name))
}

// NormalizeMarketType maps a venue market-type label ("ML", "h2h", "O/U")
// to a canonical market type.
func NormalizeMarketType(marketType string) types.MarketType {
	if marketType == "" {
		return "unknown"
	}

	cleaned := strings.ToLower(strings.TrimSpace(marketType))
	cleaned = slashPattern.ReplaceAllString(cleaned, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	if canonical, ok := marketTypeAliases[cleaned]; ok {
		return canonical
	}

	return types.MarketType(cleaned)
}

// GenerateEventID builds the canonical cross-venue event ID
// {sport}_{teamA}_vs_{teamB}[_{YYYY_MM_DD}] with the teams sorted so both
// orderings of a fixture produce the same ID.
func GenerateEventID(sport, team1, team2 string, date *time.Time) string {
	sportClean := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sport)), " ", "_")

	teams := []string{
		strings.ReplaceAll(strings.ToLower(NormalizeTeamName(team1)), " ", "_"),
		strings.ReplaceAll(strings.ToLower(NormalizeTeamName(team2)), " ", "_"),
	}
	sort.Strings(teams)

	id := fmt.Sprintf("%s_%s_vs_%s", sportClean, teams[0], teams[1])
	if date != nil {
		id += "_" + date.Format("2006_01_02")
	}

	return id
}

// NormalizeOutcomeName canonicalizes an outcome label for its market type:
// Over/Under casing for totals, team name plus line for spreads, plain team
// normalization otherwise.
func NormalizeOutcomeName(outcome string, marketType types.MarketType) string {
	if outcome == "" {
		return outcome
	}
	outcome = strings.TrimSpace(outcome)

	if marketType == types.MarketTypeTotal {
		lower := strings.ToLower(outcome)
		switch {
		case strings.HasPrefix(lower, "over"):
			return "Over" + outcome[len("over"):]
		case strings.HasPrefix(lower, "o "):
			return "Over " + strings.TrimSpace(outcome[len("o "):])
		case strings.HasPrefix(lower, "under"):
			return "Under" + outcome[len("under"):]
		case strings.HasPrefix(lower, "u "):
			return "Under " + strings.TrimSpace(outcome[len("u "):])
		}

		return outcome
	}

	if marketType == types.MarketTypeSpread {
		if m := spreadPattern.FindStringSubmatch(outcome); m != nil {
			return NormalizeTeamName(m[1]) + " " + m[2]
		}
	}

	return NormalizeTeamName(outcome)
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}
