package matching

import "regexp"

// categoryGroups maps canonical category buckets to the raw tags venues use.
// Order matters: buckets are checked top to bottom and the first containment
// hit wins.
var categoryGroups = []struct {
	canonical string
	variants  []string
}{
	{"politics", []string{
		"politics", "political", "election", "elections", "us-politics",
		"government", "congress", "senate", "presidential", "vote", "voting",
		"president", "governor", "mayor",
	}},
	{"sports", []string{
		"sports", "nfl", "nba", "mlb", "nhl", "soccer", "football", "basketball",
		"baseball", "hockey", "tennis", "golf", "mma", "ufc", "boxing",
		"champions-league", "premier-league", "world-cup", "super-bowl",
	}},
	{"crypto", []string{
		"crypto", "cryptocurrency", "bitcoin", "ethereum", "btc", "eth", "defi",
	}},
	// "prediction" is the generic catch-all tag several prediction markets
	// put on political and general markets, so it lands in tech.
	{"tech", []string{
		"tech", "technology", "ai", "artificial-intelligence", "science", "space",
		"prediction",
	}},
	{"economics", []string{
		"economics", "economy", "finance", "financial", "stocks", "markets",
		"fed", "federal-reserve", "inflation", "gdp",
	}},
	{"entertainment", []string{
		"entertainment", "movies", "tv", "music", "oscars", "awards",
	}},
	{"world", []string{
		"world", "international", "geopolitics", "war", "conflict",
	}},
}

// Entity lexicons searched by substring against the original (unnormalized)
// event name. Multi-word entries join with underscores in the entity set.
var (
	politicians = []string{
		"trump", "biden", "vance", "desantis", "harris", "obama",
		"pence", "haley", "ramaswamy", "newsom", "ocasio-cortez", "aoc",
		"rubio", "cruz", "sanders", "warren", "pelosi", "mcconnell",
		"buttigieg", "booker", "klobuchar", "yang", "gabbard",
	}

	politicalTerms = []string{
		"president", "presidential", "election", "nomination", "nominee",
		"republican", "democrat", "gop", "dnc", "rnc",
		"senate", "house", "congress", "governor",
		"primary", "caucus", "midterm",
	}

	economicTerms = []string{
		"fed", "federal reserve", "interest rate", "rates", "bps",
		"inflation", "gdp", "recession", "tariff",
	}

	namedEvents = []string{
		"super bowl", "world series", "nba finals", "stanley cup",
		"oscars", "grammy", "emmy", "golden globe",
		"greenland", "ukraine", "russia", "china", "taiwan",
	}
)

var (
	yearRE       = regexp.MustCompile(`20\d{2}`)
	leadPrefixRE = regexp.MustCompile(`^(will |who will |what will |which )`)
	punctRE      = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
)
