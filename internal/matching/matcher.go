package matching

import (
	"strings"

	"github.com/oddsintel/oddsintel/pkg/types"
	"go.uber.org/zap"
)

// DefaultThreshold is the similarity score two event names must reach before
// their markets are considered the same event.
const DefaultThreshold = 0.45

// EventGroup is a canonical event key plus the markets grouped under it.
// Groups come out in a deterministic order: merged cross-venue groups in seed
// order first, then unmatched markets under their original event IDs in
// first-appearance order.
type EventGroup struct {
	Key     string
	Markets []types.Market
}

// Matcher groups markets that describe the same real-world event across
// venues.
type Matcher struct {
	threshold float64
	logger    *zap.Logger
}

// Config holds matcher configuration.
type Config struct {
	Threshold float64
	Logger    *zap.Logger
}

// New creates a matcher. A zero threshold falls back to DefaultThreshold.
func New(cfg Config) *Matcher {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{threshold: threshold, logger: logger}
}

// Match reports whether two markets describe the same event. Markets from
// overlapping venues never match; categories and outcome shapes must be
// compatible; and the event names must clear the similarity threshold.
func (m *Matcher) Match(m1, m2 *types.Market) bool {
	ComparisonsTotal.Inc()

	for venue := range m1.Venues() {
		if _, ok := m2.Venues()[venue]; ok {
			return false
		}
	}

	if !categoriesMatch(m1.Sport, m2.Sport) {
		return false
	}

	if !outcomesCompatible(m1, m2) {
		return false
	}

	return Similarity(m1.EventName, m2.EventName) >= m.threshold
}

// outcomesCompatible rejects pairings that cannot hedge each other: a binary
// Yes/No market only pairs with another binary market, and named-outcome
// markets need at least one cross-pair of names with substring containment.
func outcomesCompatible(m1, m2 *types.Market) bool {
	binary1 := m1.IsBinary()
	binary2 := m2.IsBinary()

	if binary1 && binary2 {
		return true
	}
	if binary1 != binary2 {
		return false
	}

	for i := range m1.Outcomes {
		n1 := strings.ToLower(m1.Outcomes[i].Name)
		for j := range m2.Outcomes {
			n2 := strings.ToLower(m2.Outcomes[j].Name)
			if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
				return true
			}
		}
	}

	return false
}

// Group partitions markets into event groups. The pass is greedy in input
// order: each unclaimed market seeds a group, and every later unclaimed
// market joins if it matches any current member. Cross-venue groups publish
// under a canonical matched_ key; everything else keeps its original event
// ID. When keys collide the first occurrence wins.
func (m *Matcher) Group(markets []types.Market) []EventGroup {
	// Original event_id groups, first-appearance order.
	byEventID := make(map[string][]int, len(markets))
	eventIDOrder := make([]string, 0, len(markets))
	for i := range markets {
		id := markets[i].EventID
		if _, seen := byEventID[id]; !seen {
			eventIDOrder = append(eventIDOrder, id)
		}
		byEventID[id] = append(byEventID[id], i)
	}

	claimed := make([]bool, len(markets))
	var mergedGroups [][]int
	for i := range markets {
		if claimed[i] {
			continue
		}
		group := []int{i}
		claimed[i] = true

		for j := i + 1; j < len(markets); j++ {
			if claimed[j] {
				continue
			}
			for _, member := range group {
				if m.Match(&markets[member], &markets[j]) {
					group = append(group, j)
					claimed[j] = true
					break
				}
			}
		}

		if len(group) > 1 {
			mergedGroups = append(mergedGroups, group)
		}
	}

	out := make([]EventGroup, 0, len(eventIDOrder))
	usedKeys := make(map[string]bool)
	published := make(map[int]bool)

	for _, group := range mergedGroups {
		venues := make(map[string]struct{})
		for _, idx := range group {
			for v := range markets[idx].Venues() {
				venues[v] = struct{}{}
			}
		}
		key := canonicalKey(markets, group)
		// A colliding or single-venue group is not published; its markets
		// fall back to their original event ID keys below.
		if len(venues) < 2 || usedKeys[key] {
			continue
		}
		usedKeys[key] = true

		members := make([]types.Market, 0, len(group))
		for _, idx := range group {
			published[idx] = true
			members = append(members, markets[idx])
		}
		out = append(out, EventGroup{Key: key, Markets: members})
		MergedGroupsTotal.Inc()

		m.logger.Debug("markets-matched-across-venues",
			zap.String("key", key),
			zap.Int("markets", len(members)),
			zap.Int("venues", len(venues)))
	}

	for _, eventID := range eventIDOrder {
		idxs := byEventID[eventID]
		absorbed := false
		for _, idx := range idxs {
			if published[idx] {
				absorbed = true
				break
			}
		}
		if absorbed || usedKeys[eventID] {
			continue
		}
		usedKeys[eventID] = true

		members := make([]types.Market, 0, len(idxs))
		for _, idx := range idxs {
			members = append(members, markets[idx])
		}
		out = append(out, EventGroup{Key: eventID, Markets: members})
	}

	return out
}

// canonicalKey derives the published key for a merged group from the longest
// member event name: "matched_" plus its first five normalized words. The
// longest name is the most descriptive and keeps keys stable across scans.
func canonicalKey(markets []types.Market, group []int) string {
	best := markets[group[0]].EventName
	for _, idx := range group[1:] {
		if len(markets[idx].EventName) > len(best) {
			best = markets[idx].EventName
		}
	}

	words := strings.Fields(normalizeText(best))
	if len(words) > 5 {
		words = words[:5]
	}

	return "matched_" + strings.Join(words, "_")
}
