package instructions

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/oddsintel/oddsintel/pkg/types"
)

const disclaimer = `DISCLAIMER: This is advisory information only. No bets are placed automatically.
All betting decisions and executions must be made by you. Past opportunities
do not guarantee future results. Odds can change rapidly. Always verify
current odds before placing any bets. Gamble responsibly.`

// Disclaimer returns the advisory text that must accompany every
// user-facing output.
func Disclaimer() string {
	return disclaimer
}

// FormatOpportunity renders an opportunity as step-by-step instructions a
// human can execute:
//
//	ARBITRAGE OPPORTUNITY - Lakers @ Celtics
//	Market: Moneyline
//
//	Guaranteed Profit: $11.11 (1.11%)
//	Risk: MEDIUM | Expires in ~45 seconds
//
//	INSTRUCTIONS:
//	1. Bet $481.48 on Los Angeles Lakers at Draftkings (+110)
//	2. Bet $518.52 on Boston Celtics at Fanduel (-105)
//
//	Total Stake: $1000.00
//	Guaranteed Payout: $1011.11
func FormatOpportunity(opp *types.Opportunity) string {
	var lines []string

	oppType := strings.ReplaceAll(string(opp.Type), "_", " ")
	lines = append(lines, fmt.Sprintf("%s OPPORTUNITY - %s", oppType, opp.EventName))
	lines = append(lines, fmt.Sprintf("Market: %s", titleize(string(opp.MarketType))))
	lines = append(lines, "")

	if opp.Type == types.OpportunityArbitrage {
		lines = append(lines, fmt.Sprintf("Guaranteed Profit: $%.2f (%.2f%%)", opp.ProfitUSD, opp.ProfitPct))
	} else {
		lines = append(lines, fmt.Sprintf("Expected Value: $%.2f (%.2f%%)", opp.ProfitUSD, opp.ProfitPct))
	}

	lines = append(lines, fmt.Sprintf("Risk: %s | Expires in ~%d seconds", opp.Risk, opp.ExpiresInSeconds))
	lines = append(lines, "")

	lines = append(lines, "INSTRUCTIONS:")
	for i, inst := range opp.Instructions {
		lines = append(lines, FormatInstruction(inst, i+1))
	}
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("Total Stake: $%.2f", opp.TotalStake))

	if opp.Type == types.OpportunityArbitrage {
		payout := opp.TotalStake + opp.ProfitUSD + opp.FeesUSD
		lines = append(lines, fmt.Sprintf("Guaranteed Payout: $%.2f", payout))
	}

	if opp.FeesUSD > 0 {
		lines = append(lines, fmt.Sprintf("Fees: $%.2f", opp.FeesUSD))
	}

	return strings.Join(lines, "\n")
}

// FormatInstruction renders one bet leg:
// "1. Bet $481.48 on Los Angeles Lakers at Draftkings (+110)".
func FormatInstruction(inst types.BetInstruction, step int) string {
	venue := strings.ReplaceAll(titleize(inst.Venue), "_", " ")

	return fmt.Sprintf("%d. Bet $%.2f on %s at %s (%s)",
		step, inst.StakeUSD, inst.Outcome, venue, inst.OddsAmerican)
}

// FormatOpportunityShort renders a one-line summary:
// "ARB +1.11% | Lakers @ Celtics | Draftkings/Fanduel".
func FormatOpportunityShort(opp *types.Opportunity) string {
	seen := make(map[string]bool)
	var venues []string
	for _, inst := range opp.Instructions {
		v := titleize(inst.Venue)
		if !seen[v] {
			seen[v] = true
			venues = append(venues, v)
		}
	}

	return fmt.Sprintf("%s +%.2f%% | %s | %s",
		shortType(opp.Type), opp.ProfitPct, opp.EventName, strings.Join(venues, "/"))
}

// FormatOpportunitiesTable renders up to 20 opportunities as an ASCII table
// for terminal output.
func FormatOpportunitiesTable(opps []types.Opportunity) string {
	if len(opps) == 0 {
		return "No opportunities found."
	}

	header := fmt.Sprintf("%-5s %-8s %-40s %-6s %s", "Type", "Profit", "Event", "Risk", "Venues")
	lines := []string{header, strings.Repeat("-", len(header))}

	limit := len(opps)
	if limit > 20 {
		limit = 20
	}
	for i := 0; i < limit; i++ {
		opp := &opps[i]

		seen := make(map[string]bool)
		var venues []string
		for _, inst := range opp.Instructions {
			v := inst.Venue
			if len(v) > 10 {
				v = v[:10]
			}
			if !seen[v] {
				seen[v] = true
				venues = append(venues, v)
			}
		}

		event := opp.EventName
		if len(event) > 40 {
			event = event[:38] + ".."
		}

		lines = append(lines, fmt.Sprintf("%-5s %6.2f%% %-40s %-6s %s",
			shortType(opp.Type), opp.ProfitPct, event, opp.Risk, strings.Join(venues, "/")))
	}

	return strings.Join(lines, "\n")
}

func shortType(t types.OpportunityType) string {
	s := string(t)
	if len(s) > 3 {
		return s[:3]
	}

	return s
}

// titleize uppercases the first letter of each word and lowercases the rest,
// so venue identifiers read as names: "draftkings" -> "Draftkings".
func titleize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}

	return b.String()
}
