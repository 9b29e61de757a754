package instructions

import (
	"strings"
	"testing"
	"time"

	"github.com/oddsintel/oddsintel/pkg/types"
)

func sampleArb() *types.Opportunity {
	return &types.Opportunity{
		Type:             types.OpportunityArbitrage,
		EventID:          "matched_lakers_celtics",
		EventName:        "Lakers @ Celtics",
		MarketType:       types.MarketTypeMoneyline,
		ProfitPct:        1.1108,
		ProfitUSD:        11.11,
		TotalStake:       1000.00,
		FeesUSD:          0,
		Risk:             types.RiskMedium,
		ExpiresInSeconds: 45,
		DetectedAt:       time.Now().UTC(),
		Instructions: []types.BetInstruction{
			{Step: 1, Venue: "draftkings", Outcome: "Los Angeles Lakers", StakeUSD: 481.48, OddsDecimal: 2.10, OddsAmerican: "+110", PotentialPayout: 1011.11},
			{Step: 2, Venue: "fanduel", Outcome: "Boston Celtics", StakeUSD: 518.52, OddsDecimal: 1.95, OddsAmerican: "-105", PotentialPayout: 1011.11},
		},
	}
}

func TestFormatOpportunity(t *testing.T) {
	text := FormatOpportunity(sampleArb())
	lines := strings.Split(text, "\n")

	want := []string{
		"ARBITRAGE OPPORTUNITY - Lakers @ Celtics",
		"Market: Moneyline",
		"",
		"Guaranteed Profit: $11.11 (1.11%)",
		"Risk: MEDIUM | Expires in ~45 seconds",
		"",
		"INSTRUCTIONS:",
		"1. Bet $481.48 on Los Angeles Lakers at Draftkings (+110)",
		"2. Bet $518.52 on Boston Celtics at Fanduel (-105)",
		"",
		"Total Stake: $1000.00",
		"Guaranteed Payout: $1011.11",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), text)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\nexpected %q\ngot      %q", i, want[i], lines[i])
		}
	}
}

func TestFormatOpportunityEV(t *testing.T) {
	opp := sampleArb()
	opp.Type = types.OpportunityEV
	opp.FeesUSD = 1.25

	text := FormatOpportunity(opp)

	if !strings.Contains(text, "EV OPPORTUNITY - Lakers @ Celtics") {
		t.Errorf("expected EV header, got:\n%s", text)
	}
	if !strings.Contains(text, "Expected Value: $11.11 (1.11%)") {
		t.Errorf("expected EV profit line, got:\n%s", text)
	}
	if strings.Contains(text, "Guaranteed Payout") {
		t.Error("EV opportunities must not promise a guaranteed payout")
	}
	if !strings.Contains(text, "Fees: $1.25") {
		t.Errorf("expected fees line, got:\n%s", text)
	}
}

func TestFormatOpportunityShort(t *testing.T) {
	got := FormatOpportunityShort(sampleArb())
	want := "ARB +1.11% | Lakers @ Celtics | Draftkings/Fanduel"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatOpportunitiesTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := FormatOpportunitiesTable(nil); got != "No opportunities found." {
			t.Errorf("expected empty message, got %q", got)
		}
	})

	t.Run("rows", func(t *testing.T) {
		long := sampleArb()
		long.EventName = "An extremely long event name that will certainly not fit the column"

		table := FormatOpportunitiesTable([]types.Opportunity{*sampleArb(), *long})
		lines := strings.Split(table, "\n")

		if len(lines) != 4 {
			t.Fatalf("expected header, divider and 2 rows, got %d lines:\n%s", len(lines), table)
		}
		if !strings.HasPrefix(lines[0], "Type  Profit   Event") {
			t.Errorf("unexpected header: %q", lines[0])
		}
		if !strings.HasPrefix(lines[2], "ARB     1.11% Lakers @ Celtics") {
			t.Errorf("unexpected row: %q", lines[2])
		}
		if !strings.Contains(lines[3], "An extremely long event name that will..") {
			t.Errorf("expected truncated event name, got %q", lines[3])
		}
	})

	t.Run("caps-at-twenty", func(t *testing.T) {
		var opps []types.Opportunity
		for i := 0; i < 30; i++ {
			opps = append(opps, *sampleArb())
		}
		table := FormatOpportunitiesTable(opps)
		if got := len(strings.Split(table, "\n")); got != 22 {
			t.Errorf("expected 22 lines (header + divider + 20 rows), got %d", got)
		}
	})
}

func TestDisclaimer(t *testing.T) {
	d := Disclaimer()
	if !strings.HasPrefix(d, "DISCLAIMER: This is advisory information only.") {
		t.Errorf("unexpected disclaimer start: %q", d)
	}
	if !strings.HasSuffix(d, "Gamble responsibly.") {
		t.Errorf("unexpected disclaimer end: %q", d)
	}
}

func TestTitleize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"draftkings", "Draftkings"},
		{"the_odds_api", "The_Odds_Api"},
		{"betMGM", "Betmgm"},
		{"moneyline", "Moneyline"},
	}

	for _, tt := range tests {
		if got := titleize(tt.in); got != tt.want {
			t.Errorf("titleize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
