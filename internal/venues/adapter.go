package venues

import (
	"context"
	"math"
	"time"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// Adapter fetches the currently tradable markets from one venue. Fetch
// returns an empty slice alongside the error when the venue is unavailable;
// a malformed record drops only that record, never the whole fetch.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]types.Market, error)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// parseTimestamp parses an RFC 3339 timestamp, returning nil when absent or
// malformed. Venue start times are advisory.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	utc := t.UTC()

	return &utc
}
