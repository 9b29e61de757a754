package storage

import (
	"context"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// Storage is a write-only journal for detected opportunities. The scan
// pipeline never reads journaled rows back; each cycle detects from live
// prices only.
type Storage interface {
	// StoreOpportunity journals one newly detected opportunity.
	StoreOpportunity(ctx context.Context, opp *types.Opportunity) error

	// Close releases the underlying connection.
	Close() error
}
