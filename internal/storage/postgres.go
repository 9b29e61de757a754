package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// createOpportunitiesTable runs at startup so a fresh database needs no
// migration step before the journal can write.
const createOpportunitiesTable = `
CREATE TABLE IF NOT EXISTS opportunities (
	id UUID PRIMARY KEY,
	type TEXT NOT NULL,
	event_id TEXT NOT NULL,
	event_name TEXT NOT NULL,
	market_type TEXT NOT NULL,
	profit_pct DOUBLE PRECISION NOT NULL,
	profit_usd DOUBLE PRECISION NOT NULL,
	total_stake DOUBLE PRECISION NOT NULL,
	fees_usd DOUBLE PRECISION NOT NULL,
	risk TEXT NOT NULL,
	expires_in_seconds INTEGER NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL,
	instructions JSONB NOT NULL
)`

const insertOpportunity = `
INSERT INTO opportunities (
	id, type, event_id, event_name, market_type,
	profit_pct, profit_usd, total_stake, fees_usd,
	risk, expires_in_seconds, detected_at, instructions
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds journal database configuration.
type PostgresConfig struct {
	DSN    string
	Logger *zap.Logger
}

// NewPostgresStorage opens the journal database, verifies the connection and
// creates the opportunities table when missing.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(createOpportunitiesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create opportunities table: %w", err)
	}

	logger.Info("postgres-journal-connected")

	return &PostgresStorage{
		db:     db,
		logger: logger,
	}, nil
}

// StoreOpportunity journals an opportunity with its instruction legs as
// JSONB.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *types.Opportunity) error {
	instructions, err := json.Marshal(opp.Instructions)
	if err != nil {
		return fmt.Errorf("marshal instructions: %w", err)
	}

	_, err = p.db.ExecContext(ctx, insertOpportunity,
		uuid.New().String(),
		string(opp.Type),
		opp.EventID,
		opp.EventName,
		string(opp.MarketType),
		opp.ProfitPct,
		opp.ProfitUSD,
		opp.TotalStake,
		opp.FeesUSD,
		string(opp.Risk),
		opp.ExpiresInSeconds,
		opp.DetectedAt,
		instructions,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-journaled",
		zap.String("type", string(opp.Type)),
		zap.String("event_id", opp.EventID),
		zap.Float64("profit_pct", opp.ProfitPct))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-journal")
	return p.db.Close()
}
