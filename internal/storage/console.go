package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/pkg/types"
)

// ConsoleStorage implements Storage by printing the advisory text to the
// console. It is the default journal, useful when running locally without a
// database.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console journal.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-journal-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity prints the opportunity's formatted instruction text.
func (c *ConsoleStorage) StoreOpportunity(_ context.Context, opp *types.Opportunity) error {
	text := opp.FormattedText
	if text == "" {
		text = instructions.FormatOpportunity(opp)
	}

	fmt.Println("\n" + text)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-journal")
	return nil
}
