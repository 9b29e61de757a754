package cmd

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oddsintel/oddsintel/internal/app"
	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/pkg/config"
	"github.com/oddsintel/oddsintel/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	scanJSON  bool
	scanStake float64
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan across all enabled venues",
	Long: `Fetches current odds from every enabled venue once, matches events
across venues, and prints any arbitrage or positive-EV opportunities with
sized bet instructions.

Advisory output only: nothing is executed, and every finding expires with
the odds it was computed from.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit opportunities as a JSON array")
	scanCmd.Flags().Float64Var(&scanStake, "stake", 0, "Override DEFAULT_STAKE_USD for sizing")
}

func runScan(cmd *cobra.Command, args []string) error {
	// Load .env
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// One-shot scans print findings; journaling belongs to the service loop.
	cfg.StorageMode = "none"

	if cmd.Flags().Changed("stake") {
		if scanStake <= 0 {
			return fmt.Errorf("stake must be positive, got %.2f", scanStake)
		}
		cfg.DefaultStakeUSD = scanStake
	}

	// Create logger
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	result := application.ScanOnce(context.Background())

	out, err := renderScanResult(result, scanJSON)
	if err != nil {
		return err
	}
	fmt.Print(out)

	return nil
}

// renderScanResult formats a scan result for the terminal: a summary line,
// the opportunity table, per-opportunity instructions, and the disclaimer.
// JSON mode emits the opportunity array in the wire shape instead.
func renderScanResult(result *types.ScanResult, asJSON bool) (string, error) {
	if asJSON {
		opps := result.Opportunities
		if opps == nil {
			opps = []types.Opportunity{}
		}
		out, err := json.MarshalIndent(opps, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal opportunities: %w", err)
		}
		return string(out) + "\n", nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Scanned %d markets in %.0fms: %d opportunities\n\n",
		result.MarketsScanned, result.ScanDurationMS, len(result.Opportunities))

	if len(result.Opportunities) > 0 {
		b.WriteString(instructions.FormatOpportunitiesTable(result.Opportunities))
		b.WriteString("\n")

		for i := range result.Opportunities {
			b.WriteString(result.Opportunities[i].FormattedText)
			b.WriteString("\n\n")
		}
	}

	b.WriteString(instructions.Disclaimer())
	b.WriteString("\n")

	return b.String(), nil
}
