package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "oddsintel",
	Short: "Cross-market odds intelligence engine",
	Long: `Odds intelligence engine that scans prediction markets and sportsbooks,
matches the same real-world event across venues, and reports arbitrage and
positive expected value opportunities.

All output is advisory: the engine sizes and formats bet instructions but
never places a bet. Odds move fast - verify prices at the venue before
acting on anything it prints.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
