package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "helios",
	Short: "Helios - option signal scanner",
	Long: `Helios option signal scanner

Monte Carlo payoff probabilities, historical win rates and regime
forecasts blended into single-leg option signals, delivered over
Telegram.

Usage:
  go run ./cmd/helios [command]

Examples:
  go run ./cmd/helios analyze SPY
  go run ./cmd/helios scan
  go run ./cmd/helios api
  go run ./cmd/helios scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
