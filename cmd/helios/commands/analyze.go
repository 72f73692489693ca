package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/helios/internal/notify"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Run the full pipeline for one symbol",
	Long: `Runs the complete analysis pipeline for one symbol:
market snapshot → Monte Carlo estimate → historical backtest →
technical signal → blended score → regime forecast → strategy.

Both contract sides (put below spot, call above) are analyzed and the
higher-probability side is reported.

Example:
  go run ./cmd/helios analyze SPY
  go run ./cmd/helios analyze AAPL --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeJSON bool

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw analysis as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := initApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	analysis, err := a.scanner.ScanSymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", symbol, err)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Println(notify.FormatAlert(analysis))
	return nil
}
