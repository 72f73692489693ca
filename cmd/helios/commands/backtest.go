package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/helios/internal/backtest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest [symbol]",
	Short: "Run the historical strike rule over one symbol",
	Long: `Fetches the daily close history and replays the fixed-offset
strike rule: enter every N bars, win when the exit close satisfies the
rule against the offset strike.

Rules:
  stay_above  - exit close above strike (put seller framing)
  stay_below  - exit close below strike (call seller framing)
  stay_within - exit close inside the offset band both ways

Example:
  go run ./cmd/helios backtest SPY
  go run ./cmd/helios backtest AAPL --rule stay_below --offset 5 --days 21`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

var (
	backtestRule   string
	backtestOffset float64
	backtestDays   int
	backtestStride int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestRule, "rule", "stay_above", "win rule (stay_above|stay_below|stay_within)")
	backtestCmd.Flags().Float64Var(&backtestOffset, "offset", 4, "strike offset in percent")
	backtestCmd.Flags().IntVar(&backtestDays, "days", 30, "holding period in bars")
	backtestCmd.Flags().IntVar(&backtestStride, "stride", backtest.DefaultStride, "bars between entries")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	rule, err := parseRule(backtestRule)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := initApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	snapshot, err := a.provider.Snapshot(ctx, symbol)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", symbol, err)
	}

	engine := backtest.New(backtestStride)
	result, err := engine.Run(snapshot.HistoricalCloses, rule, backtestOffset, backtestDays)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", symbol, err)
	}

	fmt.Printf("=== Backtest %s ===\n", symbol)
	fmt.Printf("Rule: %s | Offset: %.1f%% | Hold: %d bars | Stride: %d\n",
		rule, backtestOffset, backtestDays, backtestStride)
	fmt.Printf("History: %d closes\n\n", len(snapshot.HistoricalCloses))

	if result.InsufficientData {
		fmt.Println("⚠️  Not enough history for a single trade")
		return nil
	}

	fmt.Printf("%-15s %10d\n", "Trades:", result.TotalTrades)
	fmt.Printf("%-15s %10d\n", "Wins:", result.Wins)
	fmt.Printf("%-15s %9.1f%%\n", "Win rate:", result.WinRate)

	return nil
}

func parseRule(s string) (backtest.Rule, error) {
	switch s {
	case "stay_above":
		return backtest.RuleStayAbove, nil
	case "stay_below":
		return backtest.RuleStayBelow, nil
	case "stay_within":
		return backtest.RuleStayWithin, nil
	default:
		return 0, fmt.Errorf("unknown rule %q (valid: stay_above, stay_below, stay_within)", s)
	}
}
