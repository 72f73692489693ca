package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the configured universe once",
	Long: `Analyzes every symbol in SCAN_UNIVERSE, dispatches alerts for
signals above the probability gate and prints the sweep summary.

Alerts go to Telegram when TELEGRAM_ENABLED=true, to stdout otherwise.
Each symbol alerts at most once per calendar day.

Example:
  go run ./cmd/helios scan`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Helios Universe Scan ===")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	a, err := initApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Universe: %v\n", a.cfg.Scan.Universe)
	fmt.Printf("Gate: %.0f%% | Offset: %.1f%% | Expiry: %dd\n\n",
		a.cfg.Scan.MinProbability, a.cfg.Scan.StrikeOffsetPct, a.cfg.Scan.DaysToExpiry)

	summary, err := a.scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	fmt.Println("\n📊 Sweep Summary")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-15s %10d\n", "Analyzed:", summary.Analyzed)
	fmt.Printf("%-15s %10d\n", "Alerted:", summary.Alerted)
	fmt.Printf("%-15s %10d\n", "Below gate:", summary.BelowGate)
	fmt.Printf("%-15s %10d\n", "Duplicates:", summary.Duplicates)
	fmt.Printf("%-15s %10d\n", "Failed:", summary.Failed)
	fmt.Printf("%-15s %10s\n", "Duration:", summary.Duration.Round(time.Millisecond))

	return nil
}
