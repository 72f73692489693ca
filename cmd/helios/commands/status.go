package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Long: `Checks the wired services and shows today's activity:

- configuration summary (universe, gate, schedule)
- Redis and database connectivity
- alerts sent today and recent stored recommendations

Example:
  go run ./cmd/helios status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Helios Status ===")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := initApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println("\n⚙️  Configuration")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-15s %s\n", "Env:", a.cfg.Env)
	fmt.Printf("%-15s %v\n", "Universe:", a.cfg.Scan.Universe)
	fmt.Printf("%-15s %.0f%%\n", "Gate:", a.cfg.Scan.MinProbability)
	fmt.Printf("%-15s %s\n", "Schedule:", a.cfg.Scan.Schedule)
	fmt.Printf("%-15s %v\n", "Telegram:", a.cfg.Telegram.Enabled)

	fmt.Println("\n🔌 Services")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if a.redis.Enabled() {
		fmt.Printf("%-15s connected\n", "Redis:")
	} else {
		fmt.Printf("%-15s disabled (in-memory dedup)\n", "Redis:")
	}

	if a.db != nil {
		health, err := a.db.HealthCheck(ctx)
		if err != nil {
			fmt.Printf("%-15s ❌ %s\n", "Database:", health.Error)
		} else {
			fmt.Printf("%-15s healthy (%s, %d/%d conns)\n", "Database:",
				health.ResponseTime.Round(time.Millisecond),
				health.Stats.TotalConns, health.Stats.MaxConns)
		}
	} else {
		fmt.Printf("%-15s disabled\n", "Database:")
	}

	fmt.Println("\n📈 Activity")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if sent, err := a.tickets.SentToday(ctx); err == nil {
		fmt.Printf("%-15s %d\n", "Alerts today:", sent)
	}

	if a.repo != nil {
		if count, err := a.repo.CountToday(ctx); err == nil {
			fmt.Printf("%-15s %d\n", "Stored today:", count)
		}

		recs, err := a.repo.ListRecent(ctx, "", 5)
		if err == nil && len(recs) > 0 {
			fmt.Println("\nRecent recommendations:")
			for _, rec := range recs {
				fmt.Printf("  %-6s %-10s strike %.2f  %.1f%%  %s\n",
					rec.Symbol, rec.Strategy, rec.Strike,
					rec.FinalProbability, rec.SentAt.Format("01-02 15:04"))
			}
		}
	}

	fmt.Println()
	return nil
}
