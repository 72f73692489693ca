package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/helios/internal/scheduler"
	"github.com/wonny/helios/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the cron scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
  daily_scan    - universe sweep on the market-open schedule
  daily_summary - end-of-day alert recap

Subcommands:
  start   - start the scheduler daemon
  run     - trigger one job immediately
  status  - job execution statistics

Example:
  go run ./cmd/helios scheduler start
  go run ./cmd/helios scheduler run daily_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runSchedulerDaemon,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Trigger one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Job execution statistics",
		RunE:  showSchedulerStatus,
	}
)

// Summary posts after the close, well clear of the scan window
const summarySchedule = "0 15 16 * * 1-5"

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func initScheduler(ctx context.Context, connectFeed bool) (*scheduler.Scheduler, *app, error) {
	a, err := initApp(ctx, appOptions{connectFeed: connectFeed})
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.logger)

	if err := sched.Register(jobs.NewDailyScan(a.scanner, a.cfg.Scan.Schedule, a.logger)); err != nil {
		a.close()
		return nil, nil, fmt.Errorf("register daily_scan: %w", err)
	}
	if err := sched.Register(jobs.NewDailySummary(a.sender, a.tickets, summarySchedule, a.logger)); err != nil {
		a.close()
		return nil, nil, fmt.Errorf("register daily_summary: %w", err)
	}

	return sched, a, nil
}

func runSchedulerDaemon(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Helios Scheduler ===")

	sched, a, err := initScheduler(context.Background(), true)
	if err != nil {
		return err
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for name, stat := range sched.JobStats() {
		fmt.Printf("  - %-15s %s\n", name, stat.Schedule)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	sched, a, err := initScheduler(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := sched.TriggerNow(ctx, jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	for _, result := range mustHistory(sched, jobName) {
		state := "✅ success"
		if !result.Success {
			state = "❌ failed: " + result.Error
		}
		fmt.Printf("%s (%d attempt(s), %s)\n", state, result.Attempts, result.Duration.Round(time.Millisecond))
	}
	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(context.Background(), false)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for name, stat := range sched.JobStats() {
		fmt.Printf("📊 %s\n", name)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Failures: %d\n", stat.Failures)
		if stat.TotalRuns > 0 {
			fmt.Printf("   Success Rate: %.1f%%\n", stat.SuccessRate*100)
		}
		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}

	return nil
}

func mustHistory(sched *scheduler.Scheduler, jobName string) []scheduler.Result {
	history, err := sched.History(jobName)
	if err != nil {
		return nil
	}
	return history
}
