package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/helios/internal/scanner"
	"github.com/wonny/helios/pkg/logger"
)

// DailyScan sweeps the universe on the configured market-open
// schedule and dispatches any alerts that clear the gate
type DailyScan struct {
	scanner  *scanner.Scanner
	schedule string
	logger   *logger.Logger
}

// NewDailyScan creates the scan job. schedule is the six-field cron
// expression from config, typically weekday mornings shortly after
// the open.
func NewDailyScan(s *scanner.Scanner, schedule string, log *logger.Logger) *DailyScan {
	return &DailyScan{
		scanner:  s,
		schedule: schedule,
		logger:   log,
	}
}

func (j *DailyScan) Name() string     { return "daily_scan" }
func (j *DailyScan) Schedule() string { return j.schedule }

// Run executes one sweep. A sweep with per-symbol failures still
// succeeds as a job; only a sweep that could not run at all fails.
func (j *DailyScan) Run(ctx context.Context) error {
	summary, err := j.scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("daily scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"analyzed": summary.Analyzed,
		"alerted":  summary.Alerted,
		"failed":   summary.Failed,
		"duration": summary.Duration,
	}).Info("Daily scan finished")
	return nil
}
