package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/helios/internal/notify"
	"github.com/wonny/helios/pkg/logger"
	"github.com/wonny/helios/pkg/redis"
)

// DailySummary posts an end-of-day recap: how many symbols alerted
// today. Skips the message entirely on quiet days.
type DailySummary struct {
	sender   notify.Sender
	tickets  *redis.TicketLog
	schedule string
	logger   *logger.Logger
}

// NewDailySummary creates the recap job, typically scheduled after
// the close
func NewDailySummary(sender notify.Sender, tickets *redis.TicketLog, schedule string, log *logger.Logger) *DailySummary {
	return &DailySummary{
		sender:   sender,
		tickets:  tickets,
		schedule: schedule,
		logger:   log,
	}
}

func (j *DailySummary) Name() string     { return "daily_summary" }
func (j *DailySummary) Schedule() string { return j.schedule }

func (j *DailySummary) Run(ctx context.Context) error {
	count, err := j.tickets.SentToday(ctx)
	if err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}

	if count == 0 {
		j.logger.Info("No alerts today, skipping summary")
		return nil
	}

	text := fmt.Sprintf("📊 HELIOS DAILY RECAP\n\n%d signal(s) dispatched today.", count)
	if err := j.sender.Send(ctx, text); err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}
	return nil
}
