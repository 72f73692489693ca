package notify

import (
	"context"
	"fmt"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/pkg/logger"
	"github.com/wonny/helios/pkg/redis"
)

// Sender abstracts the alert transport so the dispatcher can be
// tested without Telegram
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Dispatcher formats, dedups and sends alerts. At most one alert per
// symbol per calendar day goes out; repeats are dropped silently.
type Dispatcher struct {
	sender  Sender
	tickets *redis.TicketLog
	logger  *logger.Logger
}

// NewDispatcher wires the alert path
func NewDispatcher(sender Sender, tickets *redis.TicketLog, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		tickets: tickets,
		logger:  log,
	}
}

// Dispatch sends the alert for an analysis unless the symbol already
// alerted today. Returns whether a message went out.
func (d *Dispatcher) Dispatch(ctx context.Context, a contracts.Analysis) (bool, error) {
	hash := redis.TicketHash(
		a.Symbol,
		string(a.Strategy.Strategy),
		a.Strategy.StrikeTarget,
		a.Strategy.Expiry.Format("2006-01-02"),
	)

	fresh, err := d.tickets.MarkIfNew(ctx, a.Symbol, hash)
	if err != nil {
		return false, fmt.Errorf("dedup %s: %w", a.Symbol, err)
	}
	if !fresh {
		d.logger.WithField("symbol", a.Symbol).Debug("Alert already sent today, skipping")
		return false, nil
	}

	if err := d.sender.Send(ctx, FormatAlert(a)); err != nil {
		// Nothing was emitted, so the claimed ticket must not burn the
		// symbol's daily slot; free it for the next attempt
		if relErr := d.tickets.Release(ctx, a.Symbol); relErr != nil {
			d.logger.WithError(relErr).WithField("symbol", a.Symbol).Error("Ticket release failed")
		}
		return false, fmt.Errorf("send %s: %w", a.Symbol, err)
	}

	d.logger.WithFields(map[string]interface{}{
		"symbol": a.Symbol,
		"ticket": hash,
	}).Info("Alert dispatched")
	return true, nil
}
