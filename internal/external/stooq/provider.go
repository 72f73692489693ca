package stooq

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/internal/signals"
	"github.com/wonny/helios/pkg/logger"
	"github.com/wonny/helios/pkg/redis"
)

// Trailing window for the realized-vol proxy
const volWindow = 20

// DefaultHistoryBars bounds how much history a snapshot carries
const DefaultHistoryBars = 252

// Live websocket prices older than this fall back to the scrape path
const liveMaxAge = 2 * time.Minute

// LivePriceSource serves recent trade prints, typically the realtime
// websocket feed
type LivePriceSource interface {
	FreshPrice(symbol string, maxAge time.Duration) (float64, bool)
}

// Provider assembles MarketSnapshots from the Stooq history with a
// Finviz price fallback. Calls are rate limited and run through a
// circuit breaker so one dead upstream does not stall a whole scan.
type Provider struct {
	stooq       *Client
	finviz      *FinvizClient
	live        LivePriceSource
	cache       *redis.Cache
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *logger.Logger
	historyBars int
	now         func() time.Time
}

// NewProvider wires the provider. finviz and cache may be nil; the
// fallback and caching are then skipped.
func NewProvider(stooqClient *Client, finviz *FinvizClient, cache *redis.Cache, log *logger.Logger) *Provider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stooq",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Provider{
		stooq:       stooqClient,
		finviz:      finviz,
		cache:       cache,
		limiter:     rate.NewLimiter(rate.Limit(5), 5), // Stooq tolerates ~5 req/s
		breaker:     breaker,
		logger:      log,
		historyBars: DefaultHistoryBars,
		now:         time.Now,
	}
}

// WithLiveSource attaches a realtime price source consulted before the
// Finviz scrape
func (p *Provider) WithLiveSource(live LivePriceSource) *Provider {
	p.live = live
	return p
}

// Snapshot fetches the daily history and current price for a symbol.
// The daily history is cached per calendar day; realized volatility is
// the trailing 20-day annualized return std.
func (p *Provider) Snapshot(ctx context.Context, symbol string) (contracts.MarketSnapshot, error) {
	var snapshot contracts.MarketSnapshot

	if symbol == "" {
		return snapshot, fmt.Errorf("%w: empty symbol", contracts.ErrInvalidInput)
	}

	asOf := p.now().UTC()
	bars, err := p.dailyBars(ctx, symbol, asOf)
	if err != nil {
		return snapshot, err
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	currentPrice := closes[len(closes)-1]

	// The last daily close goes stale intraday. A fresh websocket
	// print wins outright; otherwise a live Finviz quote is tried, and
	// scrape failure falls back to the close.
	gotLive := false
	if p.live != nil {
		if price, ok := p.live.FreshPrice(symbol, liveMaxAge); ok {
			currentPrice = price
			gotLive = true
		}
	}
	if !gotLive && p.finviz != nil && bars[len(bars)-1].Date.Before(truncateDay(asOf)) {
		if live, err := p.finviz.FetchPrice(ctx, symbol); err == nil {
			currentPrice = live
		} else {
			p.logger.WithError(err).WithField("symbol", symbol).Warn("Finviz fallback failed, using last close")
		}
	}

	snapshot = contracts.MarketSnapshot{
		Symbol:             symbol,
		CurrentPrice:       currentPrice,
		RealizedVolatility: signals.RealizedVolatility(closes, volWindow),
		HistoricalCloses:   closes,
		AsOf:               asOf,
	}

	if err := snapshot.Validate(); err != nil {
		return contracts.MarketSnapshot{}, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	return snapshot, nil
}

// dailyBars returns the trailing history, from cache when today's
// fetch already happened
func (p *Provider) dailyBars(ctx context.Context, symbol string, asOf time.Time) ([]Bar, error) {
	cacheKey := redis.HistoryKey(symbol, asOf.Format("2006-01-02"))

	if p.cache != nil {
		var cached []Bar
		if hit, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && hit && len(cached) > 0 {
			return cached, nil
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fetched, err := p.breaker.Execute(func() (interface{}, error) {
		return p.stooq.FetchDaily(ctx, symbol)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: stooq circuit open for %s", contracts.ErrUpstream, symbol)
		}
		return nil, err
	}

	bars := fetched.([]Bar)
	if len(bars) > p.historyBars {
		bars = bars[len(bars)-p.historyBars:]
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, cacheKey, bars, redis.TTLDaily); err != nil {
			p.logger.WithError(err).Warn("History cache write failed")
		}
	}
	return bars, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
