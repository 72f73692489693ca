package commands

import (
	"context"
	"fmt"

	"github.com/wonny/helios/internal/backtest"
	"github.com/wonny/helios/internal/blend"
	"github.com/wonny/helios/internal/brain"
	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/internal/external/finnhub"
	"github.com/wonny/helios/internal/external/stooq"
	"github.com/wonny/helios/internal/notify"
	"github.com/wonny/helios/internal/pricing"
	"github.com/wonny/helios/internal/scanner"
	"github.com/wonny/helios/internal/store"
	"github.com/wonny/helios/internal/strategy"
	"github.com/wonny/helios/pkg/config"
	"github.com/wonny/helios/pkg/database"
	"github.com/wonny/helios/pkg/httputil"
	"github.com/wonny/helios/pkg/logger"
	"github.com/wonny/helios/pkg/redis"
)

// app holds the wired dependency graph shared by the CLI commands
type app struct {
	cfg    *config.Config
	logger *logger.Logger

	db      *database.DB  // nil when DB_ENABLED=false
	redis   *redis.Client // disabled no-op client when REDIS_ENABLED=false
	feed    *finnhub.Feed // nil without an API key
	tickets *redis.TicketLog

	provider     *stooq.Provider
	orchestrator *brain.Orchestrator
	sender       notify.Sender
	dispatcher   *notify.Dispatcher
	scanner      *scanner.Scanner
	repo         *store.Repository // nil when DB disabled
}

type appOptions struct {
	// Realtime feed is only worth connecting for long-running
	// processes; one-shot commands skip the dial
	connectFeed bool
}

// initApp builds the full pipeline from config
// ⭐ SSOT: dependency wiring lives in this function and nowhere else
func initApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	a := &app{cfg: cfg, logger: log}

	// Redis (cache + dedup). A disabled client degrades to in-memory
	// dedup and no history cache.
	if cfg.Redis.Enabled {
		a.redis, err = redis.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	} else {
		a.redis = redis.NewDisabled()
	}
	a.tickets = redis.NewTicketLog(a.redis, "helios")

	// Database (recommendation history), optional
	if cfg.Database.Enabled {
		a.db, err = database.New(cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.repo = store.NewRepository(a.db.Pool)
		if err := a.repo.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	httpClient := httputil.New(log)

	// Market data: Stooq history + Finviz live quote fallback
	stooqClient := stooq.NewClient(httpClient, log, cfg.Stooq.BaseURL)
	finvizClient := stooq.NewFinvizClient(httpClient, log, cfg.Finviz.BaseURL)
	a.provider = stooq.NewProvider(stooqClient, finvizClient, redis.NewCache(a.redis, "helios"), log)

	// Realtime trade feed, preferred price source when fresh
	if cfg.Finnhub.APIKey != "" && opts.connectFeed {
		a.feed = finnhub.NewFeed(cfg.Finnhub.APIKey, cfg.Finnhub.WSURL, log)
		if err := a.feed.Connect(ctx); err != nil {
			log.WithError(err).Warn("Realtime feed unavailable, continuing with daily data")
			a.feed = nil
		} else {
			if err := a.feed.Subscribe(cfg.Scan.Universe...); err != nil {
				log.WithError(err).Warn("Realtime subscribe failed")
			}
			a.provider.WithLiveSource(a.feed)
		}
	}

	// Analysis pipeline
	estimator := pricing.New(pricing.Config{})
	a.orchestrator = brain.New(
		brain.Config{
			MinDaysToExpiry: cfg.Scan.MinDaysToExpiry,
			MaxDaysToExpiry: cfg.Scan.MaxDaysToExpiry,
			NumPaths:        cfg.Estimator.NumPaths,
			RiskFreeRate:    cfg.Estimator.RiskFreeRate,
		},
		estimator,
		backtest.New(backtest.DefaultStride),
		// Sentiment has no real upstream yet; it reports neutral
		// rather than a fabricated number
		blend.New(blend.Weights{}, blend.Thresholds{}).
			WithSignals(contracts.NeutralSignal{SourceName: "sentiment"}),
		strategy.New(),
	)

	// Alerts: Telegram when enabled, stdout otherwise
	a.sender = notify.ConsoleSender{}
	if cfg.Telegram.Enabled {
		// Telegram gets its own client so its 1 msg/s budget never
		// throttles data fetches
		tgClient := httputil.New(log).
			WithRateLimiter(redis.NewRateLimiter(a.redis, "helios"), redis.TelegramRateLimit)
		a.sender = notify.NewTelegramSender(tgClient, log, cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	a.dispatcher = notify.NewDispatcher(a.sender, a.tickets, log)

	// Avoid a typed-nil store behind the interface
	var recStore scanner.RecommendationStore
	if a.repo != nil {
		recStore = a.repo
	}

	a.scanner = scanner.New(
		scanner.Config{
			Universe:        cfg.Scan.Universe,
			MinProbability:  cfg.Scan.MinProbability,
			StrikeOffsetPct: cfg.Scan.StrikeOffsetPct,
			DaysToExpiry:    cfg.Scan.DaysToExpiry,
		},
		a.provider, a.orchestrator, a.dispatcher, recStore, log,
	)

	return a, nil
}

// close releases connections in reverse wiring order
func (a *app) close() {
	if a.feed != nil {
		_ = a.feed.Disconnect()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
