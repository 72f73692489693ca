package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/pkg/logger"
)

// MarketDataProvider supplies the snapshot for one symbol
type MarketDataProvider interface {
	Snapshot(ctx context.Context, symbol string) (contracts.MarketSnapshot, error)
}

// Analyzer runs the analysis pipeline over one snapshot
type Analyzer interface {
	Analyze(ctx context.Context, snapshot contracts.MarketSnapshot, contract contracts.OptionContract) (contracts.Analysis, error)
}

// AlertDispatcher sends one deduplicated alert
type AlertDispatcher interface {
	Dispatch(ctx context.Context, a contracts.Analysis) (bool, error)
}

// RecommendationStore persists emitted recommendations
type RecommendationStore interface {
	Save(ctx context.Context, a contracts.Analysis) error
}

// Config controls one scan sweep
type Config struct {
	Universe        []string
	MinProbability  float64 // final probability gate, 0-100
	StrikeOffsetPct float64
	DaysToExpiry    int
}

// Summary is the outcome of one sweep
type Summary struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Analyzed   int           `json:"analyzed"`
	Alerted    int           `json:"alerted"`
	BelowGate  int           `json:"below_gate"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
}

// Scanner sweeps the universe sequentially. Provider rate limits
// dominate the runtime, so there is nothing to win by going parallel.
type Scanner struct {
	config     Config
	provider   MarketDataProvider
	analyzer   Analyzer
	dispatcher AlertDispatcher
	store      RecommendationStore // optional
	logger     *logger.Logger
}

// New wires a scanner. store may be nil; persistence is then skipped.
func New(config Config, provider MarketDataProvider, analyzer Analyzer, dispatcher AlertDispatcher, store RecommendationStore, log *logger.Logger) *Scanner {
	return &Scanner{
		config:     config,
		provider:   provider,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		store:      store,
		logger:     log,
	}
}

// Run analyzes every universe symbol, dispatches alerts that clear
// the probability gate, and returns the sweep summary. Per-symbol
// failures are counted and logged, never fatal for the sweep.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: time.Now()}
	defer func() { summary.Duration = time.Since(summary.StartedAt) }()

	if len(s.config.Universe) == 0 {
		return summary, fmt.Errorf("%w: empty scan universe", contracts.ErrInvalidInput)
	}

	for _, symbol := range s.config.Universe {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		analysis, err := s.ScanSymbol(ctx, symbol)
		if err != nil {
			summary.Failed++
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Symbol scan failed")
			continue
		}
		summary.Analyzed++

		if analysis.Score.FinalProbability < s.config.MinProbability {
			summary.BelowGate++
			s.logger.WithFields(map[string]interface{}{
				"symbol":      symbol,
				"probability": analysis.Score.FinalProbability,
			}).Debug("Below probability gate")
			continue
		}

		sent, err := s.dispatcher.Dispatch(ctx, analysis)
		if err != nil {
			summary.Failed++
			s.logger.WithError(err).WithField("symbol", symbol).Error("Alert dispatch failed")
			continue
		}
		if !sent {
			summary.Duplicates++
			continue
		}
		summary.Alerted++

		if s.store != nil {
			if err := s.store.Save(ctx, analysis); err != nil {
				// Persistence is write-behind; a failed insert must not
				// cancel an alert that already went out
				s.logger.WithError(err).WithField("symbol", symbol).Error("Recommendation persist failed")
			}
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"analyzed":   summary.Analyzed,
		"alerted":    summary.Alerted,
		"below_gate": summary.BelowGate,
		"duplicates": summary.Duplicates,
		"failed":     summary.Failed,
	}).Info("Scan sweep complete")
	return summary, nil
}

// ScanSymbol fetches one snapshot and analyzes both contract sides,
// keeping whichever scores higher. A side that fails validation is
// skipped; both failing is an error.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) (contracts.Analysis, error) {
	snapshot, err := s.provider.Snapshot(ctx, symbol)
	if err != nil {
		return contracts.Analysis{}, fmt.Errorf("snapshot %s: %w", symbol, err)
	}

	put := contracts.OptionContract{
		Strike:       snapshot.CurrentPrice * (1 - s.config.StrikeOffsetPct/100),
		DaysToExpiry: s.config.DaysToExpiry,
		Kind:         contracts.Put,
	}
	call := contracts.OptionContract{
		Strike:       snapshot.CurrentPrice * (1 + s.config.StrikeOffsetPct/100),
		DaysToExpiry: s.config.DaysToExpiry,
		Kind:         contracts.Call,
	}

	var best contracts.Analysis
	var bestErr error
	found := false

	for _, contract := range []contracts.OptionContract{put, call} {
		analysis, err := s.analyzer.Analyze(ctx, snapshot, contract)
		if err != nil {
			bestErr = errors.Join(bestErr, err)
			continue
		}
		if !found || analysis.Score.FinalProbability > best.Score.FinalProbability {
			best = analysis
			found = true
		}
	}

	if !found {
		return contracts.Analysis{}, fmt.Errorf("analyze %s: %w", symbol, bestErr)
	}
	return best, nil
}
