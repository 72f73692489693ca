package brain

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wonny/helios/internal/backtest"
	"github.com/wonny/helios/internal/blend"
	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/internal/pricing"
	"github.com/wonny/helios/internal/signals"
	"github.com/wonny/helios/internal/strategy"
)

// Directional mix between the blended score and the regime forecast
const (
	scoreWeight  = 0.7
	regimeWeight = 0.3
)

// Config bounds the contracts the orchestrator accepts and carries
// the estimator defaults
type Config struct {
	MinDaysToExpiry int
	MaxDaysToExpiry int

	NumPaths     int     // 0 = pricing.DefaultNumPaths
	RiskFreeRate float64 // 0 = pricing.DefaultRiskFreeRate
}

// Orchestrator runs the full analysis pipeline over one market
// snapshot. Pure given its inputs: every data fetch happens before
// Analyze is called.
type Orchestrator struct {
	config     Config
	estimator  *pricing.Estimator
	backtester *backtest.Engine
	blender    *blend.Blender
	selector   *strategy.Selector
}

// New wires the pipeline stages
func New(config Config, estimator *pricing.Estimator, backtester *backtest.Engine, blender *blend.Blender, selector *strategy.Selector) *Orchestrator {
	return &Orchestrator{
		config:     config,
		estimator:  estimator,
		backtester: backtester,
		blender:    blender,
		selector:   selector,
	}
}

// Analyze validates the inputs and runs estimate → backtest →
// technical → blend → regime → selector, returning the assembled
// Analysis. A regime model that cannot be fitted falls back to a
// neutral prior; everything else fails loudly.
func (o *Orchestrator) Analyze(ctx context.Context, snapshot contracts.MarketSnapshot, contract contracts.OptionContract) (contracts.Analysis, error) {
	var analysis contracts.Analysis

	if err := snapshot.Validate(); err != nil {
		return analysis, err
	}
	if err := contract.Validate(o.config.MinDaysToExpiry, o.config.MaxDaysToExpiry); err != nil {
		return analysis, err
	}

	estimate, err := o.estimator.Estimate(ctx, pricing.EstimateInput{
		SpotPrice:    snapshot.CurrentPrice,
		Volatility:   snapshot.RealizedVolatility,
		DaysToExpiry: contract.DaysToExpiry,
		Strike:       contract.Strike,
		Kind:         contract.Kind,
		NumPaths:     o.config.NumPaths,
		RiskFreeRate: o.config.RiskFreeRate,
	})
	if err != nil {
		return analysis, fmt.Errorf("estimate %s: %w", snapshot.Symbol, err)
	}

	offsetPct := math.Abs(contract.Strike/snapshot.CurrentPrice-1) * 100
	bt, err := o.backtester.RunShrinking(
		snapshot.HistoricalCloses,
		backtest.RuleForKind(contract.Kind),
		offsetPct,
		contract.DaysToExpiry,
		o.config.MinDaysToExpiry,
	)
	if err != nil {
		return analysis, fmt.Errorf("backtest %s: %w", snapshot.Symbol, err)
	}

	tech := signals.TechnicalProbability(snapshot.HistoricalCloses, snapshot.CurrentPrice, contract.Strike)

	score, err := o.blender.Blend(estimate.MonteCarloProbability, bt.WinRate, tech, bt.TotalTrades)
	if err != nil {
		return analysis, fmt.Errorf("blend %s: %w", snapshot.Symbol, err)
	}

	regime, err := signals.FitForecast(snapshot.HistoricalCloses)
	if err != nil {
		if !errors.Is(err, contracts.ErrInsufficientData) {
			return analysis, fmt.Errorf("regime %s: %w", snapshot.Symbol, err)
		}
		regime = neutralRegime()
	}

	bullish, bearish := directionalSplit(score.FinalProbability, contract.Kind, regime)

	rec, err := o.selector.Select(strategy.Input{
		SpotPrice:    snapshot.CurrentPrice,
		Bullish:      bullish,
		Bearish:      bearish,
		DaysToExpiry: contract.DaysToExpiry,
		AsOf:         snapshot.AsOf,
	})
	if err != nil {
		return analysis, fmt.Errorf("select %s: %w", snapshot.Symbol, err)
	}

	analysis = contracts.Analysis{
		Symbol:    snapshot.Symbol,
		AsOf:      snapshot.AsOf,
		SpotPrice: snapshot.CurrentPrice,
		Estimate:  estimate,
		Backtest:  bt,
		Score:     score,
		Regime:    regime,
		Strategy:  rec,
	}
	return analysis, nil
}

// directionalSplit converts the favorable-outcome probability into
// bullish/bearish mass and mixes in the regime forecast.
//
// The blended score is seller-safe framed: for a PUT the favorable
// outcome is the price holding above the strike (bullish), for a CALL
// it is the price staying below (bearish).
func directionalSplit(finalProbability float64, kind contracts.OptionKind, regime contracts.RegimeForecast) (bullish, bearish float64) {
	scoreBull := finalProbability
	if kind == contracts.Call {
		scoreBull = 100 - finalProbability
	}

	bullish = scoreWeight*scoreBull + regimeWeight*regime.Bullish*100
	bearish = scoreWeight*(100-scoreBull) + regimeWeight*regime.Bearish*100

	return clampPct(bullish), clampPct(bearish)
}

// neutralRegime is the prior used when the history cannot support a
// transition matrix
func neutralRegime() contracts.RegimeForecast {
	return contracts.RegimeForecast{
		State:     "UNFITTED",
		Bullish:   0.4,
		Bearish:   0.3,
		Lateral:   0.3,
		Stability: 0.4,
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
