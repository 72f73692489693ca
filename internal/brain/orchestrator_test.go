package brain

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/helios/internal/backtest"
	"github.com/wonny/helios/internal/blend"
	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/internal/pricing"
	"github.com/wonny/helios/internal/strategy"
)

func newOrchestrator() *Orchestrator {
	return New(
		Config{MinDaysToExpiry: 7, MaxDaysToExpiry: 45},
		pricing.New(pricing.Config{Seed: 42}),
		backtest.New(0),
		blend.New(blend.Weights{}, blend.Thresholds{}),
		strategy.New(),
	)
}

// 120 closes drifting up 0.3% a day from 70, ending near 100
func trendingSnapshot() contracts.MarketSnapshot {
	closes := make([]float64, 120)
	closes[0] = 70
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.003
	}

	return contracts.MarketSnapshot{
		Symbol:             "SPY",
		CurrentPrice:       closes[len(closes)-1],
		RealizedVolatility: 0.22,
		HistoricalCloses:   closes,
		AsOf:               time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestAnalyzePipeline(t *testing.T) {
	o := newOrchestrator()
	snapshot := trendingSnapshot()
	contract := contracts.OptionContract{
		Strike:       snapshot.CurrentPrice * 0.96,
		DaysToExpiry: 30,
		Kind:         contracts.Put,
	}

	analysis, err := o.Analyze(context.Background(), snapshot, contract)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if analysis.Symbol != "SPY" {
		t.Errorf("Symbol = %s, want SPY", analysis.Symbol)
	}
	if analysis.SpotPrice != snapshot.CurrentPrice {
		t.Errorf("SpotPrice = %v, want %v", analysis.SpotPrice, snapshot.CurrentPrice)
	}

	if p := analysis.Estimate.MonteCarloProbability; p < 0 || p > 100 {
		t.Errorf("estimate probability %v out of [0,100]", p)
	}
	if p := analysis.Score.FinalProbability; p < 0 || p > 100 {
		t.Errorf("final probability %v out of [0,100]", p)
	}

	// Uptrending history against a 4%-below strike: the backtest must
	// have found trades and mostly wins
	if analysis.Backtest.TotalTrades == 0 {
		t.Error("backtest found no trades on a 120-bar series")
	}
	if analysis.Backtest.WinRate < 50 {
		t.Errorf("uptrend stay-above win rate = %v, want > 50", analysis.Backtest.WinRate)
	}

	if analysis.Strategy.Strategy != contracts.LongCall && analysis.Strategy.Strategy != contracts.LongPut {
		t.Errorf("unmapped strategy %s", analysis.Strategy.Strategy)
	}
	if analysis.Strategy.EntryPrice != snapshot.CurrentPrice {
		t.Errorf("EntryPrice = %v, want spot %v", analysis.Strategy.EntryPrice, snapshot.CurrentPrice)
	}

	if sum := analysis.Regime.Bullish + analysis.Regime.Bearish + analysis.Regime.Lateral; math.Abs(sum-1) > 1e-6 {
		t.Errorf("regime mass sums to %v, want 1", sum)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	snapshot := trendingSnapshot()
	contract := contracts.OptionContract{Strike: 96, DaysToExpiry: 30, Kind: contracts.Put}

	first, err := newOrchestrator().Analyze(context.Background(), snapshot, contract)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	second, err := newOrchestrator().Analyze(context.Background(), snapshot, contract)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if first.Score.FinalProbability != second.Score.FinalProbability {
		t.Errorf("seeded pipeline diverged: %v vs %v", first.Score.FinalProbability, second.Score.FinalProbability)
	}
	if first.Strategy.Strategy != second.Strategy.Strategy {
		t.Errorf("strategy diverged: %s vs %s", first.Strategy.Strategy, second.Strategy.Strategy)
	}
}

func TestAnalyzeShortHistoryFallsBack(t *testing.T) {
	o := newOrchestrator()

	// 6 closes: too short for the regime model and any backtest
	// window, but the pipeline must still produce an analysis
	snapshot := contracts.MarketSnapshot{
		Symbol:             "IWM",
		CurrentPrice:       200,
		RealizedVolatility: 0.25,
		HistoricalCloses:   []float64{198, 199, 200, 199, 201, 200},
		AsOf:               time.Now(),
	}
	contract := contracts.OptionContract{Strike: 192, DaysToExpiry: 30, Kind: contracts.Put}

	analysis, err := o.Analyze(context.Background(), snapshot, contract)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if analysis.Regime.State != "UNFITTED" {
		t.Errorf("Regime.State = %s, want UNFITTED fallback", analysis.Regime.State)
	}
	if !analysis.Backtest.InsufficientData {
		t.Error("6-bar history should report InsufficientData backtest")
	}
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	o := newOrchestrator()
	snapshot := trendingSnapshot()

	bad := snapshot
	bad.CurrentPrice = -1
	if _, err := o.Analyze(context.Background(), bad, contracts.OptionContract{Strike: 96, DaysToExpiry: 30, Kind: contracts.Put}); !errors.Is(err, contracts.ErrInvalidInput) {
		t.Errorf("negative price error = %v, want ErrInvalidInput", err)
	}

	if _, err := o.Analyze(context.Background(), snapshot, contracts.OptionContract{Strike: 96, DaysToExpiry: 90, Kind: contracts.Put}); !errors.Is(err, contracts.ErrInvalidInput) {
		t.Errorf("out-of-horizon expiry error = %v, want ErrInvalidInput", err)
	}
}

func TestDirectionalSplit(t *testing.T) {
	regime := contracts.RegimeForecast{Bullish: 0.5, Bearish: 0.3, Lateral: 0.2}

	// PUT framing: favorable mass is bullish. 0.7·80 + 0.3·50 = 71
	bull, bear := directionalSplit(80, contracts.Put, regime)
	if math.Abs(bull-71) > 1e-9 {
		t.Errorf("put bullish = %v, want 71", bull)
	}
	if math.Abs(bear-(0.7*20+0.3*30)) > 1e-9 {
		t.Errorf("put bearish = %v, want 23", bear)
	}

	// CALL framing flips the score side
	bull, bear = directionalSplit(80, contracts.Call, regime)
	if math.Abs(bull-(0.7*20+0.3*50)) > 1e-9 {
		t.Errorf("call bullish = %v, want 29", bull)
	}
	if math.Abs(bear-(0.7*80+0.3*30)) > 1e-9 {
		t.Errorf("call bearish = %v, want 65", bear)
	}
}
