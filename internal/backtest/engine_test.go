package backtest

import (
	"errors"
	"math"
	"testing"

	"github.com/wonny/helios/internal/contracts"
)

// 60 steadily rising closes: 100, 101, ... 159
func risingCloses() []float64 {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func TestRunRisingMarket(t *testing.T) {
	e := New(0) // default stride 10
	closes := risingCloses()

	// Entries at 0, 10, 20 (20+30 < 60); every exit is 30 points above
	// entry, so stay-above always wins and stay-below always loses
	above, err := e.Run(closes, RuleStayAbove, 4, 30)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if above.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", above.TotalTrades)
	}
	if above.WinRate != 100 || above.Wins != 3 {
		t.Errorf("stay-above = %.1f%% (%d wins), want 100%% (3)", above.WinRate, above.Wins)
	}

	below, err := e.Run(closes, RuleStayBelow, 4, 30)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if below.WinRate != 0 || below.Wins != 0 {
		t.Errorf("stay-below = %.1f%% (%d wins), want 0%% (0)", below.WinRate, below.Wins)
	}
	if below.InsufficientData {
		t.Error("3 losing trades is still data, InsufficientData must be false")
	}
}

func TestRunPartialWins(t *testing.T) {
	e := New(1)
	closes := []float64{100, 100, 105, 100, 90}

	// Entries 0,1,2 with 2-day exits 105, 100, 90 against strikes
	// 95, 95, 99.75: two wins, one loss
	result, err := e.Run(closes, RuleStayAbove, 5, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TotalTrades != 3 || result.Wins != 2 {
		t.Fatalf("got %d/%d, want 2/3", result.Wins, result.TotalTrades)
	}
	if math.Abs(result.WinRate-200.0/3.0) > 1e-9 {
		t.Errorf("WinRate = %v, want 66.67", result.WinRate)
	}
}

func TestRunStayWithin(t *testing.T) {
	e := New(1)
	closes := []float64{100, 100, 103, 100, 120}

	// Exits 103 (inside ±5%), 100 (inside), 120 (outside)
	result, err := e.Run(closes, RuleStayWithin, 5, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Wins != 2 || result.TotalTrades != 3 {
		t.Errorf("got %d/%d, want 2/3", result.Wins, result.TotalTrades)
	}
}

// A trade exists iff entry + daysToExpiry lands inside the series.
func TestRunBoundary(t *testing.T) {
	e := New(10)

	flat := func(n int) []float64 {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100
		}
		return closes
	}

	exact, err := e.Run(flat(30), RuleStayAbove, 4, 30)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if exact.TotalTrades != 0 || !exact.InsufficientData {
		t.Errorf("len==days: got %d trades (insufficient=%v), want 0 trades insufficient",
			exact.TotalTrades, exact.InsufficientData)
	}
	if exact.WinRate != 0 {
		t.Errorf("zero trades must report WinRate 0, got %v", exact.WinRate)
	}

	onePlus, err := e.Run(flat(31), RuleStayAbove, 4, 30)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if onePlus.TotalTrades != 1 || onePlus.InsufficientData {
		t.Errorf("len==days+1: got %d trades, want exactly 1", onePlus.TotalTrades)
	}
}

func TestRunDeterministic(t *testing.T) {
	e := New(0)
	closes := risingCloses()

	first, err := e.Run(closes, RuleStayAbove, 4, 30)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := e.Run(closes, RuleStayAbove, 4, 30)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if first != second {
		t.Errorf("identical inputs diverged: %+v vs %+v", first, second)
	}
}

func TestRunInvalidInput(t *testing.T) {
	e := New(0)
	closes := risingCloses()

	tests := []struct {
		name string
		run  func() (contracts.BacktestResult, error)
	}{
		{"zero days", func() (contracts.BacktestResult, error) { return e.Run(closes, RuleStayAbove, 4, 0) }},
		{"negative offset", func() (contracts.BacktestResult, error) { return e.Run(closes, RuleStayAbove, -1, 30) }},
		{"offset 100", func() (contracts.BacktestResult, error) { return e.Run(closes, RuleStayAbove, 100, 30) }},
		{"bad rule", func() (contracts.BacktestResult, error) { return e.Run(closes, Rule(99), 4, 30) }},
		{"zero close", func() (contracts.BacktestResult, error) {
			bad := append([]float64(nil), closes...)
			bad[5] = 0
			return e.Run(bad, RuleStayAbove, 4, 30)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.run(); !errors.Is(err, contracts.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRunShrinking(t *testing.T) {
	e := New(10)

	// 20 closes cannot fit a 30-day window; halving reaches 15 which
	// fits (entry 0, exit 15)
	short := make([]float64, 20)
	for i := range short {
		short[i] = 100 + float64(i)
	}

	result, err := e.RunShrinking(short, RuleStayAbove, 4, 30, 5)
	if err != nil {
		t.Fatalf("RunShrinking() error = %v", err)
	}
	if result.InsufficientData || result.TotalTrades == 0 {
		t.Errorf("shrinking should have found a window, got %+v", result)
	}

	// Two closes cannot fit even the minimum window
	empty, err := e.RunShrinking([]float64{100, 101}, RuleStayAbove, 4, 30, 5)
	if err != nil {
		t.Fatalf("RunShrinking() error = %v", err)
	}
	if !empty.InsufficientData {
		t.Error("hopeless series must report InsufficientData")
	}
}

func TestRuleForKind(t *testing.T) {
	if RuleForKind(contracts.Put) != RuleStayAbove {
		t.Error("put should map to stay-above")
	}
	if RuleForKind(contracts.Call) != RuleStayBelow {
		t.Error("call should map to stay-below")
	}
}
