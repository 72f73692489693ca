package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/helios/internal/contracts"
)

var asOf = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func input(bullish, bearish float64) Input {
	return Input{
		SpotPrice:    100,
		Bullish:      bullish,
		Bearish:      bearish,
		DaysToExpiry: 30,
		AsOf:         asOf,
	}
}

func TestSelectMapping(t *testing.T) {
	s := New()

	tests := []struct {
		name       string
		bullish    float64
		bearish    float64
		wantName   contracts.StrategyName
		wantStrike float64
		wantRisk   contracts.RiskLevel
	}{
		{"strong bullish ATM call", 80, 20, contracts.LongCall, 100, contracts.RiskHigh},
		{"moderate bullish ATM call", 65, 35, contracts.LongCall, 100, contracts.RiskMedium},
		{"weak bullish ITM call", 55, 40, contracts.LongCall, 97, contracts.RiskLow},
		{"strong bearish ATM put", 20, 80, contracts.LongPut, 100, contracts.RiskHigh},
		{"moderate bearish ATM put", 35, 65, contracts.LongPut, 100, contracts.RiskMedium},
		{"weak bearish ITM put", 40, 55, contracts.LongPut, 103, contracts.RiskLow},
		{"sideways bullish bias ITM call", 52, 48, contracts.LongCall, 97, contracts.RiskLow},
		{"sideways bearish bias ITM put", 48, 52, contracts.LongPut, 103, contracts.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := s.Select(input(tt.bullish, tt.bearish))
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}

			if rec.Strategy != tt.wantName {
				t.Errorf("Strategy = %s, want %s", rec.Strategy, tt.wantName)
			}
			if math.Abs(rec.StrikeTarget-tt.wantStrike) > 1e-9 {
				t.Errorf("StrikeTarget = %v, want %v", rec.StrikeTarget, tt.wantStrike)
			}
			if rec.Risk != tt.wantRisk {
				t.Errorf("Risk = %s, want %s", rec.Risk, tt.wantRisk)
			}
			if rec.Reasoning == "" {
				t.Error("Reasoning must not be empty")
			}
		})
	}
}

func TestSelectExpectedReturn(t *testing.T) {
	s := New()

	// Strong bullish at 80%: 25 · 1.2 · 80/60 = 40, clamped to 35
	rec, err := s.Select(input(80, 20))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if rec.ExpectedReturnPct != 35 {
		t.Errorf("ExpectedReturnPct = %v, want clamped 35", rec.ExpectedReturnPct)
	}

	// Moderate at 66: 25 · 1.0 · 66/60 = 27.5, inside the clamp
	rec, err = s.Select(input(66, 30))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if math.Abs(rec.ExpectedReturnPct-27.5) > 1e-9 {
		t.Errorf("ExpectedReturnPct = %v, want 27.5", rec.ExpectedReturnPct)
	}

	// Weak at 15: 25 · 0.8 · 15/60 = 5, floor of the clamp
	rec, err = s.Select(input(15, 2))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if rec.ExpectedReturnPct != 5 {
		t.Errorf("ExpectedReturnPct = %v, want floor 5", rec.ExpectedReturnPct)
	}
}

func TestSelectTradeLevels(t *testing.T) {
	s := New()

	bull, err := s.Select(input(80, 20))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if bull.TargetPrice <= bull.EntryPrice {
		t.Errorf("bullish target %v must exceed entry %v", bull.TargetPrice, bull.EntryPrice)
	}
	if math.Abs(bull.StopLoss-95) > 1e-9 {
		t.Errorf("bullish stop = %v, want 95", bull.StopLoss)
	}

	bear, err := s.Select(input(20, 80))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if bear.TargetPrice >= bear.EntryPrice {
		t.Errorf("bearish target %v must be below entry %v", bear.TargetPrice, bear.EntryPrice)
	}
	if math.Abs(bear.StopLoss-105) > 1e-9 {
		t.Errorf("bearish stop = %v, want 105", bear.StopLoss)
	}

	wantExpiry := asOf.AddDate(0, 0, 30)
	if !bull.Expiry.Equal(wantExpiry) {
		t.Errorf("Expiry = %v, want %v", bull.Expiry, wantExpiry)
	}
}

// Every probability pair must map to one of the two strategies.
func TestSelectTotality(t *testing.T) {
	s := New()

	for bullish := 0.0; bullish <= 100; bullish += 5 {
		for bearish := 0.0; bearish <= 100; bearish += 5 {
			rec, err := s.Select(input(bullish, bearish))
			if err != nil {
				t.Fatalf("Select(%v, %v) error = %v", bullish, bearish, err)
			}
			if rec.Strategy != contracts.LongCall && rec.Strategy != contracts.LongPut {
				t.Fatalf("Select(%v, %v) = %s, not a mapped strategy", bullish, bearish, rec.Strategy)
			}
			if rec.ExpectedReturnPct < 5 || rec.ExpectedReturnPct > 35 {
				t.Fatalf("Select(%v, %v) return %v out of [5,35]", bullish, bearish, rec.ExpectedReturnPct)
			}
		}
	}
}

func TestSelectInvalidInput(t *testing.T) {
	s := New()

	tests := []struct {
		name   string
		mutate func(in *Input)
	}{
		{"zero spot", func(in *Input) { in.SpotPrice = 0 }},
		{"zero days", func(in *Input) { in.DaysToExpiry = 0 }},
		{"probability above 100", func(in *Input) { in.Bullish = 120 }},
		{"negative probability", func(in *Input) { in.Bearish = -3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(60, 40)
			tt.mutate(&in)

			if _, err := s.Select(in); !errors.Is(err, contracts.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
