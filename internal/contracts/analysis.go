package contracts

import "time"

// Greeks holds the analytic Black-Scholes sensitivities
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"` // per calendar day
	Vega  float64 `json:"vega"`  // per 1% vol move
}

// ConfidenceInterval is the 95% band of simulated terminal prices
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ProbabilityEstimate is the Monte Carlo result for one contract.
// Created fresh per estimation call, never persisted.
type ProbabilityEstimate struct {
	// Percent in [0,100]
	MonteCarloProbability float64 `json:"monte_carlo_probability"`

	Greeks               Greeks             `json:"greeks"`
	ConfidenceInterval95 ConfidenceInterval `json:"confidence_interval_95"`

	MeanFinalPrice float64 `json:"mean_final_price"`
	StdFinalPrice  float64 `json:"std_final_price"`
	NumPaths       int     `json:"num_paths"`
}

// BacktestResult is the empirical win rate of the fixed-offset strike
// rule over the close history. Deterministic for identical inputs.
type BacktestResult struct {
	WinRate          float64 `json:"win_rate"` // percent in [0,100]
	TotalTrades      int     `json:"total_trades"`
	Wins             int     `json:"wins"`
	InsufficientData bool    `json:"insufficient_data"`
}

// ConfidenceLabel grades how many independent components agree
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "Low"
	ConfidenceMedium ConfidenceLabel = "Medium"
	ConfidenceHigh   ConfidenceLabel = "High"
)

// UnifiedScore is the blended probability across all evidence-based
// components
type UnifiedScore struct {
	FinalProbability   float64            `json:"final_probability"` // percent in [0,100]
	ComponentBreakdown map[string]float64 `json:"component_breakdown"`
	Confidence         ConfidenceLabel    `json:"confidence"`
}

// Direction is the dominant expected market direction
type Direction string

const (
	Bullish  Direction = "BULLISH"
	Bearish  Direction = "BEARISH"
	Sideways Direction = "SIDEWAYS"
)

// StrategyName is the recommended option strategy. Single-leg only:
// the execution layer targets cash accounts with no spread approval.
type StrategyName string

const (
	LongCall StrategyName = "LONG_CALL"
	LongPut  StrategyName = "LONG_PUT"
)

// RiskLevel grades the aggressiveness of a recommendation
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// StrategyRecommendation is the final actionable output for one symbol.
// Computed once per (symbol, snapshot), consumed by the formatter,
// never mutated afterwards.
type StrategyRecommendation struct {
	Strategy  StrategyName `json:"strategy"`
	Reasoning string       `json:"reasoning"`

	// Heuristic scalar, not a pricing-accurate expectation
	ExpectedReturnPct float64   `json:"expected_return_pct"`
	Risk              RiskLevel `json:"risk"`

	// Underlying price levels for the alert
	StrikeTarget float64   `json:"strike_target"`
	EntryPrice   float64   `json:"entry_price"`
	TargetPrice  float64   `json:"target_price"`
	StopLoss     float64   `json:"stop_loss"`
	Expiry       time.Time `json:"expiry"`
}

// RegimeForecast aggregates the Markov next-state prediction by
// direction
type RegimeForecast struct {
	State     string  `json:"state"`
	Bullish   float64 `json:"bullish"` // fractions summing to ~1
	Bearish   float64 `json:"bearish"`
	Lateral   float64 `json:"lateral"`
	Stability float64 `json:"stability"`
}

// Dominant returns the forecast direction; sideways when bullish and
// bearish mass are within 0.1 of each other.
func (r RegimeForecast) Dominant() Direction {
	diff := r.Bullish - r.Bearish
	if diff < 0.1 && diff > -0.1 {
		return Sideways
	}
	if diff > 0 {
		return Bullish
	}
	return Bearish
}

// Analysis is the complete pipeline output for one symbol
type Analysis struct {
	Symbol    string    `json:"symbol"`
	AsOf      time.Time `json:"as_of"`
	SpotPrice float64   `json:"spot_price"`

	Estimate ProbabilityEstimate    `json:"estimate"`
	Backtest BacktestResult         `json:"backtest"`
	Score    UnifiedScore           `json:"score"`
	Regime   RegimeForecast         `json:"regime"`
	Strategy StrategyRecommendation `json:"strategy"`
}
