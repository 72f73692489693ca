package notify

import (
	"fmt"
	"strings"

	"github.com/wonny/helios/internal/contracts"
)

// FormatAlert renders one analysis as the plain-text Telegram message.
// Display concern only: nothing downstream parses this.
func FormatAlert(a contracts.Analysis) string {
	var b strings.Builder

	direction := "CALL"
	if a.Strategy.Strategy == contracts.LongPut {
		direction = "PUT"
	}

	fmt.Fprintf(&b, "🎯 HELIOS SIGNAL: %s\n\n", a.Symbol)
	fmt.Fprintf(&b, "Strategy: %s\n", a.Strategy.Strategy)
	fmt.Fprintf(&b, "Contract: %s $%.2f exp %s\n", direction, a.Strategy.StrikeTarget, a.Strategy.Expiry.Format("2006-01-02"))
	fmt.Fprintf(&b, "Reasoning: %s\n\n", a.Strategy.Reasoning)

	fmt.Fprintf(&b, "EXECUTION PLAN\n")
	fmt.Fprintf(&b, "Entry: $%.2f\n", a.Strategy.EntryPrice)
	fmt.Fprintf(&b, "Target: $%.2f %+.1f%%\n", a.Strategy.TargetPrice, a.Strategy.TargetPrice/a.Strategy.EntryPrice*100-100)
	fmt.Fprintf(&b, "Stop: $%.2f\n", a.Strategy.StopLoss)
	fmt.Fprintf(&b, "Expected return: %.1f%% | Risk: %s\n\n", a.Strategy.ExpectedReturnPct, a.Strategy.Risk)

	fmt.Fprintf(&b, "PROBABILITY %.1f%% confidence %s\n", a.Score.FinalProbability, a.Score.Confidence)
	fmt.Fprintf(&b, "- Monte Carlo: %.1f%% over %d paths\n", a.Estimate.MonteCarloProbability, a.Estimate.NumPaths)
	if a.Backtest.InsufficientData {
		fmt.Fprintf(&b, "- Historical: insufficient data\n")
	} else {
		fmt.Fprintf(&b, "- Historical: %.1f%% win rate, %d trades\n", a.Backtest.WinRate, a.Backtest.TotalTrades)
	}
	if tech, ok := a.Score.ComponentBreakdown["technical"]; ok {
		fmt.Fprintf(&b, "- Technical: %.1f%%\n", tech)
	}

	fmt.Fprintf(&b, "\nREGIME %s → %s\n", a.Regime.State, a.Regime.Dominant())
	fmt.Fprintf(&b, "bull %.0f%% / bear %.0f%% / flat %.0f%% (stability %.0f%%)\n",
		a.Regime.Bullish*100, a.Regime.Bearish*100, a.Regime.Lateral*100, a.Regime.Stability*100)

	fmt.Fprintf(&b, "\n95%% price band: $%.2f - $%.2f\n", a.Estimate.ConfidenceInterval95.Low, a.Estimate.ConfidenceInterval95.High)
	fmt.Fprintf(&b, "Greeks: Δ %.3f Γ %.4f Θ %.3f V %.3f\n", a.Estimate.Greeks.Delta, a.Estimate.Greeks.Gamma, a.Estimate.Greeks.Theta, a.Estimate.Greeks.Vega)

	return b.String()
}
