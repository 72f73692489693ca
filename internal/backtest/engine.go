package backtest

import (
	"fmt"
	"math"

	"github.com/wonny/helios/internal/contracts"
)

// Rule is the condition the exit close must satisfy for a trade to
// count as a win. StayAbove backs short-put / long-call style
// positioning, StayBelow the mirror, StayWithin a range view.
type Rule int

const (
	RuleStayAbove Rule = iota
	RuleStayBelow
	RuleStayWithin
)

func (r Rule) String() string {
	switch r {
	case RuleStayAbove:
		return "stay_above"
	case RuleStayBelow:
		return "stay_below"
	case RuleStayWithin:
		return "stay_within"
	}
	return "unknown"
}

// DefaultStride is the bar spacing between simulated entries. Entries
// overlap when stride < daysToExpiry; that matches how the scan uses
// the result (a rough base rate, not a P&L curve).
const DefaultStride = 10

// Engine replays the fixed-offset strike rule over a close series
type Engine struct {
	stride int
}

// New creates an engine; stride <= 0 selects DefaultStride
func New(stride int) *Engine {
	if stride <= 0 {
		stride = DefaultStride
	}
	return &Engine{stride: stride}
}

// Run walks the close history, opening a hypothetical position every
// stride bars and checking the close daysToExpiry bars later.
//
// Strike per entry close C:
//
//	StayAbove:  C·(1 − offset/100), win when exit > strike
//	StayBelow:  C·(1 + offset/100), win when exit < strike
//	StayWithin: both bands, win when strikeLow < exit < strikeHigh
//
// A trade exists iff i + daysToExpiry < len(closes), so a series of
// exactly daysToExpiry+1 closes yields one trade and daysToExpiry
// closes yield none. Zero trades report WinRate 0 with
// InsufficientData set; the caller decides whether that is fatal.
func (e *Engine) Run(closes []float64, rule Rule, strikeOffsetPct float64, daysToExpiry int) (contracts.BacktestResult, error) {
	var result contracts.BacktestResult

	if daysToExpiry <= 0 {
		return result, fmt.Errorf("%w: days to expiry %d", contracts.ErrInvalidInput, daysToExpiry)
	}
	if strikeOffsetPct < 0 || strikeOffsetPct >= 100 {
		return result, fmt.Errorf("%w: strike offset %.2f%%", contracts.ErrInvalidInput, strikeOffsetPct)
	}
	if rule != RuleStayAbove && rule != RuleStayBelow && rule != RuleStayWithin {
		return result, fmt.Errorf("%w: backtest rule %d", contracts.ErrInvalidInput, rule)
	}
	for _, c := range closes {
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return result, fmt.Errorf("%w: non-positive close in series", contracts.ErrInvalidInput)
		}
	}

	offset := strikeOffsetPct / 100

	for i := 0; i+daysToExpiry < len(closes); i += e.stride {
		entry := closes[i]
		exit := closes[i+daysToExpiry]

		result.TotalTrades++
		if wins(rule, entry, exit, offset) {
			result.Wins++
		}
	}

	if result.TotalTrades == 0 {
		result.InsufficientData = true
		return result, nil
	}

	result.WinRate = float64(result.Wins) / float64(result.TotalTrades) * 100
	return result, nil
}

// RunShrinking retries with progressively smaller expiry windows when
// the series is too short for the requested one. Used by the scan so a
// thin history still produces a base rate instead of nothing.
func (e *Engine) RunShrinking(closes []float64, rule Rule, strikeOffsetPct float64, daysToExpiry, minDays int) (contracts.BacktestResult, error) {
	if minDays <= 0 {
		minDays = 1
	}

	for days := daysToExpiry; days >= minDays; days /= 2 {
		result, err := e.Run(closes, rule, strikeOffsetPct, days)
		if err != nil {
			return result, err
		}
		if !result.InsufficientData {
			return result, nil
		}
	}

	return contracts.BacktestResult{InsufficientData: true}, nil
}

// RuleForKind derives the backtest rule matching the seller-safe
// payoff reading of a contract kind
func RuleForKind(kind contracts.OptionKind) Rule {
	if kind == contracts.Call {
		return RuleStayBelow
	}
	return RuleStayAbove
}

func wins(rule Rule, entry, exit, offset float64) bool {
	switch rule {
	case RuleStayAbove:
		return exit > entry*(1-offset)
	case RuleStayBelow:
		return exit < entry*(1+offset)
	default: // RuleStayWithin
		return exit > entry*(1-offset) && exit < entry*(1+offset)
	}
}
