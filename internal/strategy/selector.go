package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/helios/internal/contracts"
)

// Strength grades the dominant directional probability
type Strength string

const (
	Strong   Strength = "STRONG"
	Moderate Strength = "MODERATE"
	Weak     Strength = "WEAK"
	Neutral  Strength = "NEUTRAL" // sideways market
)

// Thresholds on the 0-100 dominant probability
const (
	strongThreshold   = 70.0
	moderateThreshold = 60.0

	// Bullish and bearish mass within 10 points of each other reads
	// as sideways
	sidewaysBand = 10.0

	// WEAK and NEUTRAL signals take a 3% in-the-money strike for
	// consistency instead of ATM
	itmOffset = 0.03

	baseReturnPct = 25.0
	stopLossPct   = 0.05
)

// Input is everything the selector needs for one decision
type Input struct {
	SpotPrice    float64
	Bullish      float64 // percent in [0,100]
	Bearish      float64 // percent in [0,100]
	DaysToExpiry int
	AsOf         time.Time
}

// Selector maps a directional read onto one of the two single-leg
// strategies. Total over its input domain: every valid input yields a
// recommendation, never an unmapped state.
type Selector struct{}

// New creates a selector
func New() *Selector {
	return &Selector{}
}

// Select picks the strategy, strike target and trade levels.
//
// The account this feeds has no spread approval, so every state maps
// to LONG_CALL or LONG_PUT: strong and moderate signals take the ATM
// strike, weak and sideways signals take a 3% ITM strike and follow
// the larger directional bias.
func (s *Selector) Select(in Input) (contracts.StrategyRecommendation, error) {
	var rec contracts.StrategyRecommendation

	if in.SpotPrice <= 0 || math.IsNaN(in.SpotPrice) || math.IsInf(in.SpotPrice, 0) {
		return rec, fmt.Errorf("%w: spot price %.4f", contracts.ErrInvalidInput, in.SpotPrice)
	}
	if in.DaysToExpiry <= 0 {
		return rec, fmt.Errorf("%w: days to expiry %d", contracts.ErrInvalidInput, in.DaysToExpiry)
	}
	for _, v := range []float64{in.Bullish, in.Bearish} {
		if v < 0 || v > 100 || math.IsNaN(v) {
			return rec, fmt.Errorf("%w: directional probability %.2f out of [0,100]", contracts.ErrInvalidInput, v)
		}
	}

	direction, strength, dominant := classify(in.Bullish, in.Bearish)

	bullishSide := direction == contracts.Bullish ||
		(direction == contracts.Sideways && in.Bullish >= in.Bearish)

	var name contracts.StrategyName
	var strike float64
	var reasoning string

	atm := strength == Strong || strength == Moderate

	if bullishSide {
		name = contracts.LongCall
		if atm {
			strike = in.SpotPrice
			reasoning = fmt.Sprintf("%s bullish signal (%.1f%%) - ATM call", strength, dominant)
		} else {
			strike = in.SpotPrice * (1 - itmOffset)
			reasoning = fmt.Sprintf("%s signal (%.1f%% bullish bias) - ITM call for consistency", strength, dominant)
		}
	} else {
		name = contracts.LongPut
		if atm {
			strike = in.SpotPrice
			reasoning = fmt.Sprintf("%s bearish signal (%.1f%%) - ATM put", strength, dominant)
		} else {
			strike = in.SpotPrice * (1 + itmOffset)
			reasoning = fmt.Sprintf("%s signal (%.1f%% bearish bias) - ITM put for consistency", strength, dominant)
		}
	}

	expectedReturn := expectedReturnPct(dominant, strength)

	var target, stop float64
	if bullishSide {
		target = in.SpotPrice * (1 + expectedReturn/100)
		stop = in.SpotPrice * (1 - stopLossPct)
	} else {
		target = in.SpotPrice * (1 - expectedReturn/100)
		stop = in.SpotPrice * (1 + stopLossPct)
	}

	rec = contracts.StrategyRecommendation{
		Strategy:          name,
		Reasoning:         reasoning,
		ExpectedReturnPct: expectedReturn,
		Risk:              riskFor(strength),
		StrikeTarget:      strike,
		EntryPrice:        in.SpotPrice,
		TargetPrice:       target,
		StopLoss:          stop,
		Expiry:            in.AsOf.AddDate(0, 0, in.DaysToExpiry),
	}
	return rec, nil
}

// classify determines direction, strength and the dominant probability
func classify(bullish, bearish float64) (contracts.Direction, Strength, float64) {
	dominant := math.Max(bullish, bearish)

	if math.Abs(bullish-bearish) < sidewaysBand {
		return contracts.Sideways, Neutral, dominant
	}

	direction := contracts.Bullish
	if bearish > bullish {
		direction = contracts.Bearish
	}

	switch {
	case dominant > strongThreshold:
		return direction, Strong, dominant
	case dominant > moderateThreshold:
		return direction, Moderate, dominant
	default:
		return direction, Weak, dominant
	}
}

// expectedReturnPct is a rough sizing heuristic, not a priced
// expectation: base 25% scaled by strength and by probability
// normalized around 60%, clamped to [5,35].
func expectedReturnPct(dominant float64, strength Strength) float64 {
	mult := map[Strength]float64{
		Strong:   1.2,
		Moderate: 1.0,
		Weak:     0.8,
		Neutral:  0.9,
	}[strength]

	v := baseReturnPct * mult * (dominant / 60)
	return math.Max(5, math.Min(35, v))
}

func riskFor(strength Strength) contracts.RiskLevel {
	switch strength {
	case Strong:
		return contracts.RiskHigh
	case Moderate:
		return contracts.RiskMedium
	default:
		return contracts.RiskLow
	}
}
