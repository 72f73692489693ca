package blend

import (
	"fmt"
	"math"

	"github.com/wonny/helios/internal/contracts"
)

// Weights are the component mix. Must sum to 1.
type Weights struct {
	MonteCarlo float64
	Historical float64
	Technical  float64
}

// DefaultWeights is the production mix: simulation leads, history and
// technicals split the rest
var DefaultWeights = Weights{
	MonteCarlo: 0.4,
	Historical: 0.3,
	Technical:  0.3,
}

func (w Weights) validate() error {
	for _, v := range []float64{w.MonteCarlo, w.Historical, w.Technical} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative blend weight", contracts.ErrInvalidInput)
		}
	}
	if sum := w.MonteCarlo + w.Historical + w.Technical; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: blend weights sum to %.6f, want 1", contracts.ErrInvalidInput, sum)
	}
	return nil
}

// Thresholds decide when a component counts as a strong, independent
// vote for the confidence label
type Thresholds struct {
	// Monte Carlo distance from the 50% coin flip
	MCDeviation float64
	// Minimum backtest trade count for history to count
	MinTrades int
	// Technical score distance from neutral
	TechDeviation float64
}

// DefaultThresholds matches the calibrated production values
var DefaultThresholds = Thresholds{
	MCDeviation:   20,
	MinTrades:     50,
	TechDeviation: 15,
}

// Blender combines the component probabilities into one score
type Blender struct {
	weights    Weights
	thresholds Thresholds
	extras     []contracts.Signal
}

// New creates a blender; zero-value weights select DefaultWeights
func New(weights Weights, thresholds Thresholds) *Blender {
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Blender{weights: weights, thresholds: thresholds}
}

// WithSignals registers pluggable evidence sources folded into the
// blend. A source reporting zero confidence contributes nothing.
func (b *Blender) WithSignals(extras ...contracts.Signal) *Blender {
	b.extras = append(b.extras, extras...)
	return b
}

// Blend mixes the three component probabilities (each on the 0-100
// scale) into a UnifiedScore. The result is clamped to [0,100]; the
// confidence label counts how many components independently show a
// clear signal: two or more → High, one → Medium, none → Low.
func (b *Blender) Blend(mc, hist, tech float64, trades int) (contracts.UnifiedScore, error) {
	var score contracts.UnifiedScore

	if err := b.weights.validate(); err != nil {
		return score, err
	}
	for _, v := range []float64{mc, hist, tech} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return score, fmt.Errorf("%w: non-finite component probability", contracts.ErrInvalidInput)
		}
	}

	final := b.weights.MonteCarlo*mc + b.weights.Historical*hist + b.weights.Technical*tech

	// Extra signals pull the core blend by their confidence. The core
	// always carries unit weight, so extras can tilt the score but
	// never replace the evidence-based components.
	extraBreakdown := make(map[string]float64, len(b.extras))
	coreWeight, weighted := 1.0, final
	for _, sig := range b.extras {
		s, conf := sig.Score(), sig.Confidence()
		if math.IsNaN(s) || math.IsNaN(conf) || conf <= 0 {
			continue
		}
		conf = clamp(conf, 0, 1)
		p := 50 + 50*clamp(s, -1, 1)
		weighted += conf * p
		coreWeight += conf
		extraBreakdown[sig.Name()] = p
	}
	final = clamp(weighted/coreWeight, 0, 100)

	strong := 0
	if math.Abs(mc-50) > b.thresholds.MCDeviation {
		strong++
	}
	if trades > b.thresholds.MinTrades {
		strong++
	}
	if math.Abs(tech-50) > b.thresholds.TechDeviation {
		strong++
	}

	label := contracts.ConfidenceLow
	switch {
	case strong >= 2:
		label = contracts.ConfidenceHigh
	case strong == 1:
		label = contracts.ConfidenceMedium
	}

	breakdown := map[string]float64{
		"monte_carlo": mc,
		"historical":  hist,
		"technical":   tech,
	}
	for name, p := range extraBreakdown {
		breakdown[name] = p
	}

	score = contracts.UnifiedScore{
		FinalProbability:   final,
		ComponentBreakdown: breakdown,
		Confidence:         label,
	}
	return score, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
