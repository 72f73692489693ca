package signals

import (
	"fmt"
	"math"

	"github.com/wonny/helios/internal/contracts"
)

// First-order Markov regime model over combined (return, volatility)
// states. Daily returns fall into five bands, the rolling 20-day
// annualized volatility into three, giving 15 combined states. The
// transition matrix is estimated from the observed state sequence and
// the forecast aggregates next-state mass by direction.

// PriceState is the daily-return band
type PriceState int

const (
	StrongDown   PriceState = iota // < -1.5%
	ModerateDown                   // -1.5% to -0.2%
	Lateral                        // -0.2% to +0.2%
	ModerateUp                     // +0.2% to +1.5%
	StrongUp                       // > +1.5%

	numPriceStates = 5
)

func (p PriceState) String() string {
	switch p {
	case StrongDown:
		return "STRONG_DOWN"
	case ModerateDown:
		return "MODERATE_DOWN"
	case Lateral:
		return "LATERAL"
	case ModerateUp:
		return "MODERATE_UP"
	case StrongUp:
		return "STRONG_UP"
	}
	return "UNKNOWN"
}

// VolState is the annualized-volatility band
type VolState int

const (
	LowVol  VolState = iota // < 20%
	MidVol                  // 20% to 40%
	HighVol                 // > 40%

	numVolStates = 3
)

func (v VolState) String() string {
	switch v {
	case LowVol:
		return "LOW_VOL"
	case MidVol:
		return "MID_VOL"
	case HighVol:
		return "HIGH_VOL"
	}
	return "UNKNOWN"
}

const (
	numStates = numPriceStates * numVolStates

	strongReturn   = 0.015
	moderateReturn = 0.002

	lowVolBound  = 0.20
	highVolBound = 0.40

	volWindow = 20
)

func classifyReturn(r float64) PriceState {
	switch {
	case r > strongReturn:
		return StrongUp
	case r > moderateReturn:
		return ModerateUp
	case r >= -moderateReturn:
		return Lateral
	case r >= -strongReturn:
		return ModerateDown
	default:
		return StrongDown
	}
}

func classifyVol(v float64) VolState {
	switch {
	case v < lowVolBound:
		return LowVol
	case v <= highVolBound:
		return MidVol
	default:
		return HighVol
	}
}

func combinedState(p PriceState, v VolState) int {
	return int(p)*numVolStates + int(v)
}

func stateName(idx int) string {
	p := PriceState(idx / numVolStates)
	v := VolState(idx % numVolStates)
	return fmt.Sprintf("%s_%s", p, v)
}

// RegimeClassifier holds the fitted transition matrix
type RegimeClassifier struct {
	matrix    [numStates][numStates]float64
	lastState int
	fitted    bool
}

// NewRegimeClassifier creates an unfitted classifier
func NewRegimeClassifier() *RegimeClassifier {
	return &RegimeClassifier{lastState: -1}
}

// Fit estimates the transition matrix from a close series. Rolling
// 20-day annualized volatility of returns stands in for implied vol.
// Needs at least volWindow+2 closes to observe one transition.
func (rc *RegimeClassifier) Fit(closes []float64) error {
	returns := dailyReturns(closes)
	if len(returns) < volWindow+1 {
		return fmt.Errorf("%w: %d returns, need %d for the regime model", contracts.ErrInsufficientData, len(returns), volWindow+1)
	}

	// State sequence starts once the vol window fills
	var sequence []int
	for i := volWindow - 1; i < len(returns); i++ {
		r := returns[i]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		vol := annualizedVol(returns[i-volWindow+1 : i+1])
		sequence = append(sequence, combinedState(classifyReturn(r), classifyVol(vol)))
	}
	if len(sequence) < 2 {
		return fmt.Errorf("%w: no usable state transitions", contracts.ErrInsufficientData)
	}

	var counts [numStates][numStates]float64
	for i := 0; i < len(sequence)-1; i++ {
		counts[sequence[i]][sequence[i+1]]++
	}

	for i := range counts {
		var rowSum float64
		for _, c := range counts[i] {
			rowSum += c
		}
		if rowSum > 0 {
			for j := range counts[i] {
				rc.matrix[i][j] = counts[i][j] / rowSum
			}
		} else {
			// Unvisited state: uniform row so prediction stays a
			// distribution
			for j := range counts[i] {
				rc.matrix[i][j] = 1.0 / numStates
			}
		}
	}

	rc.lastState = sequence[len(sequence)-1]
	rc.fitted = true
	return nil
}

// Forecast aggregates the next-state distribution from the last
// observed state into directional mass. Stability is the dominant
// share: how much of the distribution agrees with the call.
func (rc *RegimeClassifier) Forecast() (contracts.RegimeForecast, error) {
	if !rc.fitted {
		return contracts.RegimeForecast{}, fmt.Errorf("%w: regime model not fitted", contracts.ErrInsufficientData)
	}

	row := rc.matrix[rc.lastState]

	var forecast contracts.RegimeForecast
	forecast.State = stateName(rc.lastState)

	for idx, prob := range row {
		switch PriceState(idx / numVolStates) {
		case StrongUp, ModerateUp:
			forecast.Bullish += prob
		case StrongDown, ModerateDown:
			forecast.Bearish += prob
		default:
			forecast.Lateral += prob
		}
	}

	forecast.Stability = math.Max(forecast.Bullish, math.Max(forecast.Bearish, forecast.Lateral))
	return forecast, nil
}

// FitForecast is the one-shot convenience used by the pipeline
func FitForecast(closes []float64) (contracts.RegimeForecast, error) {
	rc := NewRegimeClassifier()
	if err := rc.Fit(closes); err != nil {
		return contracts.RegimeForecast{}, err
	}
	return rc.Forecast()
}

// RealizedVolatility is the annualized standard deviation of daily
// returns over the trailing window. The whole series is used when it
// is shorter than the window; zero when fewer than three closes.
func RealizedVolatility(closes []float64, window int) float64 {
	returns := dailyReturns(closes)
	if window > 0 && len(returns) > window {
		returns = returns[len(returns)-window:]
	}
	return annualizedVol(returns)
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

func annualizedVol(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	return std * math.Sqrt(252)
}
