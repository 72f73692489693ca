package pricing

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/wonny/helios/internal/contracts"
)

// TradingDaysPerYear converts days-to-expiry into the GBM time step
const TradingDaysPerYear = 252.0

// PayoffConvention selects which side of the strike counts as
// favorable.
//
// SellerSafe mirrors the credit-spread framing: for a PUT the reported
// probability is P(S_T > strike) (the short side stays safe), for a
// CALL it is P(S_T < strike). LongPayoff is the standard long-option
// reading with both inequalities inverted. The convention is an
// explicit parameter so callers can never confuse the two.
type PayoffConvention int

const (
	SellerSafe PayoffConvention = iota
	LongPayoff
)

// ValidationPolicy controls how degenerate inputs are handled
type ValidationPolicy int

const (
	// Strict rejects non-positive price/strike/vol/days with
	// ErrInvalidInput. Default.
	Strict ValidationPolicy = iota

	// Permissive substitutes operational defaults ($100 spot,
	// strike=spot, 1 day, 20% vol) instead of failing. For best-effort
	// scan loops only; must be chosen explicitly.
	Permissive
)

// EstimateInput are the parameters for one estimation call
type EstimateInput struct {
	SpotPrice    float64
	Volatility   float64 // annualized
	DaysToExpiry int
	Strike       float64
	Kind         contracts.OptionKind

	NumPaths     int     // 0 = DefaultNumPaths
	RiskFreeRate float64 // 0 = DefaultRiskFreeRate
}

// Estimator config defaults
const (
	DefaultNumPaths     = 10000
	DefaultRiskFreeRate = 0.045
)

// Config holds estimator configuration
type Config struct {
	Convention PayoffConvention
	Policy     ValidationPolicy
	Seed       int64 // 0 = time-seeded (results vary run to run)
}

// Estimator runs risk-neutral Monte Carlo terminal-price simulations
type Estimator struct {
	config Config
	rng    *rand.Rand
}

// New creates a new estimator
func New(config Config) *Estimator {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewSource(config.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Estimator{
		config: config,
		rng:    rng,
	}
}

// Estimate simulates terminal prices under GBM and returns the payoff
// probability with analytic Greeks and a 95% terminal-price band.
func (e *Estimator) Estimate(ctx context.Context, in EstimateInput) (contracts.ProbabilityEstimate, error) {
	var result contracts.ProbabilityEstimate

	in, err := e.normalize(in)
	if err != nil {
		return result, err
	}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	s0 := in.SpotPrice
	sigma := in.Volatility
	r := in.RiskFreeRate
	dt := float64(in.DaysToExpiry) / TradingDaysPerYear
	drift := (r - 0.5*sigma*sigma) * dt
	diffusion := sigma * math.Sqrt(dt)

	finalPrices := make([]float64, in.NumPaths)
	favorable := 0
	var sum, sumSq float64

	for i := range finalPrices {
		z := e.rng.NormFloat64()
		st := s0 * math.Exp(drift+diffusion*z)
		finalPrices[i] = st
		sum += st
		sumSq += st * st

		if e.isFavorable(st, in.Strike, in.Kind) {
			favorable++
		}
	}

	n := float64(in.NumPaths)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	low, high := percentileBand(finalPrices, 2.5, 97.5)

	result = contracts.ProbabilityEstimate{
		MonteCarloProbability: float64(favorable) / n * 100,
		Greeks:                blackScholesGreeks(in),
		ConfidenceInterval95:  contracts.ConfidenceInterval{Low: low, High: high},
		MeanFinalPrice:        mean,
		StdFinalPrice:         math.Sqrt(variance),
		NumPaths:              in.NumPaths,
	}
	return result, nil
}

// ClosedFormProbability is the analytic counterpart of the Monte Carlo
// probability under the same convention: lognormal terminal price, so
// P(S_T > K) = N(d2) with d2 computed on the trading-day clock.
func (e *Estimator) ClosedFormProbability(in EstimateInput) (float64, error) {
	in, err := e.normalize(in)
	if err != nil {
		return 0, err
	}

	t := float64(in.DaysToExpiry) / TradingDaysPerYear
	sigmaSqrtT := in.Volatility * math.Sqrt(t)
	d2 := (math.Log(in.SpotPrice/in.Strike) + (in.RiskFreeRate-0.5*in.Volatility*in.Volatility)*t) / sigmaSqrtT

	above := normCDF(d2) // P(S_T > strike)

	if e.isFavorable(in.Strike+1, in.Strike, in.Kind) {
		return above * 100, nil
	}
	return (1 - above) * 100, nil
}

// isFavorable applies the configured payoff convention
func (e *Estimator) isFavorable(terminal, strike float64, kind contracts.OptionKind) bool {
	above := terminal > strike
	if kind == contracts.Put {
		if e.config.Convention == SellerSafe {
			return above
		}
		return !above
	}
	// CALL
	if e.config.Convention == SellerSafe {
		return !above
	}
	return above
}

// normalize validates inputs per policy and fills defaults
func (e *Estimator) normalize(in EstimateInput) (EstimateInput, error) {
	if in.NumPaths <= 0 {
		in.NumPaths = DefaultNumPaths
	}
	if in.RiskFreeRate == 0 {
		in.RiskFreeRate = DefaultRiskFreeRate
	}

	if in.Kind != contracts.Call && in.Kind != contracts.Put {
		return in, fmt.Errorf("%w: option kind %q", contracts.ErrInvalidInput, in.Kind)
	}

	// Non-finite values are rejected under every policy
	for _, v := range []float64{in.SpotPrice, in.Volatility, in.Strike, in.RiskFreeRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return in, fmt.Errorf("%w: non-finite estimator input", contracts.ErrInvalidInput)
		}
	}

	if e.config.Policy == Permissive {
		if in.SpotPrice <= 0 {
			in.SpotPrice = 100.0
		}
		if in.Strike <= 0 {
			in.Strike = in.SpotPrice
		}
		if in.DaysToExpiry <= 0 {
			in.DaysToExpiry = 1
		}
		if in.Volatility <= 0 {
			in.Volatility = 0.20
		}
		return in, nil
	}

	if in.SpotPrice <= 0 {
		return in, fmt.Errorf("%w: spot price %.4f", contracts.ErrInvalidInput, in.SpotPrice)
	}
	if in.Strike <= 0 {
		return in, fmt.Errorf("%w: strike %.4f", contracts.ErrInvalidInput, in.Strike)
	}
	if in.DaysToExpiry <= 0 {
		return in, fmt.Errorf("%w: days to expiry %d", contracts.ErrInvalidInput, in.DaysToExpiry)
	}
	if in.Volatility <= 0 {
		return in, fmt.Errorf("%w: volatility %.4f", contracts.ErrInvalidInput, in.Volatility)
	}

	return in, nil
}

// percentileBand returns the (lowPct, highPct) percentiles of prices.
// Sorts a copy; the simulation order is not disturbed.
func percentileBand(prices []float64, lowPct, highPct float64) (float64, float64) {
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	return percentile(sorted, lowPct), percentile(sorted, highPct)
}

// percentile on pre-sorted data with linear interpolation
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
