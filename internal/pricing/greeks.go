package pricing

import (
	"math"

	"github.com/wonny/helios/internal/contracts"
)

// CalendarDaysPerYear is the Greeks clock. Theta decays on calendar
// time while the simulation steps on trading days, so the two horizons
// intentionally use different year conventions.
const CalendarDaysPerYear = 365.0

// blackScholesGreeks computes the analytic sensitivities for the
// contract in the input. Inputs are already normalized.
func blackScholesGreeks(in EstimateInput) contracts.Greeks {
	s := in.SpotPrice
	k := in.Strike
	r := in.RiskFreeRate
	sigma := in.Volatility
	t := float64(in.DaysToExpiry) / CalendarDaysPerYear

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	pdf := normPDF(d1)
	discount := math.Exp(-r * t)

	var g contracts.Greeks

	if in.Kind == contracts.Call {
		g.Delta = normCDF(d1)
		g.Theta = (-s*pdf*sigma/(2*sqrtT) - r*k*discount*normCDF(d2)) / CalendarDaysPerYear
	} else {
		g.Delta = -normCDF(-d1)
		g.Theta = (-s*pdf*sigma/(2*sqrtT) + r*k*discount*normCDF(-d2)) / CalendarDaysPerYear
	}

	// Denominator can underflow for very short-dated deep contracts
	if denom := s * sigma * sqrtT; denom > 0 {
		g.Gamma = pdf / denom
	}
	g.Vega = s * pdf * sqrtT / 100

	return g
}

// normCDF is the standard normal cumulative distribution
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal density
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
