package contracts

import (
	"fmt"
	"math"
	"time"
)

// OptionKind is the single-leg option contract type
type OptionKind string

const (
	Call OptionKind = "CALL"
	Put  OptionKind = "PUT"
)

// MarketSnapshot is the complete market view for one symbol at one
// moment. All analysis operates on a snapshot; the pipeline never
// re-fetches data mid-flight.
type MarketSnapshot struct {
	Symbol string `json:"symbol"`

	// Last traded price, after the most recent historical close
	CurrentPrice float64 `json:"current_price"`

	// Annualized realized volatility (0.25 = 25%)
	RealizedVolatility float64 `json:"realized_volatility"`

	// Daily closes in chronological order
	HistoricalCloses []float64 `json:"historical_closes"`

	AsOf time.Time `json:"as_of"`
}

// OptionContract describes the single-leg contract under analysis
type OptionContract struct {
	Strike       float64    `json:"strike"`
	DaysToExpiry int        `json:"days_to_expiry"`
	Kind         OptionKind `json:"kind"`
}

// Validate checks the snapshot invariants
func (m *MarketSnapshot) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	if m.CurrentPrice <= 0 || math.IsNaN(m.CurrentPrice) || math.IsInf(m.CurrentPrice, 0) {
		return fmt.Errorf("%w: current price %.4f", ErrInvalidInput, m.CurrentPrice)
	}
	if m.RealizedVolatility < 0 || math.IsNaN(m.RealizedVolatility) || math.IsInf(m.RealizedVolatility, 0) {
		return fmt.Errorf("%w: realized volatility %.4f", ErrInvalidInput, m.RealizedVolatility)
	}
	for i, c := range m.HistoricalCloses {
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: close[%d]=%.4f", ErrInvalidInput, i, c)
		}
	}
	return nil
}

// Validate checks the contract invariants against the allowed horizon
func (o *OptionContract) Validate(minDays, maxDays int) error {
	if o.Strike <= 0 || math.IsNaN(o.Strike) || math.IsInf(o.Strike, 0) {
		return fmt.Errorf("%w: strike %.4f", ErrInvalidInput, o.Strike)
	}
	if o.DaysToExpiry < minDays || o.DaysToExpiry > maxDays {
		return fmt.Errorf("%w: days to expiry %d outside horizon %d-%d",
			ErrInvalidInput, o.DaysToExpiry, minDays, maxDays)
	}
	if o.Kind != Call && o.Kind != Put {
		return fmt.Errorf("%w: option kind %q", ErrInvalidInput, o.Kind)
	}
	return nil
}
