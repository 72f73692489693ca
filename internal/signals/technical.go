package signals

// Technical probability from support/resistance plus an RSI tilt.
//
// The base reading is the share of recent closes on the safe side of
// the strike: above it when the strike sits below spot (bull-put
// framing), below it otherwise. RSI(14) then scales the result toward
// or away from the directional read. Output on the 0-100 probability
// scale, clamped to [5,95].

const (
	technicalLookback = 50
	rsiPeriod         = 14

	technicalFloor = 5.0
	technicalCeil  = 95.0
)

// TechnicalProbability scores how reliably the recent tape held the
// strike level. Returns neutral 50 when the series is too short for
// RSI; thin data is a business outcome here, not an error.
func TechnicalProbability(closes []float64, currentPrice, strike float64) float64 {
	if len(closes) < rsiPeriod+1 || currentPrice <= 0 || strike <= 0 {
		return 50
	}

	recent := closes
	if len(recent) > technicalLookback {
		recent = recent[len(recent)-technicalLookback:]
	}

	bullFraming := strike < currentPrice

	held := 0
	for _, c := range recent {
		if bullFraming {
			if c > strike {
				held++
			}
		} else {
			if c < strike {
				held++
			}
		}
	}
	holds := float64(held) / float64(len(recent)) * 100

	rsi := RSI(closes, rsiPeriod)

	adjustment := 1.0
	switch {
	case rsi < 30: // oversold, bullish pressure
		if bullFraming {
			adjustment = 1.1
		} else {
			adjustment = 0.9
		}
	case rsi > 70: // overbought, bearish pressure
		if bullFraming {
			adjustment = 0.9
		} else {
			adjustment = 1.1
		}
	}

	return clamp(holds*adjustment, technicalFloor, technicalCeil)
}

// RSI computes the relative strength index over the trailing period
// using simple averages of gains and losses. Returns neutral 50 when
// the series cannot cover one full period.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
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
