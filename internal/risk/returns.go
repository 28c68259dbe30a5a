package risk

import (
	"math"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// ReturnSeries is an ordered sequence of single-period percentage changes,
// indexed by period. Callers own it and must not mutate it while in use.
type ReturnSeries []float64

// ReturnsFromPrices converts an ordered price series into period returns
// (price[t]-price[t-1])/price[t-1]. The first price has no predecessor, so the
// result is one element shorter than the input.
func ReturnsFromPrices(prices []float64) (ReturnSeries, error) {
	if len(prices) < 2 {
		return nil, errors.InsufficientData("at least 2 prices are required to derive a return")
	}

	returns := make(ReturnSeries, len(prices)-1)
	for t := 1; t < len(prices); t++ {
		prev := prices[t-1]
		if !(prev > 0) || math.IsInf(prev, 0) {
			return nil, errors.InvalidParameterf("price at period %d must be positive and finite, got %v", t-1, prev)
		}
		if math.IsNaN(prices[t]) || math.IsInf(prices[t], 0) {
			return nil, errors.InvalidParameterf("price at period %d must be finite, got %v", t, prices[t])
		}
		returns[t-1] = (prices[t] - prev) / prev
	}

	return returns, nil
}

// HistoricalHorizonReturns compounds consecutive, non-overlapping windows of
// horizon returns into gross growth factors. A trailing partial window is
// discarded. The result is the observed counterpart of a simulated SampleSet.
func HistoricalHorizonReturns(series ReturnSeries, horizon int) ([]float64, error) {
	if horizon < 1 {
		return nil, errors.InvalidParameterf("horizon must be at least 1, got %d", horizon)
	}

	windows := len(series) / horizon
	if windows == 0 {
		return nil, errors.InsufficientData("series is shorter than one horizon")
	}

	out := make([]float64, windows)
	for w := range windows {
		out[w] = compound(series[w*horizon : (w+1)*horizon])
	}

	return out, nil
}

// compound returns the gross growth factor of a path of period returns.
func compound(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth
}
