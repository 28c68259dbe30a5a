package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// ReturnStatistics holds the sample mean and sample standard deviation of a
// return series.
type ReturnStatistics struct {
	Mean         float64
	Dispersion   float64
	Observations int
}

// Estimate computes the arithmetic mean and the Bessel-corrected standard
// deviation of series.
func Estimate(series ReturnSeries) (ReturnStatistics, error) {
	n := len(series)
	if n < 2 {
		return ReturnStatistics{}, errors.InsufficientData("at least 2 observations are required to estimate dispersion")
	}

	// Shift by the first observation so a constant series gives an exact
	// mean and a zero dispersion.
	origin := series[0]
	shifted := make([]float64, n)
	for i, r := range series {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return ReturnStatistics{}, errors.InvalidParameterf("observation %d is not finite: %v", i, r)
		}
		shifted[i] = r - origin
	}

	mean, std := stat.MeanStdDev(shifted, nil)

	return ReturnStatistics{
		Mean:         origin + mean,
		Dispersion:   std,
		Observations: n,
	}, nil
}
