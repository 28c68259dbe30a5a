package risk

import (
	"math"
	"slices"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// Domain-conventional percentile levels: 1% for VaR, 2.5% for ES.
var DefaultPercentiles = []float64{1.0, 2.5}

// ValueAtRisk returns the empirical percentile of samples at level
// percentile, read from the left tail of terminal growth factors.
func ValueAtRisk(samples SampleSet, percentile float64) (float64, error) {
	if err := validateMetricInputs(samples, []float64{percentile}); err != nil {
		return 0, err
	}

	return percentileOfSorted(sortedValues(samples), percentile), nil
}

func validateMetricInputs(samples SampleSet, percentiles []float64) error {
	if samples.Len() == 0 {
		return errors.InvalidParameter("sample set is empty")
	}

	for _, p := range percentiles {
		if !(p > 0 && p < 100) {
			return errors.InvalidParameterf("percentile must be in (0, 100), got %v", p)
		}
	}

	for i, v := range samples.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.InvalidParameterf("sample %d is not finite: %v", i, v)
		}
	}

	return nil
}

func sortedValues(samples SampleSet) []float64 {
	sorted := slices.Clone(samples.values)
	slices.Sort(sorted)
	return sorted
}

// percentileOfSorted interpolates linearly between the order statistics
// around rank p/100·(n-1).
func percentileOfSorted(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)

	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
