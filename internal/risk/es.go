package risk

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// RiskMetrics holds VaR and ES at one percentile level. Err is set, and ES is
// meaningless, when the tail below VaR is empty.
type RiskMetrics struct {
	Percentile float64
	VaR        float64
	ES         float64
	Err        error
}

// ExpectedShortfall returns the mean of every sample strictly below the VaR
// at percentile.
func ExpectedShortfall(samples SampleSet, percentile float64) (float64, error) {
	metrics, err := ComputeMetrics(samples, []float64{percentile})
	if err != nil {
		return 0, err
	}
	return metrics[0].ES, metrics[0].Err
}

// ComputeMetrics reduces samples to one RiskMetrics per requested percentile,
// in request order. Invalid input fails the whole call; an empty tail only
// fails its own entry.
func ComputeMetrics(samples SampleSet, percentiles []float64) ([]RiskMetrics, error) {
	if err := validateMetricInputs(samples, percentiles); err != nil {
		return nil, err
	}

	sorted := sortedValues(samples)
	out := make([]RiskMetrics, len(percentiles))
	for i, p := range percentiles {
		valueAtRisk := percentileOfSorted(sorted, p)
		out[i] = RiskMetrics{Percentile: p, VaR: valueAtRisk}

		// number of samples strictly below the threshold
		tail := sort.SearchFloat64s(sorted, valueAtRisk)
		if tail == 0 {
			out[i].Err = errors.DegenerateSample(
				"no sample lies strictly below the VaR threshold at this percentile")
			continue
		}

		out[i].ES = stat.Mean(sorted[:tail], nil)
	}

	return out, nil
}
