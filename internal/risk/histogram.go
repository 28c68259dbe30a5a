package risk

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// Histogram holds equal-width bin counts of a SampleSet for rendering.
// Bin i covers [Dividers[i], Dividers[i+1]).
type Histogram struct {
	Dividers []float64
	Counts   []float64
}

// Histogram bins the samples into bins equal-width buckets spanning the
// sample range.
func (s SampleSet) Histogram(bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, errors.InvalidParameterf("bin count must be at least 1, got %d", bins)
	}
	if len(s.values) == 0 {
		return Histogram{}, errors.InvalidParameter("cannot bin an empty sample set")
	}

	sorted := slices.Clone(s.values)
	slices.Sort(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		return Histogram{}, errors.InvalidParameter("cannot bin non-finite samples")
	}

	// the last divider must lie strictly above the maximum
	dividers := floats.Span(make([]float64, bins+1), lo, math.Nextafter(hi, math.Inf(1)))
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)

	return Histogram{Dividers: dividers, Counts: counts}, nil
}
