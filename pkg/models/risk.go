package models

import (
	"time"
)

// Model names used in reports
const (
	ModelGaussian   = "gaussian"
	ModelStableTail = "stable_tail"
	ModelHistorical = "historical"
)

// ReturnStatistics summarizes the historical return series a report was calibrated on
type ReturnStatistics struct {
	Mean         float64 `json:"mean"`
	Dispersion   float64 `json:"dispersion"`
	Observations int     `json:"observations"`
}

// MetricRow is VaR and ES at one percentile level. ES is nil when the tail
// below VaR was empty; Error then says why.
type MetricRow struct {
	Percentile        float64  `json:"percentile"`
	ValueAtRisk       float64  `json:"var"`
	ExpectedShortfall *float64 `json:"es,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Histogram carries binned terminal growth factors for plotting
type Histogram struct {
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
}

// ModelResult holds the metrics of one return model
type ModelResult struct {
	Model      string             `json:"model"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Samples    int                `json:"samples"`
	Metrics    []MetricRow        `json:"metrics"`
	Histogram  *Histogram         `json:"histogram,omitempty"`
}

// Metric returns the row for percentile, if present
func (r ModelResult) Metric(percentile float64) (MetricRow, bool) {
	for _, row := range r.Metrics {
		if row.Percentile == percentile {
			return row, true
		}
	}
	return MetricRow{}, false
}

// RiskReport is the outcome of one VaR/ES analysis of a single instrument
type RiskReport struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	Timestamp     time.Time        `json:"timestamp"`
	Seed          uint64           `json:"seed"`
	HorizonLength int              `json:"horizon_length"`
	TrialCount    int              `json:"trial_count"`
	Statistics    ReturnStatistics `json:"statistics"`
	Results       []ModelResult    `json:"results"`
	Historical    *ModelResult     `json:"historical,omitempty"`
}

// Result returns the simulated result for the named model, if present
func (r *RiskReport) Result(model string) (ModelResult, bool) {
	for _, res := range r.Results {
		if res.Model == model {
			return res, true
		}
	}
	return ModelResult{}, false
}
