package risk

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

const (
	DefaultHorizonLength = 10
	DefaultTrialCount    = 10_000
	DefaultTailIndex     = 1.99
)

// CalculatorConfig contains configuration for the risk calculator
type CalculatorConfig struct {
	HorizonLength  int
	TrialCount     int
	Percentiles    []float64
	TailIndex      float64
	Skew           float64
	Seed           int64
	HistoricalDays int
	HistogramBins  int
	Workers        int
	BatchSize      int
}

// HistoricalDataStore provides ordered historical prices for an instrument
type HistoricalDataStore interface {
	GetHistoricalPrices(symbol string, days int) ([]float64, error)
}

// MetricsRecorder receives the outcome of every analysis
type MetricsRecorder interface {
	RecordSimulation(model string, trials int, latency time.Duration)
	RecordRiskMetric(symbol, model string, percentile float64, horizon int, valueAtRisk, expectedShortfall float64)
	RecordDegenerateSample(symbol, model string, percentile float64)
}

// Analysis is one fully specified VaR/ES run over a return series
type Analysis struct {
	Symbol        string
	Returns       ReturnSeries
	HorizonLength int
	TrialCount    int
	Percentiles   []float64
	TailIndex     float64
	Skew          float64
	Seed          int64
	HistogramBins int
}

// Calculator estimates VaR and ES for single instruments under the Gaussian
// and the stable-tail return models
type Calculator struct {
	config              CalculatorConfig
	simulator           *Simulator
	historicalDataStore HistoricalDataStore
	recorder            MetricsRecorder
	log                 *logger.Logger
}

// NewCalculator creates a new risk calculator. recorder may be nil.
func NewCalculator(config CalculatorConfig, historicalDataStore HistoricalDataStore, recorder MetricsRecorder) *Calculator {
	if config.HorizonLength <= 0 {
		config.HorizonLength = DefaultHorizonLength
	}

	if config.TrialCount <= 0 {
		config.TrialCount = DefaultTrialCount
	}

	if len(config.Percentiles) == 0 {
		config.Percentiles = slices.Clone(DefaultPercentiles)
	}

	if config.TailIndex == 0 {
		config.TailIndex = DefaultTailIndex
	}

	if config.HistoricalDays < 0 {
		config.HistoricalDays = 0
	}

	return &Calculator{
		config: config,
		simulator: NewSimulator(SimulatorConfig{
			Workers:   config.Workers,
			BatchSize: config.BatchSize,
		}),
		historicalDataStore: historicalDataStore,
		recorder:            recorder,
		log:                 logger.GetLogger("risk.calculator"),
	}
}

// Config returns the effective configuration
func (c *Calculator) Config() CalculatorConfig {
	return c.config
}

// NewAnalysis returns an analysis of returns with every knob at the
// calculator's configured value
func (c *Calculator) NewAnalysis(symbol string, returns ReturnSeries) Analysis {
	return Analysis{
		Symbol:        symbol,
		Returns:       returns,
		HorizonLength: c.config.HorizonLength,
		TrialCount:    c.config.TrialCount,
		Percentiles:   slices.Clone(c.config.Percentiles),
		TailIndex:     c.config.TailIndex,
		Skew:          c.config.Skew,
		Seed:          c.config.Seed,
		HistogramBins: c.config.HistogramBins,
	}
}

// CalculateRiskMetrics runs the configured analysis on the stored price
// history of symbol
func (c *Calculator) CalculateRiskMetrics(ctx context.Context, symbol string) (*models.RiskReport, error) {
	if c.historicalDataStore == nil {
		return nil, errors.Internal("no historical data store configured")
	}

	prices, err := c.historicalDataStore.GetHistoricalPrices(symbol, c.config.HistoricalDays)
	if err != nil {
		c.log.Errorf("Failed to get historical prices for %s: %v", symbol, err)
		return nil, err
	}

	returns, err := ReturnsFromPrices(prices)
	if err != nil {
		return nil, errors.Wrapf(err, "derive returns for %s", symbol)
	}

	return c.Run(ctx, c.NewAnalysis(symbol, returns))
}

// Run estimates the return statistics, calibrates both models to them,
// simulates each model and reduces the samples to VaR/ES
func (c *Calculator) Run(ctx context.Context, a Analysis) (*models.RiskReport, error) {
	startTime := time.Now()

	if a.HistogramBins < 0 {
		return nil, errors.InvalidParameterf("histogram bin count must not be negative, got %d", a.HistogramBins)
	}

	stats, err := Estimate(a.Returns)
	if err != nil {
		return nil, errors.Wrapf(err, "estimate return statistics for %s", a.Symbol)
	}

	returnModels := []Model{
		Gaussian{Mean: stats.Mean, Dispersion: stats.Dispersion},
		StableTail{
			TailIndex: a.TailIndex,
			Skew:      a.Skew,
			Mean:      stats.Mean,
			Scale:     StableScaleFromDispersion(stats.Dispersion),
		},
	}

	// fail before any simulation work starts
	for _, m := range returnModels {
		if err := m.Validate(); err != nil {
			return nil, errors.Wrapf(err, "calibrate %s model for %s", m.Name(), a.Symbol)
		}
	}
	if err := validateMetricInputs(SampleSet{values: []float64{0}}, a.Percentiles); err != nil {
		return nil, err
	}
	if a.HorizonLength < 1 || a.TrialCount < 1 {
		return nil, errors.InvalidParameterf("horizon length and trial count must be at least 1, got %d and %d",
			a.HorizonLength, a.TrialCount)
	}

	streams := NewSeededStreams(a.Seed)
	report := &models.RiskReport{
		ID:            uuid.NewString(),
		Symbol:        a.Symbol,
		Timestamp:     time.Now(),
		Seed:          streams.Seed,
		HorizonLength: a.HorizonLength,
		TrialCount:    a.TrialCount,
		Statistics: models.ReturnStatistics{
			Mean:         stats.Mean,
			Dispersion:   stats.Dispersion,
			Observations: stats.Observations,
		},
	}

	c.log.Infof("Starting VaR/ES analysis for %s: %d trials, horizon %d, seed %d",
		a.Symbol, a.TrialCount, a.HorizonLength, streams.Seed)

	for _, m := range returnModels {
		simStart := time.Now()
		samples, err := c.simulator.Simulate(ctx, m, a.HorizonLength, a.TrialCount, streams)
		if err != nil {
			c.log.Errorf("Simulation under %s failed for %s: %v", m.Name(), a.Symbol, err)
			return nil, err
		}
		if c.recorder != nil {
			c.recorder.RecordSimulation(m.Name(), a.TrialCount, time.Since(simStart))
		}

		result, err := c.summarize(a, m.Name(), describeModel(m), samples)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, result)
	}

	report.Historical = c.historicalReference(a)

	c.log.Infof("Completed VaR/ES analysis for %s in %v", a.Symbol, time.Since(startTime))
	return report, nil
}

// historicalReference applies the same metrics to the observed
// non-overlapping horizon windows; nil when the history is too short
func (c *Calculator) historicalReference(a Analysis) *models.ModelResult {
	windows, err := HistoricalHorizonReturns(a.Returns, a.HorizonLength)
	if err != nil {
		c.log.Debugf("No historical reference for %s: %v", a.Symbol, err)
		return nil
	}

	result, err := c.summarize(a, models.ModelHistorical, nil, SampleSet{values: windows})
	if err != nil {
		c.log.Warnf("Historical reference for %s failed: %v", a.Symbol, err)
		return nil
	}
	return &result
}

func (c *Calculator) summarize(a Analysis, model string, params map[string]float64, samples SampleSet) (models.ModelResult, error) {
	metrics, err := ComputeMetrics(samples, a.Percentiles)
	if err != nil {
		return models.ModelResult{}, err
	}

	result := models.ModelResult{
		Model:      model,
		Parameters: params,
		Samples:    samples.Len(),
		Metrics:    make([]models.MetricRow, len(metrics)),
	}

	for i, m := range metrics {
		row := models.MetricRow{Percentile: m.Percentile, ValueAtRisk: m.VaR}
		if m.Err != nil {
			row.Error = m.Err.Error()
			if c.recorder != nil {
				c.recorder.RecordDegenerateSample(a.Symbol, model, m.Percentile)
			}
		} else {
			es := m.ES
			row.ExpectedShortfall = &es
			if c.recorder != nil {
				c.recorder.RecordRiskMetric(a.Symbol, model, m.Percentile, a.HorizonLength, m.VaR, m.ES)
			}
		}
		result.Metrics[i] = row
	}

	if a.HistogramBins > 0 {
		h, err := samples.Histogram(a.HistogramBins)
		if err != nil {
			c.log.Warnf("Skipping %s histogram for %s: %v", model, a.Symbol, err)
		} else {
			result.Histogram = &models.Histogram{Dividers: h.Dividers, Counts: h.Counts}
		}
	}

	return result, nil
}

func describeModel(m Model) map[string]float64 {
	switch v := m.(type) {
	case Gaussian:
		return map[string]float64{"mean": v.Mean, "dispersion": v.Dispersion}
	case StableTail:
		return map[string]float64{
			"tail_index": v.TailIndex,
			"skew":       v.Skew,
			"mean":       v.Mean,
			"scale":      v.Scale,
		}
	default:
		return nil
	}
}
