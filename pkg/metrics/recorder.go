package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Simulation metrics
	simulationCounter *prometheus.CounterVec
	trialCounter      *prometheus.CounterVec
	simulationLatency *prometheus.HistogramVec

	// Risk metrics
	varGauge          *prometheus.GaugeVec
	esGauge           *prometheus.GaugeVec
	degenerateCounter *prometheus.CounterVec

	// Delivery metrics
	reportsPublished *prometheus.CounterVec
	websocketClients prometheus.Gauge

	// System metrics
	memoryUsageGauge    prometheus.Gauge
	goroutineCountGauge prometheus.Gauge
}

// NewRecorder creates a recorder whose metrics are registered with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vares_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vares_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		// Simulation metrics
		simulationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vares_simulations_total",
				Help: "The total number of Monte Carlo runs",
			},
			[]string{"model"},
		),
		trialCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vares_simulation_trials_total",
				Help: "The total number of simulated trials",
			},
			[]string{"model"},
		),
		simulationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vares_simulation_latency_seconds",
				Help:    "Monte Carlo run latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // From 1ms to ~33s
			},
			[]string{"model"},
		),

		// Risk metrics
		varGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vares_var_value",
				Help: "Value at Risk as a terminal gross growth factor",
			},
			[]string{"symbol", "model", "percentile", "horizon"},
		),
		esGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vares_es_value",
				Help: "Expected Shortfall as a terminal gross growth factor",
			},
			[]string{"symbol", "model", "percentile", "horizon"},
		),
		degenerateCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vares_degenerate_samples_total",
				Help: "Percentiles whose tail below VaR was empty",
			},
			[]string{"symbol", "model", "percentile"},
		),

		// Delivery metrics
		reportsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vares_reports_published_total",
				Help: "Risk reports handed to a delivery channel",
			},
			[]string{"channel", "status"},
		),
		websocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vares_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),

		// System metrics
		memoryUsageGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vares_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vares_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordSimulation records one Monte Carlo run
func (r *Recorder) RecordSimulation(model string, trials int, latency time.Duration) {
	r.simulationCounter.WithLabelValues(model).Inc()
	r.trialCounter.WithLabelValues(model).Add(float64(trials))
	r.simulationLatency.WithLabelValues(model).Observe(latency.Seconds())
}

// RecordRiskMetric records the latest VaR and ES of a symbol
func (r *Recorder) RecordRiskMetric(symbol, model string, percentile float64, horizon int, valueAtRisk, expectedShortfall float64) {
	p := formatPercentile(percentile)
	h := strconv.Itoa(horizon)
	r.varGauge.WithLabelValues(symbol, model, p, h).Set(valueAtRisk)
	r.esGauge.WithLabelValues(symbol, model, p, h).Set(expectedShortfall)
}

// RecordDegenerateSample records a percentile left without an ES
func (r *Recorder) RecordDegenerateSample(symbol, model string, percentile float64) {
	r.degenerateCounter.WithLabelValues(symbol, model, formatPercentile(percentile)).Inc()
}

// RecordReportPublished records a delivery attempt on channel
func (r *Recorder) RecordReportPublished(channel string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.reportsPublished.WithLabelValues(channel, status).Inc()
}

// RecordWebsocketClients records the current number of websocket clients
func (r *Recorder) RecordWebsocketClients(count int) {
	r.websocketClients.Set(float64(count))
}

// RecordMemoryUsage records the current memory usage
func (r *Recorder) RecordMemoryUsage(bytesUsed uint64) {
	r.memoryUsageGauge.Set(float64(bytesUsed))
}

// RecordGoroutineCount records the current number of goroutines
func (r *Recorder) RecordGoroutineCount(count int) {
	r.goroutineCountGauge.Set(float64(count))
}

func formatPercentile(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
