package adapters

import (
	"time"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/engine"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/metrics"
)

// MetricsAdapter lets the calculator and the engine record into an optional
// *metrics.Recorder; with a nil recorder every call is a no-op
type MetricsAdapter struct {
	recorder *metrics.Recorder
}

var (
	_ risk.MetricsRecorder    = (*MetricsAdapter)(nil)
	_ engine.DeliveryRecorder = (*MetricsAdapter)(nil)
)

// NewMetricsAdapter creates a new MetricsAdapter
func NewMetricsAdapter(recorder *metrics.Recorder) *MetricsAdapter {
	return &MetricsAdapter{
		recorder: recorder,
	}
}

// RecordAPIRequest implements the API middleware's recorder
func (a *MetricsAdapter) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordAPIRequest(method, path, status, latency)
	}
}

// RecordSimulation implements risk.MetricsRecorder
func (a *MetricsAdapter) RecordSimulation(model string, trials int, latency time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordSimulation(model, trials, latency)
	}
}

// RecordRiskMetric implements risk.MetricsRecorder
func (a *MetricsAdapter) RecordRiskMetric(symbol, model string, percentile float64, horizon int, valueAtRisk, expectedShortfall float64) {
	if a.recorder != nil {
		a.recorder.RecordRiskMetric(symbol, model, percentile, horizon, valueAtRisk, expectedShortfall)
	}
}

// RecordDegenerateSample implements risk.MetricsRecorder
func (a *MetricsAdapter) RecordDegenerateSample(symbol, model string, percentile float64) {
	if a.recorder != nil {
		a.recorder.RecordDegenerateSample(symbol, model, percentile)
	}
}

// RecordReportPublished implements engine.DeliveryRecorder
func (a *MetricsAdapter) RecordReportPublished(channel string, err error) {
	if a.recorder != nil {
		a.recorder.RecordReportPublished(channel, err)
	}
}

// RecordWebsocketClients matches the hub's client-count callback
func (a *MetricsAdapter) RecordWebsocketClients(count int) {
	if a.recorder != nil {
		a.recorder.RecordWebsocketClients(count)
	}
}
