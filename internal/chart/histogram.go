// Package chart draws the terminal growth histograms of a risk report with
// VaR and ES markers.
package chart

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// Options select the marked percentile and the image size
type Options struct {
	// Percentile to mark; zero marks the first metric row of each model
	Percentile float64
	Width      int
	Height     int
}

var modelColors = map[string]drawing.Color{
	models.ModelGaussian:   chart.ColorBlue,
	models.ModelStableTail: chart.ColorRed,
}

// RenderHistogram writes a PNG comparing the simulated distributions of
// report to w
func RenderHistogram(report *models.RiskReport, opts Options, w io.Writer) error {
	graph, err := buildHistogram(report, opts)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return errors.Wrapf(err, "render histogram for %s", report.Symbol)
	}
	return nil
}

func buildHistogram(report *models.RiskReport, opts Options) (*chart.Chart, error) {
	if report == nil {
		return nil, errors.InvalidParameter("no report to draw")
	}

	var (
		series []chart.Series
		peak   float64
	)
	for _, result := range report.Results {
		if result.Histogram == nil || len(result.Histogram.Counts) == 0 || result.Samples == 0 {
			continue
		}
		xs, ys := density(result.Histogram, result.Samples)
		for _, y := range ys {
			peak = max(peak, y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    result.Model,
			Style:   chart.Style{StrokeColor: colorOf(result.Model), StrokeWidth: 2},
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return nil, errors.InvalidParameter("report " + report.ID + " carries no histograms")
	}

	for _, result := range report.Results {
		if result.Histogram == nil {
			continue
		}
		row, ok := markedRow(result, opts.Percentile)
		if !ok {
			continue
		}
		series = append(series, marker(fmt.Sprintf("%s VaR %g%%", result.Model, row.Percentile), row.ValueAtRisk, peak, colorOf(result.Model), nil))
		if row.ExpectedShortfall != nil {
			series = append(series, marker(fmt.Sprintf("%s ES %g%%", result.Model, row.Percentile), *row.ExpectedShortfall, peak, colorOf(result.Model), []float64{6, 4}))
		}
	}

	graph := &chart.Chart{
		Title:  fmt.Sprintf("%s: %d-day growth factor over %d trials", report.Symbol, report.HorizonLength, report.TrialCount),
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: chart.XAxis{
			Name:           "growth factor",
			ValueFormatter: func(v interface{}) string { return formatFloat(v, "%.3f") },
		},
		YAxis: chart.YAxis{
			Name:           "share of trials",
			ValueFormatter: func(v interface{}) string { return formatFloat(v, "%.3f") },
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph, nil
}

// density turns bin counts into shares of all samples at bin midpoints
func density(h *models.Histogram, samples int) ([]float64, []float64) {
	xs := make([]float64, len(h.Counts))
	ys := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		xs[i] = (h.Dividers[i] + h.Dividers[i+1]) / 2
		ys[i] = c / float64(samples)
	}
	return xs, ys
}

func markedRow(result models.ModelResult, percentile float64) (models.MetricRow, bool) {
	if percentile == 0 {
		if len(result.Metrics) == 0 {
			return models.MetricRow{}, false
		}
		return result.Metrics[0], true
	}
	return result.Metric(percentile)
}

func marker(name string, x, height float64, color drawing.Color, dash []float64) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor:     color,
			StrokeWidth:     1,
			StrokeDashArray: dash,
		},
		XValues: []float64{x, x},
		YValues: []float64{0, height},
	}
}

func colorOf(model string) drawing.Color {
	if c, ok := modelColors[model]; ok {
		return c
	}
	return chart.ColorBlack
}

func formatFloat(v interface{}, format string) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf(format, f)
	}
	return ""
}
