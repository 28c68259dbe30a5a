package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
)

// renderReport prints one row per model and percentile. Growth factors are
// shown next to the loss they imply.
func renderReport(w io.Writer, report *models.RiskReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s  horizon %d  trials %d  seed %d",
		report.Symbol, report.HorizonLength, report.TrialCount, report.Seed))

	t.AppendHeader(table.Row{"Model", "Percentile", "VaR", "VaR loss", "ES", "ES loss", "Note"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	results := report.Results
	if report.Historical != nil {
		results = append(results[:len(results):len(results)], *report.Historical)
	}
	for i, result := range results {
		if i > 0 {
			t.AppendSeparator()
		}
		for _, row := range result.Metrics {
			es, esLoss := "-", "-"
			if row.ExpectedShortfall != nil {
				es = fmt.Sprintf("%.4f", *row.ExpectedShortfall)
				esLoss = formatLoss(*row.ExpectedShortfall)
			}
			t.AppendRow(table.Row{
				result.Model,
				fmt.Sprintf("%g%%", row.Percentile),
				fmt.Sprintf("%.4f", row.ValueAtRisk),
				formatLoss(row.ValueAtRisk),
				es,
				esLoss,
				row.Error,
			})
		}
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", fmt.Sprintf("%d returns, σ %.4f", report.Statistics.Observations, report.Statistics.Dispersion)})
	t.Render()
}

func formatLoss(growth float64) string {
	return fmt.Sprintf("%.2f%%", (1-growth)*100)
}
