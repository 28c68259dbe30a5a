package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/config"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/chart"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
)

// chartBins is the histogram resolution used when a chart is requested
// without --bins
const chartBins = 300

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "estimate VaR and ES from a CSV of daily prices",
		Example: "  vares analyze --prices aapl.csv\n" +
			"  vares analyze --prices aapl.csv --tail-index 1.9 --chart aapl.png\n" +
			"  vares analyze --prices all_stocks_5yr.csv --name AAL --column open",
		RunE: runAnalyze,
	}

	flags := cmd.Flags()
	flags.String("prices", "", "CSV file of daily prices, oldest first (required)")
	flags.String("column", defaultPriceColumn, "price column: header name or 1-based number (headerless files default to the last numeric column)")
	flags.String("name", "", "keep only rows of this instrument in files with a Name/Symbol/Ticker column (default: --symbol)")
	flags.String("symbol", "", "symbol shown in the report (default: --name, then file name)")
	flags.Int("days", 0, "use only the most recent prices (0 uses all)")
	flags.Int("horizon", 0, "horizon length in periods")
	flags.Int("trials", 0, "Monte Carlo trials")
	flags.Float64Slice("percentiles", nil, "percentile levels in (0, 100)")
	flags.Float64("tail-index", 0, "stable tail index in (0, 2]")
	flags.Float64("skew", 0, "stable skew in [-1, 1]")
	flags.Int64("seed", 0, "random seed (0 picks one)")
	flags.Int("workers", 0, "simulation workers")
	flags.Int("bins", 0, "histogram bins")
	flags.Bool("json", false, "print the report as JSON")
	flags.String("chart", "", "write a PNG histogram to this path")
	flags.String("config", config.GetConfigPath(), "configuration file providing defaults")
	_ = cmd.MarkFlagRequired("prices")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}

	pricesPath, _ := flags.GetString("prices")
	f, err := os.Open(pricesPath)
	if err != nil {
		return err
	}
	defer f.Close()

	prices, err := readPrices(f, selectionFor(cmd))
	if err != nil {
		return fmt.Errorf("%s: %w", pricesPath, err)
	}
	if days, _ := flags.GetInt("days"); days > 0 && days < len(prices) {
		prices = prices[len(prices)-days:]
	}

	returns, err := risk.ReturnsFromPrices(prices)
	if err != nil {
		return err
	}

	calcConfig := risk.CalculatorConfig{
		HorizonLength: cfg.Simulation.HorizonLength,
		TrialCount:    cfg.Simulation.TrialCount,
		Percentiles:   cfg.Risk.Percentiles,
		TailIndex:     cfg.Model.TailIndex,
		Skew:          cfg.Model.Skew,
		Seed:          cfg.Simulation.Seed,
		HistogramBins: cfg.Simulation.HistogramBins,
		Workers:       cfg.Simulation.Workers,
		BatchSize:     cfg.Simulation.BatchSize,
	}
	if err := applyFlags(cmd, &calcConfig); err != nil {
		return err
	}

	chartPath, _ := flags.GetString("chart")
	if chartPath != "" && calcConfig.HistogramBins == 0 {
		calcConfig.HistogramBins = chartBins
	}

	calculator := risk.NewCalculator(calcConfig, nil, nil)
	report, err := calculator.Run(context.Background(), calculator.NewAnalysis(symbolFor(cmd, pricesPath), returns))
	if err != nil {
		return err
	}

	if chartPath != "" {
		if err := writeChart(chartPath, report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := flags.GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	renderReport(out, report)
	return nil
}

// applyFlags overrides configured values with the flags the user set
func applyFlags(cmd *cobra.Command, c *risk.CalculatorConfig) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("horizon") {
		c.HorizonLength, err = flags.GetInt("horizon")
	}
	if err == nil && flags.Changed("trials") {
		c.TrialCount, err = flags.GetInt("trials")
	}
	if err == nil && flags.Changed("percentiles") {
		c.Percentiles, err = flags.GetFloat64Slice("percentiles")
	}
	if err == nil && flags.Changed("tail-index") {
		c.TailIndex, err = flags.GetFloat64("tail-index")
	}
	if err == nil && flags.Changed("skew") {
		c.Skew, err = flags.GetFloat64("skew")
	}
	if err == nil && flags.Changed("seed") {
		c.Seed, err = flags.GetInt64("seed")
	}
	if err == nil && flags.Changed("workers") {
		c.Workers, err = flags.GetInt("workers")
	}
	if err == nil && flags.Changed("bins") {
		c.HistogramBins, err = flags.GetInt("bins")
	}
	return err
}

// selectionFor leaves the column empty unless set, so headerless files can
// fall back to their last numeric column
func selectionFor(cmd *cobra.Command) priceSelection {
	flags := cmd.Flags()

	var sel priceSelection
	if flags.Changed("column") {
		sel.Column, _ = flags.GetString("column")
	}
	sel.Name, _ = flags.GetString("name")
	sel.Symbol, _ = flags.GetString("symbol")
	return sel
}

func symbolFor(cmd *cobra.Command, pricesPath string) string {
	if symbol, _ := cmd.Flags().GetString("symbol"); symbol != "" {
		return symbol
	}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		return strings.ToUpper(name)
	}
	base := filepath.Base(pricesPath)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

func writeChart(path string, report *models.RiskReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := chart.RenderHistogram(report, chart.Options{Width: 1280, Height: 640}, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
