package engine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// Calculator produces a report from the stored history of a symbol
type Calculator interface {
	CalculateRiskMetrics(ctx context.Context, symbol string) (*models.RiskReport, error)
}

// SymbolLister enumerates the symbols with a price history
type SymbolLister interface {
	Symbols() []string
}

// ReportStore keeps the latest report per symbol
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.RiskReport) error
	LatestReport(ctx context.Context, symbol string) (*models.RiskReport, error)
}

// Publisher delivers reports to one downstream channel
type Publisher interface {
	Name() string
	Publish(ctx context.Context, report *models.RiskReport) error
}

// DeliveryRecorder counts publish attempts per channel
type DeliveryRecorder interface {
	RecordReportPublished(channel string, err error)
}

// Engine recalculates reports, caches the latest one per symbol and fans
// every report out to its publishers
type Engine struct {
	calculator Calculator
	symbols    SymbolLister
	reports    ReportStore
	publishers []Publisher
	recorder   DeliveryRecorder
	log        *logger.Logger
}

// New creates an engine. recorder may be nil.
func New(calculator Calculator, symbols SymbolLister, reports ReportStore, recorder DeliveryRecorder, publishers ...Publisher) *Engine {
	return &Engine{
		calculator: calculator,
		symbols:    symbols,
		reports:    reports,
		publishers: publishers,
		recorder:   recorder,
		log:        logger.GetLogger("engine"),
	}
}

// Recalculate computes a fresh report for symbol, stores it and publishes
// it. Publishing failures are logged and counted but do not fail the call.
func (e *Engine) Recalculate(ctx context.Context, symbol string) (*models.RiskReport, error) {
	report, err := e.calculator.CalculateRiskMetrics(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if err := e.reports.SaveReport(ctx, report); err != nil {
		e.log.Errorf("Failed to cache report %s for %s: %v", report.ID, symbol, err)
	}

	if err := e.Publish(ctx, report); err != nil {
		e.log.Warnf("Report %s for %s was not delivered everywhere: %v", report.ID, symbol, err)
	}

	return report, nil
}

// RecalculateAll recalculates every known symbol and returns the combined
// errors of the symbols that failed
func (e *Engine) RecalculateAll(ctx context.Context) error {
	symbols := e.symbols.Symbols()
	e.log.Infof("Running risk calculation for %d symbols", len(symbols))

	var errs error
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if _, err := e.Recalculate(ctx, symbol); err != nil {
			e.log.Errorf("Failed to calculate risk metrics for %s: %v", symbol, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", symbol, err))
		}
	}
	return errs
}

// Publish hands report to every publisher
func (e *Engine) Publish(ctx context.Context, report *models.RiskReport) error {
	var errs error
	for _, p := range e.publishers {
		err := p.Publish(ctx, report)
		if e.recorder != nil {
			e.recorder.RecordReportPublished(p.Name(), err)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errs
}

// LatestReport returns the cached report of symbol
func (e *Engine) LatestReport(ctx context.Context, symbol string) (*models.RiskReport, error) {
	return e.reports.LatestReport(ctx, symbol)
}
