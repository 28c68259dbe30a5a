package store

import (
	"context"
	"sync"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

// InMemoryReportStore keeps the latest report per symbol
type InMemoryReportStore struct {
	reports map[string]*models.RiskReport
	mu      sync.RWMutex
}

// NewInMemoryReportStore creates an empty report store
func NewInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{
		reports: make(map[string]*models.RiskReport),
	}
}

// SaveReport replaces the latest report of its symbol
func (s *InMemoryReportStore) SaveReport(_ context.Context, report *models.RiskReport) error {
	if report == nil || report.Symbol == "" {
		return errors.InvalidParameter("report must name a symbol")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.Symbol] = report
	return nil
}

// LatestReport returns the latest report of symbol
func (s *InMemoryReportStore) LatestReport(_ context.Context, symbol string) (*models.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[symbol]
	if !ok {
		return nil, errors.NotFound("no report computed yet for symbol " + symbol)
	}
	return report, nil
}
