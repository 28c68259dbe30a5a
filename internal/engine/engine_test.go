package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/store"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	apperrors "github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

type fakeCalculator struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (c *fakeCalculator) CalculateRiskMetrics(_ context.Context, symbol string) (*models.RiskReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, symbol)
	if err := c.fail[symbol]; err != nil {
		return nil, err
	}
	return &models.RiskReport{ID: symbol + "-report", Symbol: symbol}, nil
}

func (c *fakeCalculator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type symbols []string

func (s symbols) Symbols() []string { return s }

type fakePublisher struct {
	name      string
	err       error
	published []string
}

func (p *fakePublisher) Name() string { return p.name }

func (p *fakePublisher) Publish(_ context.Context, report *models.RiskReport) error {
	p.published = append(p.published, report.ID)
	return p.err
}

type deliveries map[string]int

func (d deliveries) RecordReportPublished(channel string, err error) {
	if err != nil {
		channel += ":error"
	}
	d[channel]++
}

func TestRecalculateCachesAndPublishes(t *testing.T) {
	calc := &fakeCalculator{}
	reports := store.NewInMemoryReportStore()
	hub := &fakePublisher{name: "websocket"}
	broker := &fakePublisher{name: "kafka", err: errors.New("broker down")}
	recorded := deliveries{}

	e := New(calc, symbols{"AAPL"}, reports, recorded, hub, broker)

	report, err := e.Recalculate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL-report", report.ID)

	latest, err := e.LatestReport(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL-report", latest.ID)

	// a failing publisher neither fails the call nor starves the others
	assert.Equal(t, []string{"AAPL-report"}, hub.published)
	assert.Equal(t, []string{"AAPL-report"}, broker.published)
	assert.Equal(t, deliveries{"websocket": 1, "kafka:error": 1}, recorded)
}

func TestRecalculatePropagatesCalculatorErrors(t *testing.T) {
	calc := &fakeCalculator{fail: map[string]error{"GONE": apperrors.NotFound("no price history")}}
	hub := &fakePublisher{name: "websocket"}
	e := New(calc, symbols{}, store.NewInMemoryReportStore(), nil, hub)

	_, err := e.Recalculate(context.Background(), "GONE")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Empty(t, hub.published)

	_, err = e.LatestReport(context.Background(), "GONE")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestRecalculateAll(t *testing.T) {
	calc := &fakeCalculator{fail: map[string]error{"BAD": apperrors.InsufficientData("one price")}}
	e := New(calc, symbols{"AAPL", "BAD", "MSFT"}, store.NewInMemoryReportStore(), nil)

	err := e.RecalculateAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD")
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT"}, calc.calls)

	_, err = e.LatestReport(context.Background(), "MSFT")
	assert.NoError(t, err)
}

func TestRecalculateAllStopsOnCancel(t *testing.T) {
	calc := &fakeCalculator{}
	e := New(calc, symbols{"AAPL", "MSFT"}, store.NewInMemoryReportStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.RecalculateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calc.calls)
}

func TestScheduleSpec(t *testing.T) {
	assert.Equal(t, "@every 5m0s", ScheduleSpec("", 5*time.Minute))
	assert.Equal(t, "0 * * * *", ScheduleSpec("0 * * * *", 5*time.Minute))
}

func TestSchedulerRunsRecalculation(t *testing.T) {
	calc := &fakeCalculator{}
	e := New(calc, symbols{"AAPL"}, store.NewInMemoryReportStore(), nil)

	s, err := NewScheduler(e, "@every 1s")
	require.NoError(t, err)

	s.Start(context.Background())
	assert.False(t, s.Next().IsZero())
	require.Eventually(t, func() bool { return calc.callCount() > 0 }, 5*time.Second, 20*time.Millisecond)
	s.Stop()
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(New(&fakeCalculator{}, symbols{}, store.NewInMemoryReportStore(), nil), "every now and then")
	assert.Error(t, err)
}
