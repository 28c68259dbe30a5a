package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/engine"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/store"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (r *requestLog) RecordAPIRequest(method, path string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, method+" "+path)
}

type readOnlyPrices struct{}

func (readOnlyPrices) Symbols() []string { return []string{"RO"} }

func pricePath(t *testing.T, n int) []float64 {
	t.Helper()

	returns, err := risk.Sample(risk.Gaussian{Mean: 0.0003, Dispersion: 0.015}, risk.SeededStreams{Seed: 21}.Stream(0), n-1)
	require.NoError(t, err)

	prices := make([]float64, n)
	prices[0] = 50
	for i, r := range returns {
		prices[i+1] = prices[i] * (1 + r)
	}
	return prices
}

func newTestServer(t *testing.T, config Config) (*Server, *store.InMemoryHistoricalDataStore, *requestLog) {
	t.Helper()

	prices := store.NewInMemoryHistoricalDataStore()
	require.NoError(t, prices.SavePrices("ACME", pricePath(t, 300)))

	calculator := risk.NewCalculator(risk.CalculatorConfig{
		TrialCount:    500,
		Seed:          3,
		HistogramBins: 20,
	}, prices, nil)
	eng := engine.New(calculator, prices, store.NewInMemoryReportStore(), nil)

	requests := &requestLog{}
	server := NewServer(config, Dependencies{
		Analyzer: calculator,
		Engine:   eng,
		Prices:   prices,
		Recorder: requests,
	})
	return server, prices, requests
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) models.RiskReport {
	t.Helper()

	var report models.RiskReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	return report
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(t, s, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulate(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	seed := int64(7)
	trials := 400

	w := do(t, s, http.MethodPost, "/api/v1/risk/simulate", SimulateRequest{
		Symbol:     "ADHOC",
		Prices:     pricePath(t, 120),
		Seed:       &seed,
		TrialCount: &trials,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decodeReport(t, w)
	assert.Equal(t, "ADHOC", report.Symbol)
	assert.Equal(t, uint64(7), report.Seed)
	assert.Equal(t, 400, report.TrialCount)
	require.Len(t, report.Results, 2)
	for _, result := range report.Results {
		assert.Len(t, result.Metrics, 2)
	}
}

func TestSimulateRejectsBadRequests(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	heavy := 2.5
	tooMany := maxTrialCount + 1
	longHorizon := maxHorizonLength + 1
	manyBins := maxHistogramBins + 1
	stepsTrials, stepsHorizon := maxTrialCount, maxSimulationSteps/maxTrialCount+1

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed", "{not json", http.StatusBadRequest},
		{"no data", SimulateRequest{}, http.StatusBadRequest},
		{"both series", SimulateRequest{Returns: []float64{0.01, -0.02}, Prices: []float64{1, 2}}, http.StatusBadRequest},
		{"tail index", SimulateRequest{Returns: []float64{0.01, -0.02, 0.005}, TailIndex: &heavy}, http.StatusBadRequest},
		{"too many trials", SimulateRequest{Returns: []float64{0.01, -0.02}, TrialCount: &tooMany}, http.StatusBadRequest},
		{"percentile", SimulateRequest{Returns: []float64{0.01, -0.02}, Percentiles: []float64{100}}, http.StatusBadRequest},
		{"long horizon", SimulateRequest{Returns: []float64{0.01, -0.02}, HorizonLength: &longHorizon}, http.StatusBadRequest},
		{"too many bins", SimulateRequest{Returns: []float64{0.01, -0.02}, HistogramBins: &manyBins}, http.StatusBadRequest},
		{"too many steps", SimulateRequest{Returns: []float64{0.01, -0.02}, TrialCount: &stepsTrials, HorizonLength: &stepsHorizon}, http.StatusBadRequest},
		{"single price", SimulateRequest{Prices: []float64{100}}, http.StatusUnprocessableEntity},
		{"single return", SimulateRequest{Returns: []float64{0.01}}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/risk/simulate", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestBuildAnalysisBounds(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	huge := 2_000_000_000
	trials := maxTrialCount

	_, err := s.buildAnalysis(SimulateRequest{
		Returns:       []float64{0.01, -0.02},
		HorizonLength: &huge,
		HistogramBins: &huge,
		TrialCount:    &trials,
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidParameter))

	horizon, bins := maxHorizonLength, maxHistogramBins
	few := maxSimulationSteps / maxHorizonLength
	a, err := s.buildAnalysis(SimulateRequest{
		Returns:       []float64{0.01, -0.02},
		HorizonLength: &horizon,
		HistogramBins: &bins,
		TrialCount:    &few,
	})
	require.NoError(t, err)
	assert.Equal(t, maxHorizonLength, a.HorizonLength)
	assert.Equal(t, maxHistogramBins, a.HistogramBins)
}

func TestSymbolsAndPrices(t *testing.T) {
	s, prices, _ := newTestServer(t, Config{})

	w := do(t, s, http.MethodPut, "/api/v1/symbols/BETA/prices", PricesRequest{Prices: []float64{10, 10.5, 10.2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := prices.GetHistoricalPrices("BETA", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10.5, 10.2}, stored)

	w = do(t, s, http.MethodGet, "/api/v1/symbols", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Symbols []string `json:"symbols"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, []string{"ACME", "BETA"}, listing.Symbols)
	assert.Equal(t, 2, listing.Count)

	w = do(t, s, http.MethodPut, "/api/v1/symbols/BETA/prices", PricesRequest{Prices: []float64{10, -1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPut, "/api/v1/symbols/BETA/prices", PricesRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadOnlyPriceStore(t *testing.T) {
	s := NewServer(Config{}, Dependencies{Prices: readOnlyPrices{}})

	w := do(t, s, http.MethodPut, "/api/v1/symbols/RO/prices", PricesRequest{Prices: []float64{1, 2}})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRecalculateAndLatest(t *testing.T) {
	s, _, requests := newTestServer(t, Config{})

	w := do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/symbols/ACME/risk", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	computed := decodeReport(t, w)
	assert.Equal(t, "ACME", computed.Symbol)
	assert.Equal(t, uint64(3), computed.Seed)

	w = do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, computed.ID, decodeReport(t, w).ID)

	w = do(t, s, http.MethodPost, "/api/v1/symbols/NOPE/risk", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Contains(t, requests.paths, "GET /api/v1/symbols/:symbol/risk/latest")
	assert.Contains(t, requests.paths, "POST /api/v1/symbols/:symbol/risk")
}

func TestReadingDoesNotRecalculate(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	w := do(t, s, http.MethodPost, "/api/v1/symbols/ACME/risk", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decodeReport(t, w)

	w = do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decodeReport(t, w).ID)
}

func TestChart(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	w := do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk/chart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/v1/symbols/ACME/risk", nil).Code)

	w = do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk/chart?percentile=2.5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = do(t, s, http.MethodGet, "/api/v1/symbols/ACME/risk/chart?percentile=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	s, _, _ := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 1})

	// the first request spends the only token, whatever its outcome
	w := do(t, s, http.MethodPost, "/api/v1/risk/simulate", SimulateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/risk/simulate", SimulateRequest{})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// reading is not limited
	w = do(t, s, http.MethodGet, "/api/v1/symbols", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := newTestServer(t, Config{CORS: CORSConfig{AllowedOrigins: []string{"https://desk.example"}}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/symbols", nil)
	req.Header.Set("Origin", "https://desk.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
