package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/chart"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// Bounds on ad-hoc simulations
const (
	maxTrialCount    = 1_000_000
	maxHorizonLength = 2_520
	maxHistogramBins = 10_000
	// trials × horizon draws per model
	maxSimulationSteps = 50_000_000
)

// SimulateRequest is an ad-hoc analysis of either returns or prices. Unset
// knobs take the server's configured values.
type SimulateRequest struct {
	Symbol        string    `json:"symbol"`
	Returns       []float64 `json:"returns"`
	Prices        []float64 `json:"prices"`
	HorizonLength *int      `json:"horizon_length"`
	TrialCount    *int      `json:"trial_count"`
	Percentiles   []float64 `json:"percentiles"`
	TailIndex     *float64  `json:"tail_index"`
	Skew          *float64  `json:"skew"`
	Seed          *int64    `json:"seed"`
	HistogramBins *int      `json:"histogram_bins"`
}

// PricesRequest replaces the stored history of a symbol
type PricesRequest struct {
	Prices []float64 `json:"prices"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParameterf("invalid request body: %v", err))
		return
	}

	analysis, err := s.buildAnalysis(req)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := s.deps.Analyzer.Run(c.Request.Context(), analysis)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) buildAnalysis(req SimulateRequest) (risk.Analysis, error) {
	var (
		returns risk.ReturnSeries
		err     error
	)
	switch {
	case len(req.Returns) > 0 && len(req.Prices) > 0:
		return risk.Analysis{}, errors.InvalidParameter("give either returns or prices, not both")
	case len(req.Returns) > 0:
		returns = risk.ReturnSeries(req.Returns)
	case len(req.Prices) > 0:
		if returns, err = risk.ReturnsFromPrices(req.Prices); err != nil {
			return risk.Analysis{}, err
		}
	default:
		return risk.Analysis{}, errors.InvalidParameter("returns or prices are required")
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = "ad-hoc"
	}

	a := s.deps.Analyzer.NewAnalysis(symbol, returns)
	if req.HorizonLength != nil {
		a.HorizonLength = *req.HorizonLength
	}
	if req.TrialCount != nil {
		a.TrialCount = *req.TrialCount
	}
	if len(req.Percentiles) > 0 {
		a.Percentiles = req.Percentiles
	}
	if req.TailIndex != nil {
		a.TailIndex = *req.TailIndex
	}
	if req.Skew != nil {
		a.Skew = *req.Skew
	}
	if req.Seed != nil {
		a.Seed = *req.Seed
	}
	if req.HistogramBins != nil {
		a.HistogramBins = *req.HistogramBins
	}

	if err := checkSimulationBounds(a); err != nil {
		return risk.Analysis{}, err
	}
	return a, nil
}

func checkSimulationBounds(a risk.Analysis) error {
	switch {
	case a.TrialCount > maxTrialCount:
		return errors.InvalidParameterf("trial_count must not exceed %d", maxTrialCount)
	case a.HorizonLength > maxHorizonLength:
		return errors.InvalidParameterf("horizon_length must not exceed %d", maxHorizonLength)
	case a.HistogramBins > maxHistogramBins:
		return errors.InvalidParameterf("histogram_bins must not exceed %d", maxHistogramBins)
	case a.TrialCount > 0 && a.HorizonLength > maxSimulationSteps/a.TrialCount:
		return errors.InvalidParameterf("trial_count × horizon_length must not exceed %d", maxSimulationSteps)
	}
	return nil
}

func (s *Server) handleGetSymbols(c *gin.Context) {
	symbols := s.deps.Prices.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

func (s *Server) handlePutPrices(c *gin.Context) {
	writer, ok := s.deps.Prices.(PriceWriter)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "the configured price store is read-only"})
		return
	}

	var req PricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParameterf("invalid request body: %v", err))
		return
	}
	if len(req.Prices) == 0 {
		respondError(c, errors.InvalidParameter("prices are required"))
		return
	}

	symbol := c.Param("symbol")
	if err := writer.SavePrices(symbol, req.Prices); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"count":  len(req.Prices),
	})
}

func (s *Server) handleRecalculate(c *gin.Context) {
	report, err := s.deps.Engine.Recalculate(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleLatestReport(c *gin.Context) {
	report, err := s.deps.Engine.LatestReport(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleChart(c *gin.Context) {
	opts := chart.Options{Width: 1024, Height: 512}
	if p := c.Query("percentile"); p != "" {
		percentile, err := strconv.ParseFloat(p, 64)
		if err != nil {
			respondError(c, errors.InvalidParameterf("invalid percentile %q", p))
			return
		}
		opts.Percentile = percentile
	}

	report, err := s.deps.Engine.LatestReport(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderHistogram(report, opts, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// statusFor maps error types to HTTP statuses
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidParameter:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeInsufficientData, errors.ErrorTypeDegenerateSample:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{
		"error": err.Error(),
		"type":  errors.TypeOf(err).String(),
	}
	if status == http.StatusInternalServerError {
		logger.GetLogger("api.handlers").Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		body["error"] = "internal server error"
	}
	c.JSON(status, body)
}
