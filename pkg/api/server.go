package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Requests per second and burst allowed per client on the computing
	// endpoints; a non-positive RateLimit disables limiting
	RateLimit float64
	RateBurst int
	CORS      CORSConfig
}

// CORSConfig lists what cross-origin callers may do
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Analyzer runs ad-hoc analyses
type Analyzer interface {
	NewAnalysis(symbol string, returns risk.ReturnSeries) risk.Analysis
	Run(ctx context.Context, a risk.Analysis) (*models.RiskReport, error)
}

// RiskEngine recalculates and caches reports of stored symbols
type RiskEngine interface {
	Recalculate(ctx context.Context, symbol string) (*models.RiskReport, error)
	LatestReport(ctx context.Context, symbol string) (*models.RiskReport, error)
}

// PriceStore lists stored symbols and, when it can, accepts new histories
type PriceStore interface {
	Symbols() []string
}

// PriceWriter is implemented by stores that accept uploaded prices
type PriceWriter interface {
	SavePrices(symbol string, prices []float64) error
}

// RequestRecorder records served requests
type RequestRecorder interface {
	RecordAPIRequest(method, path string, status int, latency time.Duration)
}

// Dependencies are the collaborators the routes call into. Recorder,
// Gatherer and Websocket are optional.
type Dependencies struct {
	Analyzer  Analyzer
	Engine    RiskEngine
	Prices    PriceStore
	Recorder  RequestRecorder
	Gatherer  prometheus.Gatherer
	Websocket http.HandlerFunc
}

// Server represents the API server
type Server struct {
	config     Config
	deps       Dependencies
	router     *gin.Engine
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates a new API server
func NewServer(config Config, deps Dependencies) *Server {
	// Apply defaults if needed
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 60 * time.Second
	}

	server := &Server{
		config: config,
		deps:   deps,
		router: gin.New(),
		log:    logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}
