package api

import (
	"github.com/gin-gonic/gin"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/metrics"
)

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Use(ErrorMiddleware())
	s.router.Use(LoggingMiddleware())
	if s.deps.Recorder != nil {
		s.router.Use(MetricsMiddleware(s.deps.Recorder))
	}
	s.router.Use(CORSMiddleware(s.config.CORS))

	limited := RateLimitMiddleware(s.config.RateLimit, s.config.RateBurst)

	s.router.GET("/health", s.handleHealth)
	if s.deps.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler(s.deps.Gatherer)))
	}

	v1 := s.router.Group("/api/v1")
	v1.POST("/risk/simulate", limited, s.handleSimulate)

	symbols := v1.Group("/symbols")
	symbols.GET("", s.handleGetSymbols)
	symbols.PUT("/:symbol/prices", s.handlePutPrices)
	symbols.POST("/:symbol/risk", limited, s.handleRecalculate)
	symbols.GET("/:symbol/risk/latest", s.handleLatestReport)
	symbols.GET("/:symbol/risk/chart", s.handleChart)

	if s.deps.Websocket != nil {
		v1.GET("/ws", gin.WrapF(s.deps.Websocket))
	}

	s.router.NoRoute(s.handleNotFound)
}
