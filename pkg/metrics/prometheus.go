package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// PrometheusServer is a server that exposes Prometheus metrics
type PrometheusServer struct {
	server *http.Server
	log    *logger.Logger
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(port int, g prometheus.Gatherer) *PrometheusServer {
	log := logger.GetLogger("metrics.prometheus")
	addr := fmt.Sprintf(":%d", port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &PrometheusServer{
		server: server,
		log:    log,
	}
}

// Start starts the Prometheus metrics server
func (p *PrometheusServer) Start() error {
	p.log.Infof("Starting Prometheus metrics server on %s", p.server.Addr)
	if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the Prometheus metrics server
func (p *PrometheusServer) Stop(ctx context.Context) error {
	p.log.Info("Stopping Prometheus metrics server")
	return p.server.Shutdown(ctx)
}

// CollectSystemMetrics samples memory and goroutine counts every interval
// until ctx is done
func (r *Recorder) CollectSystemMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		r.RecordMemoryUsage(mem.Alloc)
		r.RecordGoroutineCount(runtime.NumGoroutine())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
