package api

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// LoggingMiddleware logs request information
func LoggingMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.middleware")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Infof("%s %s [%d] %v", method, path, c.Writer.Status(), time.Since(start))
	}
}

// MetricsMiddleware captures API metrics, labelled by route template
func MetricsMiddleware(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		recorder.RecordAPIRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(config CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: config.AllowedMethods,
		AllowHeaders: config.AllowedHeaders,
		MaxAge:       12 * time.Hour,
	}
	if len(config.AllowedOrigins) == 0 || slices.Contains(config.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
	}
	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	return cors.New(corsConfig)
}

// ErrorMiddleware catches panics and returns an error response
func ErrorMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.error")

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("API panic recovered: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()

		c.Next()
	}
}

// limiterIdleTTL is how long a client may stay silent before its limiter is
// dropped
const limiterIdleTTL = 10 * time.Minute

// RateLimitMiddleware gives every client IP a token bucket of burst tokens
// refilled at rps per second. Non-positive rps disables it.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	log := logger.GetLogger("api.ratelimit")
	limiters := newClientLimiters(rps, burst)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiters.get(clientIP).Allow() {
			log.Warnf("Rate limit exceeded for client: %s", clientIP)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one limiter per client and sweeps out the idle ones.
// A client is idle once its bucket would have refilled completely, so
// eviction never hands out extra tokens.
type clientLimiters struct {
	mu        sync.Mutex
	rps       float64
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*clientLimiter
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	if burst < 1 {
		burst = 1
	}

	idleTTL := limiterIdleTTL
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idleTTL {
		idleTTL = refill
	}

	return &clientLimiters{
		rps:     rps,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) get(clientIP string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for ip, client := range l.clients {
			if now.Sub(client.lastSeen) >= l.idleTTL {
				delete(l.clients, ip)
			}
		}
		l.lastSweep = now
	}

	client, ok := l.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.clients[clientIP] = client
	}
	client.lastSeen = now
	return client.limiter
}
