package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

const reportKeyPrefix = "vares:report:"

// RedisReportStore shares the latest report per symbol between instances
type RedisReportStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisReportStore wraps client; reports expire after ttl, never when
// ttl is zero
func NewRedisReportStore(client *redis.Client, ttl time.Duration) *RedisReportStore {
	return &RedisReportStore{
		client: client,
		ttl:    ttl,
		log:    logger.GetLogger("store.redis"),
	}
}

func reportKey(symbol string) string {
	return reportKeyPrefix + symbol
}

// SaveReport stores report as JSON under its symbol
func (s *RedisReportStore) SaveReport(ctx context.Context, report *models.RiskReport) error {
	if report == nil || report.Symbol == "" {
		return errors.InvalidParameter("report must name a symbol")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return &errors.AppError{Type: errors.ErrorTypeInternal, Message: "encode report", Err: err}
	}

	if err := s.client.Set(ctx, reportKey(report.Symbol), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save report for %s", report.Symbol)
	}
	return nil
}

// LatestReport loads the latest report of symbol
func (s *RedisReportStore) LatestReport(ctx context.Context, symbol string) (*models.RiskReport, error) {
	data, err := s.client.Get(ctx, reportKey(symbol)).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFound("no report computed yet for symbol " + symbol)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load report for %s", symbol)
	}

	var report models.RiskReport
	if err := json.Unmarshal(data, &report); err != nil {
		s.log.Errorf("Corrupt report cached for %s: %v", symbol, err)
		return nil, &errors.AppError{Type: errors.ErrorTypeInternal, Message: "decode report", Err: err}
	}
	return &report, nil
}

// Ping checks the connection
func (s *RedisReportStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *RedisReportStore) Close() error {
	return s.client.Close()
}
