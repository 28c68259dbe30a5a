package adapters

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/engine"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/circuit"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// ReportBroadcaster is satisfied by *websocket.Hub
type ReportBroadcaster interface {
	PublishReport(report *models.RiskReport) error
}

// ReportWriter is satisfied by *kafka.Producer
type ReportWriter interface {
	PublishReport(ctx context.Context, report *models.RiskReport) error
}

// HubPublisher pushes reports to websocket subscribers
type HubPublisher struct {
	hub ReportBroadcaster
}

var _ engine.Publisher = (*HubPublisher)(nil)

// NewHubPublisher creates a publisher for hub
func NewHubPublisher(hub ReportBroadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Name implements engine.Publisher
func (p *HubPublisher) Name() string { return "websocket" }

// Publish implements engine.Publisher
func (p *HubPublisher) Publish(_ context.Context, report *models.RiskReport) error {
	return p.hub.PublishReport(report)
}

// KafkaPublisherConfig tunes retries and the circuit breaker around Kafka
type KafkaPublisherConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	Breaker         circuit.Config
}

// DefaultKafkaPublisherConfig returns the production settings
func DefaultKafkaPublisherConfig() KafkaPublisherConfig {
	return KafkaPublisherConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxElapsedTime:  10 * time.Second,
		Breaker:         circuit.DefaultConfig(),
	}
}

// KafkaPublisher writes reports to Kafka with exponential retries. After
// repeated exhausted retries the breaker opens and reports are refused
// until it half-opens again.
type KafkaPublisher struct {
	writer  ReportWriter
	breaker *circuit.CircuitBreaker
	config  KafkaPublisherConfig
	log     *logger.Logger
}

var _ engine.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher wraps writer
func NewKafkaPublisher(writer ReportWriter, config KafkaPublisherConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		breaker: circuit.NewCircuitBreaker("kafka", config.Breaker),
		config:  config,
		log:     logger.GetLogger("adapters.kafka"),
	}
}

// Name implements engine.Publisher
func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish implements engine.Publisher
func (p *KafkaPublisher) Publish(ctx context.Context, report *models.RiskReport) error {
	return p.breaker.Execute(ctx, func(ctx context.Context) error {
		attempt := 0
		op := func() error {
			attempt++
			err := p.writer.PublishReport(ctx, report)
			if err != nil {
				p.log.Warnf("Publishing report %s to kafka failed (attempt %d): %v", report.ID, attempt, err)
			}
			return err
		}
		return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.config.MaxRetries), ctx))
	})
}

// BreakerState reports the state of the circuit breaker
func (p *KafkaPublisher) BreakerState() circuit.State {
	return p.breaker.State()
}

func (p *KafkaPublisher) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.config.InitialInterval > 0 {
		b.InitialInterval = p.config.InitialInterval
	}
	if p.config.MaxElapsedTime > 0 {
		b.MaxElapsedTime = p.config.MaxElapsedTime
	}
	return b
}
