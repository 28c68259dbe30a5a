package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes messages to a single topic
type Producer struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
}

// NewProducer creates a producer that hashes keys onto partitions, so all
// reports of one symbol stay ordered
func NewProducer(config ProducerConfig) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka producer needs at least one broker")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka producer needs a topic")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}

	return newProducer(writer, config.Topic), nil
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		log:    logger.GetLogger("kafka.producer"),
	}
}

// ProduceMessage produces a message to the topic and waits for the
// configured acknowledgements
func (p *Producer) ProduceMessage(ctx context.Context, key []byte, value []byte, headers []MessageHeader) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: toKafkaHeaders(headers),
	})
	if err != nil {
		p.log.Errorf("Failed to produce message to %s: %v", p.topic, err)
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// ProduceJSON produces a JSON-serialized message to the topic
func (p *Producer) ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []MessageHeader) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize message to JSON: %w", err)
	}

	allHeaders := append(headers, MessageHeader{Key: "content-type", Value: []byte("application/json")})
	return p.ProduceMessage(ctx, key, jsonValue, allHeaders)
}

// PublishReport produces report keyed by its symbol
func (p *Producer) PublishReport(ctx context.Context, report *models.RiskReport) error {
	return p.ProduceJSON(ctx, []byte(report.Symbol), report, []MessageHeader{
		{Key: "report-id", Value: []byte(report.ID)},
	})
}

// Close flushes pending messages and closes the producer
func (p *Producer) Close() error {
	p.log.Info("Closing producer")
	return p.writer.Close()
}
