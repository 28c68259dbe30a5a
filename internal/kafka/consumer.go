package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// MessageHandler is a function that processes Kafka messages
type MessageHandler func(*Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group
type Consumer struct {
	reader messageReader
	topic  string
	log    *logger.Logger
}

// PriceTick is one closing price of a symbol
type PriceTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// PriceSink receives decoded price ticks
type PriceSink interface {
	AppendPrices(symbol string, prices ...float64) error
}

// NewConsumer creates a new consumer group member for config.Topic
func NewConsumer(config ConsumerConfig) (*Consumer, error) {
	if len(config.Brokers) == 0 || config.Topic == "" || config.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer needs brokers, a topic and a group id")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: config.Brokers,
		Topic:   config.Topic,
		GroupID: config.GroupID,
	})

	return newConsumer(reader, config.Topic), nil
}

func newConsumer(r messageReader, topic string) *Consumer {
	return &Consumer{
		reader: r,
		topic:  topic,
		log:    logger.GetLogger("kafka.consumer"),
	}
}

// ConsumeMessages passes every message to handler until ctx is done. A
// message is committed once handler returns, whether or not it failed;
// failures are logged.
func (c *Consumer) ConsumeMessages(ctx context.Context, handler MessageHandler) error {
	c.log.Infof("Starting consumer for topic: %s", c.topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Infof("Consumer for topic %s stopped", c.topic)
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := handler(fromKafkaMessage(m)); err != nil {
			c.log.Warnf("Failed to handle message at offset %d: %v", m.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit message: %w", err)
		}
	}
}

// PriceHandler decodes PriceTick messages into sink
func PriceHandler(sink PriceSink) MessageHandler {
	return func(m *Message) error {
		var tick PriceTick
		if err := json.Unmarshal(m.Value, &tick); err != nil {
			return fmt.Errorf("failed to decode price tick: %w", err)
		}
		if tick.Symbol == "" {
			tick.Symbol = string(m.Key)
		}
		return sink.AppendPrices(tick.Symbol, tick.Price)
	}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	c.log.Info("Closing consumer")
	return c.reader.Close()
}
