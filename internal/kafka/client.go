package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig contains configuration for a Kafka producer
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// ConsumerConfig contains configuration for a Kafka consumer
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Message represents a Kafka message
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   []MessageHeader
}

// MessageHeader represents a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

func toKafkaHeaders(headers []MessageHeader) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafka.Header, len(headers))
	for i, h := range headers {
		out[i] = kafka.Header{Key: h.Key, Value: h.Value}
	}
	return out
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Time,
	}
	if len(m.Headers) > 0 {
		msg.Headers = make([]MessageHeader, len(m.Headers))
		for i, h := range m.Headers {
			msg.Headers[i] = MessageHeader{Key: h.Key, Value: h.Value}
		}
	}
	return msg
}
