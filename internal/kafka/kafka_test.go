package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type priceSink map[string][]float64

func (s priceSink) AppendPrices(symbol string, prices ...float64) error {
	if prices[0] <= 0 {
		return errors.New("bad price")
	}
	s[symbol] = append(s[symbol], prices...)
	return nil
}

func TestPublishReport(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "risk.reports")

	report := &models.RiskReport{ID: "abc", Symbol: "AAPL", HorizonLength: 10}
	require.NoError(t, p.PublishReport(context.Background(), report))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, []byte("AAPL"), msg.Key)

	var decoded models.RiskReport
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "abc", decoded.ID)
	assert.Equal(t, 10, decoded.HorizonLength)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "abc", headers["report-id"])
	assert.Equal(t, "application/json", headers["content-type"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProduceMessageWrapsErrors(t *testing.T) {
	cause := errors.New("leader not available")
	p := newProducer(&fakeWriter{err: cause}, "risk.reports")

	err := p.ProduceMessage(context.Background(), nil, []byte("x"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestNewProducerValidatesConfig(t *testing.T) {
	_, err := NewProducer(ProducerConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestConsumePriceTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tick := func(offset int64, key, value string) kafka.Message {
		return kafka.Message{Offset: offset, Key: []byte(key), Value: []byte(value)}
	}
	r := &fakeReader{cancel: cancel, queue: []kafka.Message{
		tick(1, "", `{"symbol":"AAPL","price":101.5}`),
		tick(2, "MSFT", `{"price":320}`),
		tick(3, "AAPL", `not json`),
		tick(4, "AAPL", `{"symbol":"AAPL","price":-1}`),
		tick(5, "AAPL", `{"symbol":"AAPL","price":102}`),
	}}

	sink := priceSink{}
	c := newConsumer(r, "prices")
	require.NoError(t, c.ConsumeMessages(ctx, PriceHandler(sink)))

	assert.Equal(t, []float64{101.5, 102}, sink["AAPL"])
	assert.Equal(t, []float64{320}, sink["MSFT"])
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, r.committed)
}
