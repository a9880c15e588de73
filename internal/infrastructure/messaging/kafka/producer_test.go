package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ARChemistry/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:         []string{"localhost:9092"},
		MaxMessageBytes: 64,
	}
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducerWithWriter(w, newTestProducerConfig(), logging.NewNopLogger())
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(newTestProducerConfig()))

	cfg := newTestProducerConfig()
	cfg.Brokers = nil
	assert.True(t, apperrors.IsValidation(ValidateProducerConfig(cfg)))

	cfg = newTestProducerConfig()
	cfg.MaxRetries = -1
	assert.Error(t, ValidateProducerConfig(cfg))
}

func TestNewProducer_UnknownSASL(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.SASLEnabled = true
	cfg.SASLMechanism = "GSSAPI"
	_, err := NewProducer(cfg, nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewProducer_Builds(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.CompressionCodec = "snappy"
	cfg.Acks = "all"
	p, err := NewProducer(cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})
	err := p.Publish(context.Background(), &Message{
		Topic:   "test",
		Key:     []byte("k"),
		Value:   []byte("v"),
		Headers: map[string]string{"h": "1"},
	})
	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, "test", captured[0].Topic)
	assert.Equal(t, "k", string(captured[0].Key))
	assert.Equal(t, "v", string(captured[0].Value))
	assert.Equal(t, []kafka.Header{{Key: "h", Value: []byte("1")}}, captured[0].Headers)
	assert.False(t, captured[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()
	assert.Error(t, p.Publish(ctx, &Message{Value: []byte("v")}))
	assert.Error(t, p.Publish(ctx, &Message{Topic: "t"}))
	assert.Error(t, p.Publish(ctx, &Message{Topic: "t", Value: make([]byte, 65)}))
	assert.Equal(t, int64(0), p.Sent())
}

func TestPublish_Failure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	})
	err := p.Publish(context.Background(), &Message{Topic: "t", Value: []byte("v")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessaging))
	assert.Equal(t, int64(1), p.Failed())
}

func TestClose(t *testing.T) {
	calls := 0
	p := newTestProducer(&mockKafkaWriter{
		closeFunc: func() error {
			calls++
			return nil
		},
	})
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, p.Publish(context.Background(), &Message{Topic: "t", Value: []byte("v")}), ErrProducerClosed)
}

func TestPing_Closed(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Ping(context.Background()), ErrProducerClosed)
}

func TestPing_Unreachable(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.Brokers = []string{"127.0.0.1:1"}
	p := newProducerWithWriter(&mockKafkaWriter{}, cfg, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.Ping(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessaging))
}

func TestPing_NoBrokers(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.Brokers = nil
	p := newProducerWithWriter(&mockKafkaWriter{}, cfg, logging.NewNopLogger())
	assert.Error(t, p.Ping(context.Background()))
}
