// Package kafka publishes the estimator's domain events.  The backend only
// produces; downstream consumers (notification service, analytics) live
// outside this repository.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
	"github.com/bangunhq/estimator/pkg/errors"
)

const sourceService = "bangun-estimator"

// ErrProducerClosed is returned by publishes after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

// writerInterface abstracts kafka.Writer for tests.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a kafka writer behind the application EventPublisher
// contract.
type Producer struct {
	writer  writerInterface
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	closed  atomic.Bool
}

// NewProducer builds the producer.  The Hash balancer keeps same-key events
// on one partition so per-job ordering holds.
func NewProducer(cfg config.KafkaConfig, log logging.Logger, metrics *prometheus.AppMetrics) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries + 1,
		BatchSize:    batchSize,
		BatchTimeout: time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{writer: writer, logger: log.Named("kafka"), metrics: metrics}, nil
}

// PublishEvent wraps the payload in an event envelope and writes it to the
// topic.  Implements the EventPublisher contract of the application layer.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, payload interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	envelope, err := NewEventEnvelope(topic, sourceService, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to marshal event envelope")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  envelope.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return errors.Wrap(err, errors.ErrCodeMessagingError, "event publish failed")
	}

	p.metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
	p.logger.Debug("event published",
		logging.String("topic", topic), logging.String("key", key))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
