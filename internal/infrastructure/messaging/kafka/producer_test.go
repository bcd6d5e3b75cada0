package kafka

import (
	"context"
	"encoding/json"
	"testing"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedWriter struct {
	messages []segkafka.Message
	err      error
	closed   bool
}

func (w *capturedWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *capturedWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w writerInterface) *Producer {
	p, _ := NewProducer(testKafkaConfig(), nil, nil)
	p.writer = w
	return p
}

func TestPublishEventWrapsPayloadInEnvelope(t *testing.T) {
	w := &capturedWriter{}
	p := newTestProducer(w)

	payload := map[string]string{"job_id": "j-1", "status": "completed"}
	require.NoError(t, p.PublishEvent(context.Background(), TopicJobCompleted, "j-1", payload))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, TopicJobCompleted, msg.Topic)
	assert.Equal(t, "j-1", string(msg.Key))

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, TopicJobCompleted, envelope.EventType)
	assert.Equal(t, sourceService, envelope.Source)
	assert.Equal(t, "v1", envelope.SchemaVersion)
	assert.NotEmpty(t, envelope.EventID)

	var decoded map[string]string
	require.NoError(t, envelope.DecodePayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestPublishEventWriterError(t *testing.T) {
	p := newTestProducer(&capturedWriter{err: assert.AnError})
	err := p.PublishEvent(context.Background(), TopicJobFailed, "j-2", nil)
	require.Error(t, err)
}

func TestPublishAfterClose(t *testing.T) {
	w := &capturedWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.PublishEvent(context.Background(), TopicJobCreated, "j-3", nil)
	assert.ErrorIs(t, err, ErrProducerClosed)

	// Double close is a no-op.
	require.NoError(t, p.Close())
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	cfg := testKafkaConfig()
	cfg.Brokers = nil
	_, err := NewProducer(cfg, nil, nil)
	require.Error(t, err)
}
