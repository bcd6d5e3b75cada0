package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bangunhq/estimator/pkg/errors"
)

// Topics published by the estimator.  Job lifecycle topics are keyed by job
// id so one job's events stay ordered within a partition.
const (
	TopicJobCreated             = "job.created"
	TopicJobCompleted           = "job.completed"
	TopicJobFailed              = "job.failed"
	TopicPaymentWebhookRejected = "payment.webhook.rejected"
	TopicPriceRecordRefreshed   = "price.record.refreshed"
)

// EventEnvelope is the wire format for every published event.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope wraps a payload for publication.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to decode event payload")
	}
	return nil
}
