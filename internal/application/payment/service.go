package payment

import (
	"context"

	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/internal/infrastructure/messaging/kafka"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
	"github.com/bangunhq/estimator/pkg/errors"
)

// EventPublisher publishes domain events.  Publishing is best effort: the
// service logs failures and continues.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, payload interface{}) error
}

// TopicWebhookRejected carries webhooks that failed signature verification,
// for fraud monitoring.
const TopicWebhookRejected = kafka.TopicPaymentWebhookRejected

// Result reports how a webhook notification was processed.
type Result struct {
	OrderID        string `json:"order_id"`
	InternalStatus Status `json:"internal_status"`
	Applied        bool   `json:"applied"`
}

// Service processes payment webhook notifications.
type Service struct {
	repo    Repository
	events  EventPublisher
	cfg     config.PaymentConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewService builds the webhook service.  events may be nil; a nil logger or
// metrics falls back to no-ops.
func NewService(repo Repository, events EventPublisher, cfg config.PaymentConfig, logger logging.Logger, metrics *prometheus.AppMetrics) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Service{
		repo:    repo,
		events:  events,
		cfg:     cfg,
		logger:  logger.Named("payment"),
		metrics: metrics,
	}
}

// HandleWebhook verifies and applies one notification.  State is mutated
// only after the signature verifies and the status maps to a known internal
// status; redelivered notifications return Applied=false with no error.
func (s *Service) HandleWebhook(ctx context.Context, n Notification) (*Result, error) {
	if !n.Verify(s.cfg.ServerKey) {
		s.metrics.WebhooksTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("webhook signature rejected", logging.String("order_id", n.OrderID))
		s.publishRejected(ctx, n)
		return nil, errors.New(errors.ErrCodeSignatureMismatch, "webhook signature verification failed")
	}

	status, ok := InternalStatus(n.TransactionStatus)
	if !ok {
		s.metrics.WebhooksTotal.WithLabelValues("malformed").Inc()
		return nil, errors.New(errors.ErrCodePaymentMalformed, "unrecognized transaction status").
			WithDetail(n.TransactionStatus)
	}

	p, err := s.repo.GetByOrderID(ctx, n.OrderID)
	if err != nil {
		return nil, err
	}

	changed, err := p.Apply(status, n)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.repo.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	s.metrics.WebhooksTotal.WithLabelValues("accepted").Inc()
	s.logger.Info("webhook applied",
		logging.String("order_id", n.OrderID),
		logging.String("status", string(status)),
		logging.Bool("changed", changed))
	return &Result{OrderID: n.OrderID, InternalStatus: status, Applied: changed}, nil
}

func (s *Service) publishRejected(ctx context.Context, n Notification) {
	if s.events == nil {
		return
	}
	n.SignatureKey = "" // never re-emit the forged signature
	if err := s.events.PublishEvent(ctx, TopicWebhookRejected, n.OrderID, n); err != nil {
		s.logger.Warn("rejected-webhook event publish failed", logging.Err(err))
	}
}
