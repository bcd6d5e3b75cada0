package handlers

import (
	"context"
	"net/http"

	"github.com/bangunhq/estimator/internal/application/payment"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
)

// WebhookProcessor is the payment service surface the handler needs.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, n payment.Notification) (*payment.Result, error)
}

// PaymentHandler serves the payment gateway webhook.
type PaymentHandler struct {
	service WebhookProcessor
	logger  logging.Logger
}

// NewPaymentHandler builds the handler.
func NewPaymentHandler(service WebhookProcessor, logger logging.Logger) *PaymentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PaymentHandler{service: service, logger: logger.Named("payment_handler")}
}

// Webhook handles POST /api/v1/payments/webhooks/midtrans.  The gateway
// retries non-2xx responses, so only rejections (bad signature, malformed
// body) return errors; everything applied or already applied returns 200.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := decodeJSON(r, &n); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), n)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
