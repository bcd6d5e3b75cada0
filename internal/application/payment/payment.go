package payment

import (
	"context"
	"time"

	"github.com/bangunhq/estimator/pkg/errors"
)

// Status is the internal payment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled || s == StatusExpired
}

// Payment is one unlock transaction, keyed by the gateway order id.
type Payment struct {
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	WorkerID      string    `json:"worker_id"`
	AmountIDR     int64     `json:"amount_idr"`
	Status        Status    `json:"status"`
	PaymentType   string    `json:"payment_type,omitempty"`
	FraudStatus   string    `json:"fraud_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Apply moves the payment to the status carried by a verified notification.
// Re-applying the current status is a no-op success (Midtrans redelivers),
// reported through the changed return.  Moving a terminal payment to a
// different status is a conflict.
func (p *Payment) Apply(status Status, n Notification) (changed bool, err error) {
	if p.Status == status {
		return false, nil
	}
	if p.Status.Terminal() {
		return false, errors.New(errors.ErrCodeConflict, "payment already terminal").
			WithDetail(string(p.Status) + " -> " + string(status))
	}
	p.Status = status
	p.TransactionID = n.TransactionID
	p.PaymentType = n.PaymentType
	p.FraudStatus = n.FraudStatus
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Repository persists payments.
type Repository interface {
	// Create stores a new pending payment.
	Create(ctx context.Context, p *Payment) error

	// GetByOrderID retrieves a payment.  Returns
	// errors.ErrCodePaymentNotFound when the order id is unknown.
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)

	// Update replaces the stored payment row.
	Update(ctx context.Context, p *Payment) error
}
