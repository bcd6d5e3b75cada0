package repositories

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangunhq/estimator/internal/application/payment"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const paymentColumns = `order_id, transaction_id, worker_id, amount_idr, status, payment_type, fraud_status, created_at, updated_at`

// PaymentRepository persists payment records keyed by gateway order id.
type PaymentRepository struct {
	db     *pgxpool.Pool
	logger logging.Logger
}

// NewPaymentRepository builds the repository.
func NewPaymentRepository(db *pgxpool.Pool, log logging.Logger) *PaymentRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PaymentRepository{db: db, logger: log.Named("payment_repo")}
}

var _ payment.Repository = (*PaymentRepository)(nil)

// Create implements payment.Repository.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.OrderID, p.TransactionID, p.WorkerID, p.AmountIDR, p.Status,
		p.PaymentType, p.FraudStatus, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "payment insert failed")
	}
	return nil
}

// GetByOrderID implements payment.Repository.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)

	var p payment.Payment
	err := row.Scan(&p.OrderID, &p.TransactionID, &p.WorkerID, &p.AmountIDR,
		&p.Status, &p.PaymentType, &p.FraudStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodePaymentNotFound, "payment not found").WithDetail(orderID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "payment read failed")
	}
	return &p, nil
}

// Update implements payment.Repository.
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET
			transaction_id = $2, worker_id = $3, amount_idr = $4, status = $5,
			payment_type = $6, fraud_status = $7, updated_at = $8
		WHERE order_id = $1`,
		p.OrderID, p.TransactionID, p.WorkerID, p.AmountIDR, p.Status,
		p.PaymentType, p.FraudStatus, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "payment update failed")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodePaymentNotFound, "payment not found").WithDetail(p.OrderID)
	}
	return nil
}
