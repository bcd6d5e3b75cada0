package payment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/pkg/errors"
)

const testServerKey = "SB-Mid-server-testkey"

func sign(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + testServerKey))
	return hex.EncodeToString(sum[:])
}

func validNotification() Notification {
	return Notification{
		OrderID:           "UNLOCK-2024-0001",
		StatusCode:        "200",
		GrossAmount:       "50000.00",
		SignatureKey:      sign("UNLOCK-2024-0001", "200", "50000.00"),
		TransactionID:     "tx-123",
		TransactionStatus: "settlement",
		PaymentType:       "gopay",
	}
}

func TestVerifySignature(t *testing.T) {
	n := validNotification()
	assert.True(t, n.Verify(testServerKey))

	// Any single changed input invalidates the signature.
	tampered := n
	tampered.GrossAmount = "50001.00"
	assert.False(t, tampered.Verify(testServerKey))

	tampered = n
	tampered.OrderID = "UNLOCK-2024-0002"
	assert.False(t, tampered.Verify(testServerKey))

	tampered = n
	tampered.StatusCode = "201"
	assert.False(t, tampered.Verify(testServerKey))

	assert.False(t, n.Verify("wrong-key"))
}

func TestVerifySignatureMalformedInputs(t *testing.T) {
	assert.False(t, VerifySignature("", "200", "50000.00", "abc", testServerKey))
	assert.False(t, VerifySignature("o", "", "50000.00", "abc", testServerKey))
	assert.False(t, VerifySignature("o", "200", "", "abc", testServerKey))
	assert.False(t, VerifySignature("o", "200", "50000.00", "", testServerKey))
	assert.False(t, VerifySignature("o", "200", "50000.00", "abc", ""))
	assert.False(t, VerifySignature("o", "200", "50000.00", "not-hex-at-all", testServerKey))
}

func TestVerifySignatureDeterministic(t *testing.T) {
	n := validNotification()
	for i := 0; i < 3; i++ {
		assert.True(t, n.Verify(testServerKey))
	}
}

func TestVerifySignatureCaseInsensitiveHex(t *testing.T) {
	n := validNotification()
	upper := n
	upper.SignatureKey = toUpperHex(n.SignatureKey)
	assert.True(t, upper.Verify(testServerKey))
}

func toUpperHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestInternalStatus(t *testing.T) {
	cases := map[string]Status{
		"capture":    StatusCompleted,
		"settlement": StatusCompleted,
		"pending":    StatusPending,
		"deny":       StatusFailed,
		"failure":    StatusFailed,
		"cancel":     StatusCancelled,
		"expire":     StatusExpired,
	}
	for midtrans, want := range cases {
		got, ok := InternalStatus(midtrans)
		assert.True(t, ok, midtrans)
		assert.Equal(t, want, got)
	}

	_, ok := InternalStatus("refund_chargeback")
	assert.False(t, ok)
}

func TestPaymentApply(t *testing.T) {
	p := &Payment{OrderID: "o", Status: StatusPending}

	changed, err := p.Apply(StatusCompleted, validNotification())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, "tx-123", p.TransactionID)

	// Redelivery of the same terminal status is a no-op success.
	changed, err = p.Apply(StatusCompleted, validNotification())
	require.NoError(t, err)
	assert.False(t, changed)

	// A different status on a terminal payment is a conflict.
	_, err = p.Apply(StatusExpired, validNotification())
	assert.True(t, errors.IsConflict(err))
}

// fakePaymentRepo is an in-memory payment store.
type fakePaymentRepo struct {
	payments map[string]*Payment
	updates  int
}

func newFakePaymentRepo(payments ...*Payment) *fakePaymentRepo {
	m := make(map[string]*Payment, len(payments))
	for _, p := range payments {
		m[p.OrderID] = p
	}
	return &fakePaymentRepo{payments: m}
}

func (f *fakePaymentRepo) Create(_ context.Context, p *Payment) error {
	f.payments[p.OrderID] = p
	return nil
}

func (f *fakePaymentRepo) GetByOrderID(_ context.Context, orderID string) (*Payment, error) {
	if p, ok := f.payments[orderID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, errors.New(errors.ErrCodePaymentNotFound, "unknown order")
}

func (f *fakePaymentRepo) Update(_ context.Context, p *Payment) error {
	f.updates++
	f.payments[p.OrderID] = p
	return nil
}

type capturingPublisher struct {
	topics []string
}

func (c *capturingPublisher) PublishEvent(_ context.Context, topic, _ string, _ interface{}) error {
	c.topics = append(c.topics, topic)
	return nil
}

func newTestService(repo Repository, events EventPublisher) *Service {
	return NewService(repo, events, config.PaymentConfig{ServerKey: testServerKey}, nil, nil)
}

func TestHandleWebhookApplies(t *testing.T) {
	repo := newFakePaymentRepo(&Payment{OrderID: "UNLOCK-2024-0001", Status: StatusPending, CreatedAt: time.Now()})
	s := newTestService(repo, nil)

	res, err := s.HandleWebhook(context.Background(), validNotification())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.InternalStatus)
	assert.True(t, res.Applied)
	assert.Equal(t, StatusCompleted, repo.payments["UNLOCK-2024-0001"].Status)
}

func TestHandleWebhookIdempotent(t *testing.T) {
	repo := newFakePaymentRepo(&Payment{OrderID: "UNLOCK-2024-0001", Status: StatusPending})
	s := newTestService(repo, nil)

	first, err := s.HandleWebhook(context.Background(), validNotification())
	require.NoError(t, err)
	second, err := s.HandleWebhook(context.Background(), validNotification())
	require.NoError(t, err)

	assert.True(t, first.Applied)
	assert.False(t, second.Applied)
	assert.Equal(t, 1, repo.updates, "redelivery writes nothing")
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	repo := newFakePaymentRepo(&Payment{OrderID: "UNLOCK-2024-0001", Status: StatusPending})
	events := &capturingPublisher{}
	s := newTestService(repo, events)

	n := validNotification()
	n.SignatureKey = "deadbeef"
	_, err := s.HandleWebhook(context.Background(), n)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSignatureMismatch))
	assert.Equal(t, StatusPending, repo.payments["UNLOCK-2024-0001"].Status, "no state change on rejection")
	assert.Equal(t, []string{TopicWebhookRejected}, events.topics)
}

func TestHandleWebhookUnknownStatus(t *testing.T) {
	repo := newFakePaymentRepo(&Payment{OrderID: "UNLOCK-2024-0001", Status: StatusPending})
	s := newTestService(repo, nil)

	n := validNotification()
	n.TransactionStatus = "chargeback"
	n.SignatureKey = sign(n.OrderID, n.StatusCode, n.GrossAmount)
	_, err := s.HandleWebhook(context.Background(), n)
	assert.True(t, errors.IsCode(err, errors.ErrCodePaymentMalformed))
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	s := newTestService(newFakePaymentRepo(), nil)
	_, err := s.HandleWebhook(context.Background(), validNotification())
	assert.True(t, errors.IsNotFound(err))
}
