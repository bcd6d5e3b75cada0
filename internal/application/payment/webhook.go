// Package payment verifies and applies Midtrans payment webhook
// notifications.  Verification is a pure keyed-hash check; applying a
// verified notification is idempotent, so Midtrans redelivery never corrupts
// payment state.
package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Notification is the Midtrans webhook payload.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}

// VerifySignature checks the Midtrans webhook signature: hex-encoded
// SHA-512 over order_id + status_code + gross_amount + server_key, compared
// in constant time.  It returns false (never panics, never errors) for any
// missing field, missing key, or malformed signature.
func VerifySignature(orderID, statusCode, grossAmount, providedSignature, serverKey string) bool {
	if orderID == "" || statusCode == "" || grossAmount == "" || providedSignature == "" || serverKey == "" {
		return false
	}

	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	provided := strings.ToLower(providedSignature)

	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// Verify checks n's signature against the configured server key.
func (n Notification) Verify(serverKey string) bool {
	return VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, serverKey)
}

// midtransStatus maps Midtrans transaction statuses to internal ones.
var midtransStatus = map[string]Status{
	"capture":    StatusCompleted,
	"settlement": StatusCompleted,
	"pending":    StatusPending,
	"deny":       StatusFailed,
	"failure":    StatusFailed,
	"cancel":     StatusCancelled,
	"expire":     StatusExpired,
}

// InternalStatus maps a Midtrans transaction status to the internal payment
// status.  The second return is false for statuses this system does not
// recognize.
func InternalStatus(transactionStatus string) (Status, bool) {
	s, ok := midtransStatus[strings.ToLower(strings.TrimSpace(transactionStatus))]
	return s, ok
}
