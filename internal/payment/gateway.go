// Package payment is the bridge to the hosted checkout.  A Gateway opens an
// order for a known amount and later verifies the signed result the widget
// (or the gateway's notification) reports back.
package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidSignature = errors.New("verification failed")
	ErrGateway          = errors.New("payment gateway error")
	// ErrFractionalAmount rejects amounts the gateway cannot charge exactly.
	ErrFractionalAmount = errors.New("amount must be a whole currency amount")
)

// Status is the settlement state derived from a verified notification.
type Status string

const (
	StatusSettled Status = "settled"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Customer is forwarded to the hosted page for prefilling.
type Customer struct {
	Email string
	Phone string
}

// OrderRequest describes what the customer is paying for.  Amounts are in
// minor units of Currency.
type OrderRequest struct {
	OrderID     string
	AmountCents uint64
	Currency    string
	ItemID      string
	ItemName    string
	Customer    Customer
}

// Order is what the client needs to open the hosted widget.
type Order struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	AmountCents uint64 `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Notification is the signed result posted back by the widget or the
// gateway's HTTP notification.
type Notification struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// Result is a verified notification.
type Result struct {
	OrderID     string
	Status      Status
	Reference   string
	AmountCents uint64
}

// Gateway opens hosted-checkout orders and verifies their results.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	Verify(n Notification) (Result, error)
}

// NewOrderID returns a unique order id with a domain prefix ("BK", "TOK")
// so a notification can be routed without a lookup.
func NewOrderID(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
}

// OrderPrefix returns the domain prefix of an order id.
func OrderPrefix(orderID string) string {
	if i := strings.IndexByte(orderID, '-'); i > 0 {
		return orderID[:i]
	}
	return ""
}

// Signature computes SHA512(order_id + status_code + gross_amount + server_key)
// in lower-case hex.
func Signature(serverKey, orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifyNotification checks the signature of n against serverKey and maps
// the gateway's transaction status onto Status.
func VerifyNotification(serverKey string, n Notification) (Result, error) {
	if serverKey == "" || n.SignatureKey == "" {
		return Result{}, ErrInvalidSignature
	}
	want := Signature(serverKey, n.OrderID, n.StatusCode, n.GrossAmount)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) != 1 {
		return Result{}, ErrInvalidSignature
	}
	amount, err := ParseGrossAmount(n.GrossAmount)
	if err != nil {
		return Result{}, ErrInvalidSignature
	}
	return Result{
		OrderID:     n.OrderID,
		Status:      mapStatus(n.TransactionStatus, n.FraudStatus),
		Reference:   n.TransactionID,
		AmountCents: amount,
	}, nil
}

func mapStatus(transaction, fraud string) Status {
	switch strings.ToLower(transaction) {
	case "settlement":
		return StatusSettled
	case "capture":
		if fraud == "" || strings.EqualFold(fraud, "accept") {
			return StatusSettled
		}
		return StatusPending
	case "deny", "cancel", "expire", "failure", "refund", "partial_refund":
		return StatusFailed
	}
	return StatusPending
}

// ParseGrossAmount converts "150000.00" into minor units (15000000).
func ParseGrossAmount(s string) (uint64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid gross amount %q", s)
	}
	return uint64(math.Round(f * 100)), nil
}

// WholeUnits reports whether cents is a whole currency amount.  Snap only
// charges whole units, so prices are kept to multiples of 100.
func WholeUnits(cents uint64) bool { return cents%100 == 0 }

// FormatGrossAmount renders minor units the way the gateway signs them.
func FormatGrossAmount(cents uint64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
