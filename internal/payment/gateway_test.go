package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(key string, n Notification) Notification {
	n.SignatureKey = Signature(key, n.OrderID, n.StatusCode, n.GrossAmount)
	return n
}

func TestVerifyNotificationSettled(t *testing.T) {
	n := signed("SB-key", Notification{
		OrderID: "BK-ABC", StatusCode: "200", GrossAmount: "150000.00",
		TransactionStatus: "settlement", TransactionID: "trx-1",
	})
	res, err := VerifyNotification("SB-key", n)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, res.Status)
	assert.Equal(t, uint64(15000000), res.AmountCents)
	assert.Equal(t, "trx-1", res.Reference)
}

func TestVerifyNotificationUppercaseSignature(t *testing.T) {
	n := signed("SB-key", Notification{OrderID: "BK-1", StatusCode: "200", GrossAmount: "1.00", TransactionStatus: "capture"})
	n.SignatureKey = strings.ToUpper(n.SignatureKey)
	res, err := VerifyNotification("SB-key", n)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, res.Status)
}

func TestVerifyNotificationTampered(t *testing.T) {
	n := signed("SB-key", Notification{OrderID: "BK-ABC", StatusCode: "200", GrossAmount: "150000.00"})
	n.GrossAmount = "1.00"
	_, err := VerifyNotification("SB-key", n)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyNotification("", signed("", n))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, StatusPending, mapStatus("capture", "challenge"))
	assert.Equal(t, StatusFailed, mapStatus("expire", ""))
	assert.Equal(t, StatusPending, mapStatus("pending", ""))
}

func TestGrossAmount(t *testing.T) {
	assert.Equal(t, "1500.05", FormatGrossAmount(150005))
	c, err := ParseGrossAmount("1500.05")
	require.NoError(t, err)
	assert.Equal(t, uint64(150005), c)
	_, err = ParseGrossAmount("abc")
	assert.Error(t, err)
}

func TestOrderIDPrefix(t *testing.T) {
	id := NewOrderID("TOK")
	assert.Equal(t, "TOK", OrderPrefix(id))
	assert.Len(t, id, len("TOK-")+20)
	assert.NotEqual(t, id, NewOrderID("TOK"))
}

func TestMidtransRefusesMinorUnits(t *testing.T) {
	m := NewMidtrans("SB-key", false)
	_, err := m.CreateOrder(context.Background(), OrderRequest{OrderID: "BK-ABC", AmountCents: 150050, Currency: "IDR"})
	assert.ErrorIs(t, err, ErrFractionalAmount)
	assert.True(t, WholeUnits(150000))
	assert.False(t, WholeUnits(150050))
}
