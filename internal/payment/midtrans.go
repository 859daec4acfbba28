package payment

import (
	"context"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans implements Gateway with Snap hosted checkout.
type Midtrans struct {
	client    snap.Client
	serverKey string
}

// NewMidtrans builds a Snap client for the sandbox or production API.
func NewMidtrans(serverKey string, production bool) *Midtrans {
	m := &Midtrans{serverKey: serverKey}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m.client.New(serverKey, env)
	return m
}

// CreateOrder opens a Snap transaction.  Snap amounts are whole currency
// units; an amount with minor units is refused rather than rounded, since
// the verified gross amount has to match what was asked for.
func (m *Midtrans) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if req.OrderID == "" || req.AmountCents < 100 {
		return Order{}, fmt.Errorf("%w: order id and a positive amount are required", ErrGateway)
	}
	if !WholeUnits(req.AmountCents) {
		return Order{}, fmt.Errorf("%w: %s", ErrFractionalAmount, FormatGrossAmount(req.AmountCents))
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	gross := int64(req.AmountCents / 100)
	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    truncate(req.ItemID, 50),
			Name:  truncate(req.ItemName, 50),
			Price: gross,
			Qty:   1,
		}},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}
	if req.Customer.Email != "" || req.Customer.Phone != "" {
		sreq.CustomerDetail = &midtrans.CustomerDetails{
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		}
	}
	resp, merr := m.client.CreateTransaction(sreq)
	if merr != nil {
		return Order{}, fmt.Errorf("%w: %s", ErrGateway, merr.Error())
	}
	return Order{
		OrderID:     req.OrderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}, nil
}

// Verify checks a Snap result or HTTP notification.
func (m *Midtrans) Verify(n Notification) (Result, error) {
	return VerifyNotification(m.serverKey, n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
