package model

import "time"

// TokenSaleConfig is the single-row configuration of the token offering.
type TokenSaleConfig struct {
	PricePerTokenCents uint64    `json:"price_per_token_cents"`
	Currency           string    `json:"currency"`
	MinTokens          uint32    `json:"min_tokens"`
	MaxTokens          uint32    `json:"max_tokens"`
	TotalSupply        uint64    `json:"total_supply"`
	Sold               uint64    `json:"sold"`
	IsActive           bool      `json:"is_active"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Remaining returns the unsold supply.
func (c TokenSaleConfig) Remaining() uint64 {
	if c.Sold >= c.TotalSupply {
		return 0
	}
	return c.TotalSupply - c.Sold
}

type TokenPurchaseStatus string

const (
	TokenPurchasePending   TokenPurchaseStatus = "pending"
	TokenPurchaseConfirmed TokenPurchaseStatus = "confirmed"
	TokenPurchaseFailed    TokenPurchaseStatus = "failed"
)

// TokenPurchase records a checkout for a number of tokens.
type TokenPurchase struct {
	ID          uint64              `json:"id"`
	UserID      uint64              `json:"user_id"`
	Tokens      uint32              `json:"tokens"`
	AmountCents uint64              `json:"amount_cents"`
	Status      TokenPurchaseStatus `json:"status"`
	OrderID     string              `json:"order_id"`
	PaymentRef  *string             `json:"payment_ref,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
