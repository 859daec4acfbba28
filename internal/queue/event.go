// Package queue defines the domain events exchanged over RabbitMQ together
// with their publisher and the background consumer.
package queue

// Queue names.  Both are durable.
const (
	BookingConfirmedQueue = "booking.confirmed"
	TokensPurchasedQueue  = "tokens.purchased"
)

// BookingConfirmedEvent is published when a booking reaches confirmed.  It
// carries enough for downstream consumers to log or notify without reading
// the database.
type BookingConfirmedEvent struct {
	BookingID       uint64  `json:"booking_id"`
	UserID          uint64  `json:"user_id"`
	ItemID          uint64  `json:"item_id"`
	ItemName        string  `json:"item_name"`
	SlotID          *uint64 `json:"slot_id,omitempty"`
	BookingDate     string  `json:"booking_date"`
	BookingTime     string  `json:"booking_time"`
	PaymentMethod   string  `json:"payment_method"`
	FinalPriceCents uint64  `json:"final_price_cents"`
	ConfirmedAt     string  `json:"confirmed_at"`
}

// TokensPurchasedEvent is published when a token purchase settles.
type TokensPurchasedEvent struct {
	PurchaseID  uint64 `json:"purchase_id"`
	UserID      uint64 `json:"user_id"`
	Tokens      uint32 `json:"tokens"`
	AmountCents uint64 `json:"amount_cents"`
	OrderID     string `json:"order_id"`
	ConfirmedAt string `json:"confirmed_at"`
}
