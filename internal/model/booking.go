package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending          BookingStatus = "pending"
	BookingAwaitingApproval BookingStatus = "awaiting_approval"
	BookingConfirmed        BookingStatus = "confirmed"
	BookingCancelled        BookingStatus = "cancelled"
)

// bookingTransitions lists the allowed status changes.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:          {BookingConfirmed, BookingAwaitingApproval, BookingCancelled},
	BookingAwaitingApproval: {BookingConfirmed, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentMethod selects how the customer settles a booking.
type PaymentMethod string

const (
	PayOnline  PaymentMethod = "online"
	PayCounter PaymentMethod = "counter"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool { return m == PayOnline || m == PayCounter }

// Booking is a customer's reservation of a catalog item, either against a
// slot or, when SlotID is nil, at a custom ("flexible") date and time that
// an admin has to approve.  It corresponds to a row in the `bookings` table.
type Booking struct {
	ID              uint64        `json:"id"`
	ItemID          uint64        `json:"item_id"`
	SlotID          *uint64       `json:"slot_id"`
	UserID          uint64        `json:"user_id"`
	BookingDate     string        `json:"booking_date"`
	BookingTime     string        `json:"booking_time"`
	Mobile          string        `json:"mobile"`
	Notes           string        `json:"notes,omitempty"`
	ReferenceImages []string      `json:"reference_images,omitempty"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	FinalPriceCents uint64        `json:"final_price_cents"`
	Status          BookingStatus `json:"status"`
	PaymentOrderID  *string       `json:"payment_order_id,omitempty"`
	PaymentRef      *string       `json:"payment_ref,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsFlexible reports whether the booking asks for a custom time.
func (b Booking) IsFlexible() bool { return b.SlotID == nil }

// SettledStatus is the status a booking takes once its payment is verified:
// slot bookings are confirmed, flexible ones still wait for an admin.
func (b Booking) SettledStatus() BookingStatus {
	if b.IsFlexible() {
		return BookingAwaitingApproval
	}
	return BookingConfirmed
}

// BookingOrder is a hosted-checkout order opened for a booking.
type BookingOrder struct {
	OrderID     string    `json:"order_id"`
	BookingID   uint64    `json:"booking_id"`
	Token       string    `json:"token"`
	RedirectURL string    `json:"redirect_url"`
	AmountCents uint64    `json:"amount_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}
