package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBookable is returned when an item is inactive or of a kind that
	// is sold rather than booked.
	ErrNotBookable = errors.New("item cannot be booked")
	// ErrFlexibleNotAllowed rejects a custom time while slots are open.
	ErrFlexibleNotAllowed = errors.New("slots are available on this date, pick one")
	ErrPastDate           = errors.New("date is in the past")
	ErrNotOnline          = errors.New("booking is not paid online")
	ErrAmountMismatch     = errors.New("paid amount does not match")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrPaymentsDisabled   = errors.New("online payments are not configured")
	ErrStorageDisabled    = errors.New("image uploads are not configured")
	// ErrConfirmRequired guards irreversible admin deletes.
	ErrConfirmRequired = errors.New("confirmation required")
	ErrSaleClosed      = errors.New("token sale is closed")
)

// ValidationError reports one invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }
