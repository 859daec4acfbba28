// Package repository holds the MySQL access layer.  The sentinel errors
// below let handlers and services tell failure scenarios apart with
// errors.Is; sql.ErrNoRows never escapes this package.
package repository

import "errors"

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotFull is returned when a slot has no capacity left.  The check and
// the increment are one conditional UPDATE, so two concurrent bookings of
// the last place cannot both succeed.
var ErrSlotFull = errors.New("slot is full")

// ErrAlreadyVoted maps the poll_votes unique key violation.
var ErrAlreadyVoted = errors.New("already voted")

// ErrEmailExists maps the users.email unique key violation.
var ErrEmailExists = errors.New("email already exists")

// ErrForbidden is returned when the caller acts on a resource they do not
// own.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional update found the row in an
// unexpected state (e.g. approving a booking that is not awaiting
// approval).  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrSoldOut is returned when a token sale increment would exceed supply.
var ErrSoldOut = errors.New("sold out")

// ErrSlotInUse is returned when a slot still has live bookings attached.
var ErrSlotInUse = errors.New("slot has active bookings")

// SlotInUseError carries the number of live bookings that keep a slot from
// being deleted.  It matches ErrSlotInUse.
type SlotInUseError struct {
	Bookings int
}

func (e *SlotInUseError) Error() string { return ErrSlotInUse.Error() }

func (e *SlotInUseError) Is(target error) bool { return target == ErrSlotInUse }
