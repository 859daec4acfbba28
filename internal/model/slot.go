package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of slot and booking dates.
const DateLayout = "2006-01-02"

// Slot is a bookable time window for a catalog item (a tattoo slot or a
// class session).  It corresponds to a row in the `slots` table.
//
// Fields:
//
//	ID              – primary key identifier.
//	ItemID          – catalog item the slot belongs to.
//	Date            – calendar day in the studio time zone (YYYY-MM-DD).
//	StartTime       – local start time (HH:MM).
//	EndTime         – local end time (HH:MM).
//	MaxBookings     – capacity of the slot.
//	CurrentBookings – bookings currently holding capacity.
type Slot struct {
	ID              uint64    `json:"id"`
	ItemID          uint64    `json:"item_id"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	MaxBookings     uint32    `json:"max_bookings"`
	CurrentBookings uint32    `json:"current_bookings"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsAvailable is derived from the counters so that it can never disagree
// with them.
func (s Slot) IsAvailable() bool { return s.CurrentBookings < s.MaxBookings }

// Remaining returns the number of bookings the slot can still take.
func (s Slot) Remaining() uint32 {
	if s.CurrentBookings >= s.MaxBookings {
		return 0
	}
	return s.MaxBookings - s.CurrentBookings
}

// StartMinutes returns the start time as minutes since midnight.
func (s Slot) StartMinutes() (int, error) { return ClockMinutes(s.StartTime) }

// SlotView is the JSON shape returned to clients; it carries the derived
// availability flag next to the stored counters.
type SlotView struct {
	Slot
	IsAvailable bool `json:"is_available"`
}

// View wraps s with its derived fields.
func (s Slot) View() SlotView { return SlotView{Slot: s, IsAvailable: s.IsAvailable()} }

// ClockMinutes parses an "HH:MM" string into minutes since midnight.
func ClockMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
