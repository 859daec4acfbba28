package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
)

// SlotLister is the read side of the slot store used by SlotQueryService.
type SlotLister interface {
	ListByItemDate(ctx context.Context, itemID uint64, date string) ([]model.Slot, error)
}

// SlotListing is the answer to a slot query.  Flexible is set when no
// slot is left to pick, which lets the customer propose a custom time.
// Degraded is set when the store could not be read.
type SlotListing struct {
	ItemID   uint64           `json:"item_id"`
	Date     string           `json:"date"`
	Slots    []model.SlotView `json:"slots"`
	Flexible bool             `json:"flexible"`
	Degraded bool             `json:"-"`
}

// SlotQueryService answers "which slots can I book on this day".
type SlotQueryService struct {
	slots SlotLister
	loc   *time.Location
	log   *zap.Logger
}

func NewSlotQueryService(slots SlotLister, loc *time.Location, log *zap.Logger) *SlotQueryService {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotQueryService{slots: slots, loc: loc, log: log.Named("slots")}
}

// ForDate lists the item's slots on date.  Only a malformed date is an
// error; a store failure is logged and answered with an empty, degraded
// listing without retrying.
func (s *SlotQueryService) ForDate(ctx context.Context, itemID uint64, date string, now time.Time) (SlotListing, error) {
	if _, err := time.ParseInLocation(model.DateLayout, date, s.loc); err != nil {
		return SlotListing{}, invalid("date", "expected YYYY-MM-DD")
	}
	out := SlotListing{ItemID: itemID, Date: date, Slots: []model.SlotView{}}

	slots, err := s.slots.ListByItemDate(ctx, itemID, date)
	if err != nil {
		s.log.Warn("list slots failed", zap.Uint64("item_id", itemID), zap.String("date", date), zap.Error(err))
		out.Flexible = true
		out.Degraded = true
		return out, nil
	}
	for _, sl := range DropStarted(slots, date, now.In(s.loc)) {
		out.Slots = append(out.Slots, sl.View())
	}
	out.Flexible = len(out.Slots) == 0
	return out, nil
}

// DropStarted removes the slots that already started when date is the
// calendar day of now.  now must be in the studio time zone.  Slots with
// an unparsable start time are dropped as well.
func DropStarted(slots []model.Slot, date string, now time.Time) []model.Slot {
	if date != now.Format(model.DateLayout) {
		return slots
	}
	cur := now.Hour()*60 + now.Minute()
	kept := make([]model.Slot, 0, len(slots))
	for _, sl := range slots {
		start, err := sl.StartMinutes()
		if err != nil || start < cur {
			continue
		}
		kept = append(kept, sl)
	}
	return kept
}

// started reports whether a slot has begun at now (studio time zone).
func started(sl model.Slot, now time.Time) bool {
	today := now.Format(model.DateLayout)
	if sl.Date != today {
		return sl.Date < today
	}
	start, err := sl.StartMinutes()
	return err != nil || start < now.Hour()*60+now.Minute()
}
