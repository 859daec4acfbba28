package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// AdminSlotService is the admin side of capacity management.  Overlapping
// slots are allowed; avoiding them is left to the admin.
type AdminSlotService struct {
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	catalog  *repository.CatalogRepo
	log      *zap.Logger
}

func NewAdminSlotService(slots *repository.SlotRepo, bookings *repository.BookingRepo, catalog *repository.CatalogRepo, log *zap.Logger) *AdminSlotService {
	return &AdminSlotService{slots: slots, bookings: bookings, catalog: catalog, log: log.Named("admin_slots")}
}

// SlotDay aggregates one day of slots for the admin table.
type SlotDay struct {
	Date          string           `json:"date"`
	Slots         []model.SlotView `json:"slots"`
	TotalCapacity uint32           `json:"total_capacity"`
	TotalBooked   uint32           `json:"total_booked"`
	OpenSlots     int              `json:"open_slots"`
}

// CreateSlotInput is what an admin submits to open a slot.
type CreateSlotInput struct {
	ItemID      uint64 `json:"item_id" validate:"required"`
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	MaxBookings uint32 `json:"max_bookings" validate:"required,min=1,max=500"`
}

// Create validates and inserts a slot.
func (s *AdminSlotService) Create(ctx context.Context, in CreateSlotInput) (model.Slot, error) {
	if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		return model.Slot{}, invalid("date", "expected YYYY-MM-DD")
	}
	start, err := model.ClockMinutes(in.StartTime)
	if err != nil {
		return model.Slot{}, invalid("start_time", "expected HH:MM")
	}
	end, err := model.ClockMinutes(in.EndTime)
	if err != nil {
		return model.Slot{}, invalid("end_time", "expected HH:MM")
	}
	if end <= start {
		return model.Slot{}, invalid("end_time", "must be after start_time")
	}
	if in.MaxBookings == 0 {
		return model.Slot{}, invalid("max_bookings", "must be at least 1")
	}
	item, err := s.catalog.GetByID(ctx, in.ItemID)
	if err != nil {
		return model.Slot{}, err
	}
	if !item.Kind.Bookable() {
		return model.Slot{}, ErrNotBookable
	}

	sl := model.Slot{ItemID: in.ItemID, Date: in.Date, StartTime: in.StartTime, EndTime: in.EndTime, MaxBookings: in.MaxBookings}
	if err := s.slots.Create(ctx, &sl); err != nil {
		return model.Slot{}, err
	}
	s.log.Info("slot created", zap.Uint64("slot_id", sl.ID), zap.Uint64("item_id", sl.ItemID),
		zap.String("date", sl.Date), zap.String("start", sl.StartTime))
	return sl, nil
}

// ListForDate returns every slot on date with capacity totals.  itemID
// narrows the list when non-zero.
func (s *AdminSlotService) ListForDate(ctx context.Context, date string, itemID uint64) (SlotDay, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return SlotDay{}, invalid("date", "expected YYYY-MM-DD")
	}
	var (
		slots []model.Slot
		err   error
	)
	if itemID != 0 {
		slots, err = s.slots.ListByItemDate(ctx, itemID, date)
	} else {
		slots, err = s.slots.ListByDate(ctx, date)
	}
	if err != nil {
		return SlotDay{}, err
	}
	return Summarize(date, slots), nil
}

// Summarize computes the totals shown above the admin slot table.
func Summarize(date string, slots []model.Slot) SlotDay {
	day := SlotDay{Date: date, Slots: make([]model.SlotView, 0, len(slots))}
	for _, sl := range slots {
		day.Slots = append(day.Slots, sl.View())
		day.TotalCapacity += sl.MaxBookings
		day.TotalBooked += sl.CurrentBookings
		if sl.IsAvailable() {
			day.OpenSlots++
		}
	}
	return day
}

// Delete removes a slot.  It is irreversible, so confirmed must be set.
func (s *AdminSlotService) Delete(ctx context.Context, id uint64, confirmed bool) error {
	if !confirmed {
		return ErrConfirmRequired
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("slot deleted", zap.Uint64("slot_id", id))
	return nil
}

// Bookings lists the bookings attached to a slot.
func (s *AdminSlotService) Bookings(ctx context.Context, slotID uint64) ([]model.Booking, error) {
	if _, err := s.slots.GetByID(ctx, slotID); err != nil {
		return nil, err
	}
	return s.bookings.ListBySlot(ctx, slotID)
}

// BookingsByStatus feeds the approval queue.
func (s *AdminSlotService) BookingsByStatus(ctx context.Context, status model.BookingStatus, limit int) ([]model.Booking, error) {
	switch status {
	case "", model.BookingPending, model.BookingAwaitingApproval, model.BookingConfirmed, model.BookingCancelled:
	default:
		return nil, invalid("status", "unknown booking status")
	}
	return s.bookings.ListByStatus(ctx, status, limit)
}
