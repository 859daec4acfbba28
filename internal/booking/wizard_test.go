package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

func lookupOf(slots ...model.Slot) SlotLookup {
	return func(id uint64) (model.Slot, bool) {
		for _, s := range slots {
			if s.ID == id {
				return s, true
			}
		}
		return model.Slot{}, false
	}
}

func ptr(v uint64) *uint64 { return &v }

func TestWizardHappyPath(t *testing.T) {
	w := NewWizard(7, lookupOf(model.Slot{ID: 1, ItemID: 7, MaxBookings: 2, CurrentBookings: 1}))

	w.Edit(func(d *Draft) { d.SlotID = ptr(1) })
	require.NoError(t, w.Next())
	assert.Equal(t, StepCustomization, w.Step())

	w.Edit(func(d *Draft) { d.Mobile = "0812345678" })
	require.NoError(t, w.Next())

	w.Edit(func(d *Draft) { d.PaymentMethod = model.PayCounter })
	require.NoError(t, w.Next())
	assert.Equal(t, StepConfirm, w.Step())

	req, err := w.Submit()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), *req.SlotID)
	assert.Equal(t, model.PayCounter, req.PaymentMethod)
}

func TestFullSlotIsNotSelectable(t *testing.T) {
	w := NewWizard(7, lookupOf(model.Slot{ID: 1, ItemID: 7, MaxBookings: 1, CurrentBookings: 1}))
	w.Edit(func(d *Draft) { d.SlotID = ptr(1) })

	err := w.Next()
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepDateTime, se.Step)
	assert.Equal(t, "slot is full", se.Message)
	assert.Equal(t, StepDateTime, w.Step())
}

func TestEmptyMobileBlocksAtCustomization(t *testing.T) {
	d := Draft{
		ItemID:        7,
		Flexible:      true,
		CustomDate:    "2026-11-02",
		CustomTime:    "14:00",
		Notes:         "small rose on the wrist",
		PaymentMethod: model.PayOnline,
	}
	err := ValidateDraft(d, lookupOf())
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepCustomization, se.Step)
	assert.Equal(t, "mobile", se.Field)

	d.Mobile = "12345"
	require.True(t, errors.As(ValidateDraft(d, lookupOf()), &se))
	assert.Equal(t, StepCustomization, se.Step)

	d.Mobile = "12345abcde"
	require.True(t, errors.As(ValidateDraft(d, lookupOf()), &se))
	assert.Equal(t, StepCustomization, se.Step)

	d.Mobile = "9876543210"
	assert.NoError(t, ValidateDraft(d, lookupOf()))
}

func TestFlexibleRequiresDateAndTime(t *testing.T) {
	d := Draft{ItemID: 7, Flexible: true, CustomDate: "2026-11-02"}
	var se *StepError
	require.True(t, errors.As(ValidateStep(StepDateTime, d, lookupOf()), &se))
	assert.Equal(t, StepDateTime, se.Step)

	d.CustomTime = "25:99"
	require.True(t, errors.As(ValidateStep(StepDateTime, d, lookupOf()), &se))
	assert.Equal(t, "custom_time", se.Field)
}

func TestBackKeepsFields(t *testing.T) {
	w := NewWizard(7, lookupOf(model.Slot{ID: 1, ItemID: 7, MaxBookings: 1}))
	w.Edit(func(d *Draft) { d.SlotID = ptr(1) })
	require.NoError(t, w.Next())
	w.Edit(func(d *Draft) { d.Mobile = "0812345678" })
	w.Back()
	assert.Equal(t, StepDateTime, w.Step())
	assert.Equal(t, "0812345678", w.Draft().Mobile)

	_, err := w.Submit()
	assert.ErrorIs(t, err, ErrNotAtConfirm)
}

func TestReferenceImagesMustBeDataURIs(t *testing.T) {
	d := Draft{ItemID: 7, Mobile: "0812345678", ReferenceImages: []string{"https://example.com/a.png"}}
	var se *StepError
	require.True(t, errors.As(ValidateStep(StepCustomization, d, lookupOf()), &se))
	assert.Equal(t, "reference_images", se.Field)
}
