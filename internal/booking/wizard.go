// Package booking holds the booking wizard: a strictly linear state machine
// (date/time, customization, payment, confirm) whose step validators are
// shared by clients and by the server when it accepts a submission.
package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Step identifies a wizard screen.
type Step int

const (
	StepDateTime Step = iota
	StepCustomization
	StepPayment
	StepConfirm
)

var stepNames = [...]string{"datetime", "customization", "payment", "confirm"}

func (s Step) String() string {
	if s < StepDateTime || s > StepConfirm {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// MaxReferenceImages caps the inline images a customer may attach.
const MaxReferenceImages = 5

// Draft is everything the wizard collects.  A complete Draft is the
// booking request sent to the server.
type Draft struct {
	ItemID          uint64              `json:"item_id"`
	SlotID          *uint64             `json:"slot_id,omitempty"`
	Flexible        bool                `json:"flexible"`
	CustomDate      string              `json:"custom_date,omitempty"`
	CustomTime      string              `json:"custom_time,omitempty"`
	Mobile          string              `json:"mobile"`
	Notes           string              `json:"notes,omitempty"`
	ReferenceImages []string            `json:"reference_images,omitempty"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
}

// StepError reports the step that blocked progress and why.
type StepError struct {
	Step    Step
	Field   string
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Field, e.Message)
}

// SlotLookup resolves a slot id to its current state.  ok is false when
// the slot does not exist.
type SlotLookup func(id uint64) (slot model.Slot, ok bool)

var validate = validator.New()

// ValidateStep checks the fields owned by step.
func ValidateStep(step Step, d Draft, lookup SlotLookup) error {
	switch step {
	case StepDateTime:
		return validateDateTime(d, lookup)
	case StepCustomization:
		return validateCustomization(d)
	case StepPayment:
		if !d.PaymentMethod.Valid() {
			return &StepError{Step: StepPayment, Field: "payment_method", Message: "choose online or counter"}
		}
		return nil
	case StepConfirm:
		return nil
	}
	return fmt.Errorf("unknown step %d", step)
}

// ValidateDraft runs every step validator in order and returns the first
// failure.  A nil error means the draft can be submitted.
func ValidateDraft(d Draft, lookup SlotLookup) error {
	if d.ItemID == 0 {
		return &StepError{Step: StepDateTime, Field: "item_id", Message: "is required"}
	}
	for s := StepDateTime; s <= StepConfirm; s++ {
		if err := ValidateStep(s, d, lookup); err != nil {
			return err
		}
	}
	return nil
}

func validateDateTime(d Draft, lookup SlotLookup) error {
	if d.Flexible {
		if d.SlotID != nil {
			return &StepError{Step: StepDateTime, Field: "slot_id", Message: "must be empty for a flexible booking"}
		}
		if strings.TrimSpace(d.CustomDate) == "" || strings.TrimSpace(d.CustomTime) == "" {
			return &StepError{Step: StepDateTime, Field: "custom_date", Message: "date and time are required"}
		}
		if _, err := time.Parse(model.DateLayout, d.CustomDate); err != nil {
			return &StepError{Step: StepDateTime, Field: "custom_date", Message: "use YYYY-MM-DD"}
		}
		if _, err := model.ClockMinutes(d.CustomTime); err != nil {
			return &StepError{Step: StepDateTime, Field: "custom_time", Message: "use HH:MM"}
		}
		return nil
	}
	if d.SlotID == nil {
		return &StepError{Step: StepDateTime, Field: "slot_id", Message: "select a slot"}
	}
	slot, ok := lookup(*d.SlotID)
	if !ok || slot.ItemID != d.ItemID {
		return &StepError{Step: StepDateTime, Field: "slot_id", Message: "slot not found"}
	}
	if !slot.IsAvailable() {
		return &StepError{Step: StepDateTime, Field: "slot_id", Message: "slot is full"}
	}
	return nil
}

func validateCustomization(d Draft) error {
	if err := validate.Var(d.Mobile, "required,len=10,numeric"); err != nil {
		return &StepError{Step: StepCustomization, Field: "mobile", Message: "enter a 10-digit mobile number"}
	}
	if len(d.ReferenceImages) > MaxReferenceImages {
		return &StepError{Step: StepCustomization, Field: "reference_images", Message: fmt.Sprintf("at most %d images", MaxReferenceImages)}
	}
	for _, img := range d.ReferenceImages {
		if !strings.HasPrefix(img, "data:image/") {
			return &StepError{Step: StepCustomization, Field: "reference_images", Message: "images must be image data URIs"}
		}
	}
	return nil
}

// ErrNotAtConfirm is returned by Submit before the wizard reached Confirm.
var ErrNotAtConfirm = errors.New("booking wizard: submit is only allowed from the confirm step")

// Wizard walks a Draft through the steps.  Going back never clears fields.
type Wizard struct {
	step   Step
	draft  Draft
	lookup SlotLookup
}

// NewWizard starts a wizard for itemID at the DateTime step.
func NewWizard(itemID uint64, lookup SlotLookup) *Wizard {
	return &Wizard{step: StepDateTime, draft: Draft{ItemID: itemID}, lookup: lookup}
}

func (w *Wizard) Step() Step { return w.step }

// Draft returns a copy of the collected fields.
func (w *Wizard) Draft() Draft { return w.draft }

// Edit applies fn to the draft.  The current step does not change.
func (w *Wizard) Edit(fn func(d *Draft)) { fn(&w.draft) }

// Next validates the current step and advances.  On failure the wizard
// stays where it is.
func (w *Wizard) Next() error {
	if w.step == StepConfirm {
		return nil
	}
	if err := ValidateStep(w.step, w.draft, w.lookup); err != nil {
		return err
	}
	w.step++
	return nil
}

// Back returns to the previous step.
func (w *Wizard) Back() {
	if w.step > StepDateTime {
		w.step--
	}
}

// Submit revalidates the whole draft and returns it as the request to send.
func (w *Wizard) Submit() (Draft, error) {
	if w.step != StepConfirm {
		return Draft{}, ErrNotAtConfirm
	}
	if err := ValidateDraft(w.draft, w.lookup); err != nil {
		return Draft{}, err
	}
	return w.draft, nil
}
