package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotAvailabilityDerivedFromCounters(t *testing.T) {
	full := Slot{MaxBookings: 3, CurrentBookings: 3}
	assert.False(t, full.IsAvailable())
	assert.False(t, full.View().IsAvailable)
	assert.Zero(t, full.Remaining())

	open := Slot{MaxBookings: 3, CurrentBookings: 1}
	assert.True(t, open.IsAvailable())
	assert.EqualValues(t, 2, open.Remaining())
}

func TestClockMinutes(t *testing.T) {
	m, err := ClockMinutes("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	_, err = ClockMinutes("9.30")
	assert.Error(t, err)
}

func TestBookingTransitions(t *testing.T) {
	assert.True(t, BookingPending.CanTransition(BookingConfirmed))
	assert.True(t, BookingPending.CanTransition(BookingAwaitingApproval))
	assert.True(t, BookingAwaitingApproval.CanTransition(BookingConfirmed))
	assert.False(t, BookingConfirmed.CanTransition(BookingPending))
	assert.False(t, BookingCancelled.CanTransition(BookingConfirmed))
}

func TestSettledStatus(t *testing.T) {
	slotID := uint64(4)
	assert.Equal(t, BookingConfirmed, Booking{SlotID: &slotID}.SettledStatus())
	assert.Equal(t, BookingAwaitingApproval, Booking{}.SettledStatus())
}

func TestToggleReaction(t *testing.T) {
	next, op, delta := ToggleReaction(nil, "like")
	require.NotNil(t, next)
	assert.Equal(t, "like", *next)
	assert.Equal(t, LikeInsert, op)
	assert.Equal(t, 1, delta)

	again, op, delta := ToggleReaction(next, "like")
	assert.Nil(t, again)
	assert.Equal(t, LikeDelete, op)
	assert.Equal(t, -1, delta)

	swapped, op, delta := ToggleReaction(next, "love")
	require.NotNil(t, swapped)
	assert.Equal(t, "love", *swapped)
	assert.Equal(t, LikeUpdate, op)
	assert.Zero(t, delta)
}

func TestPollPercentages(t *testing.T) {
	opts := []PollOption{{VoteCount: 1}, {VoteCount: 2}}
	assert.Equal(t, []float64{33.3, 66.7}, PollPercentages(opts))
	assert.Equal(t, []float64{0, 0}, PollPercentages([]PollOption{{}, {}}))
}

func TestDecodePostBody(t *testing.T) {
	body, err := DecodePostBody(PostPoll, json.RawMessage(`{"question":"Next flash day?","options":["Fri","Sat"]}`))
	require.NoError(t, err)
	poll, ok := body.(PollBody)
	require.True(t, ok)
	assert.Equal(t, PostPoll, poll.Kind())
	assert.NoError(t, poll.Validate())

	_, err = DecodePostBody("video", json.RawMessage(`{}`))
	assert.Error(t, err)

	body, err = DecodePostBody(PostText, json.RawMessage(`{"text":""}`))
	require.NoError(t, err)
	assert.Error(t, body.Validate())
}

func TestParseItemKind(t *testing.T) {
	k, ok := ParseItemKind("classes")
	assert.True(t, ok)
	assert.Equal(t, KindClass, k)
	assert.True(t, k.Bookable())
	_, ok = ParseItemKind("spaceships")
	assert.False(t, ok)
	assert.False(t, KindEvent.Bookable())
}
