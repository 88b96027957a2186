package tracker

import (
	"testing"

	"telehealth/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Fixtures(t *testing.T) {
	s := NewScheduler()
	slots := s.Slots().List()
	require.Len(t, slots, 5)
	assert.Equal(t, "29 Jul 2025, Sunday", slots[0].Date)
	assert.Equal(t, "2 Aug 2025, Thursday", slots[4].Date)

	assert.Len(t, s.Slots().Filter(Filter[models.SlotStatus]{Status: models.SlotAvailable}), 3)
	assert.Len(t, s.Slots().Filter(Filter[models.SlotStatus]{Status: models.SlotPending}), 1)
	assert.Len(t, s.Slots().Filter(Filter[models.SlotStatus]{Status: models.SlotCancelled}), 1)
}

func TestScheduler_Book(t *testing.T) {
	s := NewScheduler()

	booking, err := s.Book(BookingRequest{SlotID: 2})
	require.NoError(t, err)
	assert.Len(t, booking.ID, 32)
	assert.Equal(t, "James Codell", booking.DoctorName)
	assert.Equal(t, "23", booking.Date)
	assert.Equal(t, "11", booking.Month)
	assert.Equal(t, "10:30 PM", booking.Time)
	assert.Equal(t, models.AppointmentOnline, booking.Type)
	assert.Equal(t, "Regular checkup", booking.Reason)
	assert.Equal(t, float64(200), booking.DoctorFee)
	assert.Equal(t, float64(10), booking.PlatformFee)
	assert.Equal(t, float64(210), booking.TotalFee)
	assert.False(t, booking.Paid)

	slot, _ := s.Slots().Get(2)
	assert.Equal(t, models.SlotPending, slot.Status)

	_, err = s.Book(BookingRequest{SlotID: 2})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	_, err = s.Book(BookingRequest{SlotID: 5})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "Cancelled slots cannot be booked")
	_, err = s.Book(BookingRequest{SlotID: 42})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Book(BookingRequest{SlotID: 1, Type: "telepathy"})
	assert.ErrorIs(t, err, ErrInvalidBooking)

	custom, err := s.Book(BookingRequest{SlotID: 4, Date: "5", Month: "8", Time: "9:00 AM", Type: models.AppointmentInPerson, Reason: "Follow-up"})
	require.NoError(t, err)
	assert.Equal(t, "Follow-up", custom.Reason)
	assert.Equal(t, models.AppointmentInPerson, custom.Type)

	assert.Len(t, s.Bookings(), 2)
}

func TestScheduler_DefaultDoctorFee(t *testing.T) {
	s := NewScheduler()
	_, err := s.Slots().Update(1, func(slot *models.DoctorSlot) { slot.Fee = 0 })
	require.NoError(t, err)

	booking, err := s.Book(BookingRequest{SlotID: 1})
	require.NoError(t, err)
	assert.Equal(t, float64(100), booking.DoctorFee)
	assert.Equal(t, float64(110), booking.TotalFee)
}

func TestScheduler_Pay(t *testing.T) {
	s := NewScheduler()
	booking, err := s.Book(BookingRequest{SlotID: 1})
	require.NoError(t, err)

	paid, err := s.Pay(booking.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidAt)

	_, err = s.Pay(booking.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, err = s.Pay("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := s.Booking(booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.Paid)
	_, err = s.Booking("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
