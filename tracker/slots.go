package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"telehealth/models"
	"telehealth/utils"

	"github.com/samber/lo"
)

var (
	// ErrSlotUnavailable is returned when booking a slot that is not available.
	ErrSlotUnavailable = errors.New("slot is not available")
	// ErrAlreadyPaid is returned when paying a booking twice.
	ErrAlreadyPaid = errors.New("booking already paid")
	// ErrInvalidBooking is returned for a malformed booking request.
	ErrInvalidBooking = errors.New("invalid booking")
)

const (
	defaultDoctorFee = 100
	platformFee      = 10
)

// SlotTabs are the tabs of the patient slot list, in display order.
var SlotTabs = []string{"all", "available", "pending", "cancelled"}

var slotTransitions = map[models.SlotStatus][]models.SlotStatus{
	models.SlotAvailable: {models.SlotPending},
}

// BookingRequest is the patient's booking form. Empty fields take the form defaults.
type BookingRequest struct {
	SlotID int                    `json:"slotId"`
	Date   string                 `json:"date"`
	Month  string                 `json:"month"`
	Time   string                 `json:"time"`
	Type   models.AppointmentType `json:"type"`
	Reason string                 `json:"reason"`
}

// Scheduler holds the doctor slots a patient books from and the resulting bookings.
type Scheduler struct {
	slots *Tracker[models.DoctorSlot, models.SlotStatus]

	mu       sync.RWMutex
	bookings []models.Booking
	now      func() time.Time
}

// NewScheduler creates a scheduler seeded with the demo slots.
func NewScheduler() *Scheduler {
	return &Scheduler{
		slots: New(fixtureSlots(), Options[models.DoctorSlot, models.SlotStatus]{
			ID:          func(s models.DoctorSlot) int { return s.ID },
			Status:      func(s models.DoctorSlot) models.SlotStatus { return s.Status },
			SetStatus:   func(s *models.DoctorSlot, st models.SlotStatus) { s.Status = st },
			SearchText:  func(s models.DoctorSlot) string { return s.Name + " " + s.Specialty },
			Transitions: slotTransitions,
		}),
		now: time.Now,
	}
}

// Slots returns the slot list.
func (s *Scheduler) Slots() *Tracker[models.DoctorSlot, models.SlotStatus] {
	return s.slots
}

// Book reserves an available slot and records an unpaid booking for it.
func (s *Scheduler) Book(req BookingRequest) (models.Booking, error) {
	req = withBookingDefaults(req)
	if req.Type != models.AppointmentOnline && req.Type != models.AppointmentInPerson {
		return models.Booking{}, fmt.Errorf("%w: type must be %q or %q", ErrInvalidBooking, models.AppointmentOnline, models.AppointmentInPerson)
	}

	slot, err := s.slots.Transition(req.SlotID, models.SlotPending)
	if errors.Is(err, ErrInvalidTransition) {
		return models.Booking{}, fmt.Errorf("slot %d: %w", req.SlotID, ErrSlotUnavailable)
	}
	if err != nil {
		return models.Booking{}, err
	}

	doctorFee := slot.Fee
	if doctorFee <= 0 {
		doctorFee = defaultDoctorFee
	}
	booking := models.Booking{
		ID:          utils.GenerateDashlessUUID(),
		SlotID:      slot.ID,
		DoctorName:  slot.Name,
		Specialty:   slot.Specialty,
		Date:        req.Date,
		Month:       req.Month,
		Time:        req.Time,
		Type:        req.Type,
		Reason:      req.Reason,
		DoctorFee:   doctorFee,
		PlatformFee: platformFee,
		TotalFee:    doctorFee + platformFee,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.bookings = append(s.bookings, booking)
	s.mu.Unlock()
	return booking, nil
}

// Bookings returns every booking in creation order.
func (s *Scheduler) Bookings() []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Booking{}, s.bookings...)
}

// Booking returns the booking with id.
func (s *Scheduler) Booking(id string) (models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := lo.Find(s.bookings, func(b models.Booking) bool { return b.ID == id })
	if !ok {
		return models.Booking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return b, nil
}

// Pay marks a booking paid. Paying twice yields ErrAlreadyPaid.
func (s *Scheduler) Pay(id string) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(s.bookings, func(b models.Booking) bool { return b.ID == id })
	if !ok {
		return models.Booking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if s.bookings[idx].Paid {
		return models.Booking{}, fmt.Errorf("booking %s: %w", id, ErrAlreadyPaid)
	}
	paidAt := s.now().UTC()
	s.bookings[idx].Paid = true
	s.bookings[idx].PaidAt = &paidAt
	return s.bookings[idx], nil
}

// ParseSlotTab maps a tab label to a status filter.
func ParseSlotTab(tab string) (models.SlotStatus, error) {
	return parseTab(tab, models.SlotAvailable, models.SlotPending, models.SlotCancelled)
}

func withBookingDefaults(req BookingRequest) BookingRequest {
	if strings.TrimSpace(req.Date) == "" {
		req.Date = "23"
	}
	if strings.TrimSpace(req.Month) == "" {
		req.Month = "11"
	}
	if strings.TrimSpace(req.Time) == "" {
		req.Time = "10:30 PM"
	}
	if req.Type == "" {
		req.Type = models.AppointmentOnline
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = "Regular checkup"
	}
	return req
}

func fixtureSlots() []models.DoctorSlot {
	type slot struct {
		date, time string
		status     models.SlotStatus
	}
	morning, afternoon := "10:00 AM - 12:30 AM", "2:00 PM - 4:30 PM"
	raw := []slot{
		{"29 Jul 2025, Sunday", morning, models.SlotAvailable},
		{"30 Jul 2025, Monday", afternoon, models.SlotAvailable},
		{"31 Jul 2025, Tuesday", morning, models.SlotPending},
		{"1 Aug 2025, Wednesday", afternoon, models.SlotAvailable},
		{"2 Aug 2025, Thursday", morning, models.SlotCancelled},
	}
	return lo.Map(raw, func(s slot, i int) models.DoctorSlot {
		return models.DoctorSlot{
			ID:        i + 1,
			Name:      "James Codell",
			Specialty: "Cardiologist",
			Rating:    4.9,
			Fee:       200,
			Date:      s.date,
			Time:      s.time,
			Image:     "/images/doc.png",
			Status:    s.status,
		}
	})
}
