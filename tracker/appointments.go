package tracker

import (
	"errors"
	"fmt"
	"strings"

	"telehealth/models"
)

// ErrUnknownAction is returned for an appointment action other than accept, cancel or recover.
var ErrUnknownAction = errors.New("unknown appointment action")

// AppointmentTabs are the tabs of the doctor appointment list, in display order.
var AppointmentTabs = []string{"All", "Accepted", "Pending", "Cancelled"}

var appointmentTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentPending:   {models.AppointmentAccepted, models.AppointmentCancelled},
	models.AppointmentAccepted:  {models.AppointmentCancelled},
	models.AppointmentCancelled: {models.AppointmentPending, models.AppointmentCancelled},
}

var appointmentActions = map[string]models.AppointmentStatus{
	"accept":  models.AppointmentAccepted,
	"cancel":  models.AppointmentCancelled,
	"recover": models.AppointmentPending,
}

// Appointments is the doctor's appointment list.
type Appointments struct {
	*Tracker[models.Appointment, models.AppointmentStatus]
}

// NewAppointments creates the list seeded with the demo appointments.
func NewAppointments() *Appointments {
	return &Appointments{
		Tracker: New(fixtureAppointments(), Options[models.Appointment, models.AppointmentStatus]{
			ID:          func(a models.Appointment) int { return a.ID },
			Status:      func(a models.Appointment) models.AppointmentStatus { return a.Status },
			SetStatus:   func(a *models.Appointment, s models.AppointmentStatus) { a.Status = s },
			SearchText:  func(a models.Appointment) string { return a.Patient + " " + a.Condition },
			Transitions: appointmentTransitions,
		}),
	}
}

// Apply performs a named action on an appointment.
func (a *Appointments) Apply(id int, action string) (models.Appointment, error) {
	to, ok := appointmentActions[strings.ToLower(action)]
	if !ok {
		return models.Appointment{}, fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}
	return a.Transition(id, to)
}

// AvailableActions lists the actions the UI offers for an appointment in status s.
func AvailableActions(s models.AppointmentStatus) []string {
	switch s {
	case models.AppointmentPending:
		return []string{"accept", "cancel"}
	case models.AppointmentAccepted:
		return []string{"cancel"}
	case models.AppointmentCancelled:
		return []string{"recover", "cancel"}
	}
	return nil
}

// ParseAppointmentTab maps a tab label to a status filter.
func ParseAppointmentTab(tab string) (models.AppointmentStatus, error) {
	return parseTab(tab, models.AppointmentAccepted, models.AppointmentPending, models.AppointmentCancelled)
}

func fixtureAppointments() []models.Appointment {
	statuses := []models.AppointmentStatus{models.AppointmentAccepted, models.AppointmentPending, models.AppointmentCancelled}
	appointments := make([]models.Appointment, 6)
	for i := range appointments {
		appointments[i] = models.Appointment{
			ID:        i + 1,
			Patient:   "John Doe",
			Condition: "Hypertension",
			Date:      "29 Jul 2025, Sunday",
			Time:      "10:00 AM - 12:30 AM",
			Status:    statuses[i%3],
			HasPaid:   i%2 == 0,
			Amount:    float64(120 + i*10),
		}
	}
	return appointments
}
