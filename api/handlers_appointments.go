package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"telehealth/config"
	"telehealth/models"
	"telehealth/tracker"
	"telehealth/utils"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// AppointmentView is an appointment with the actions its status allows.
type AppointmentView struct {
	models.Appointment
	Actions []string `json:"actions"`
}

// AppointmentsResponse is the doctor's appointment list for one tab.
type AppointmentsResponse struct {
	Tabs         []string          `json:"tabs"`
	Appointments []AppointmentView `json:"appointments"`
}

// GetAppointmentsHandler lists the doctor's appointments.
// @Summary      List Appointments
// @Description  Lists the appointments booked with the signed-in doctor. `tab` selects a status (`All`, `Accepted`, `Pending`, `Cancelled`)
// @Description  and `search` matches the patient name or condition (case-insensitive). Both filters apply together.
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Param        tab     query  string  false  "Status tab." default(All)
// @Param        search  query  string  false  "Patient or condition substring."
// @Success      200  {object}  AppointmentsResponse "Matching appointments with their available actions."
// @Failure      400  {object}  utils.APIError "Bad Request: unknown tab."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      403  {object}  utils.APIError "Forbidden: only doctors have appointments."
// @Router       /appointments [get]
func GetAppointmentsHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}

	status, err := tracker.ParseAppointmentTab(c.Query("tab"))
	if err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid tab: %v", err))
		return
	}

	matches := ws.Appointments.Filter(tracker.Filter[models.AppointmentStatus]{Search: c.Query("search"), Status: status})
	c.JSON(http.StatusOK, AppointmentsResponse{
		Tabs: tracker.AppointmentTabs,
		Appointments: lo.Map(matches, func(a models.Appointment, _ int) AppointmentView {
			return AppointmentView{Appointment: a, Actions: tracker.AvailableActions(a.Status)}
		}),
	})
}

// AppointmentActionHandler accepts, cancels or recovers an appointment.
// @Summary      Act on an Appointment
// @Description  `accept` turns a pending appointment into accepted, `cancel` cancels it and `recover` returns a cancelled one to pending.
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int     true  "Appointment ID."
// @Param        action  path  string  true  "Action." Enums(accept, cancel, recover)
// @Success      200  {object}  AppointmentView "The appointment after the action."
// @Failure      400  {object}  utils.APIError "Bad Request: malformed id or unknown action."
// @Failure      403  {object}  utils.APIError "Forbidden: only doctors have appointments."
// @Failure      404  {object}  utils.APIError "Not Found: no such appointment."
// @Failure      409  {object}  utils.APIError "Conflict: the action is not allowed in the current status."
// @Router       /appointments/{id}/{action} [post]
func AppointmentActionHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.GinBadRequest(c, "Appointment ID must be an integer.")
		return
	}

	appt, err := ws.Appointments.Apply(id, c.Param("action"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, AppointmentView{Appointment: appt, Actions: tracker.AvailableActions(appt.Status)})
	case errors.Is(err, tracker.ErrUnknownAction):
		utils.GinBadRequest(c, fmt.Sprintf("Unknown action '%s', expected accept, cancel or recover.", c.Param("action")))
	case errors.Is(err, tracker.ErrNotFound):
		utils.GinNotFound(c, fmt.Sprintf("Appointment %d not found.", id))
	case errors.Is(err, tracker.ErrInvalidTransition):
		utils.GinConflict(c, fmt.Sprintf("Cannot %s appointment %d: %v", c.Param("action"), id, err))
	default:
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update appointment: %v", err))
	}
}

// --- Patient Booking ---

// SlotsResponse is the doctor listing a patient books from.
type SlotsResponse struct {
	Tabs  []string            `json:"tabs"`
	Slots []models.DoctorSlot `json:"slots"`
}

// GetSlotsHandler lists doctor slots for the signed-in patient.
// @Summary      List Doctor Slots
// @Tags         Bookings
// @Produce      json
// @Security     BearerAuth
// @Param        tab     query  string  false  "Status tab." Enums(all, available, pending, cancelled) default(all)
// @Param        search  query  string  false  "Doctor name or specialty substring."
// @Success      200  {object}  SlotsResponse "Matching slots."
// @Failure      400  {object}  utils.APIError "Bad Request: unknown tab."
// @Failure      403  {object}  utils.APIError "Forbidden: only patients book slots."
// @Router       /slots [get]
func GetSlotsHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}

	status, err := tracker.ParseSlotTab(c.Query("tab"))
	if err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid tab: %v", err))
		return
	}
	slots := ws.Scheduler.Slots().Filter(tracker.Filter[models.SlotStatus]{Search: c.Query("search"), Status: status})
	c.JSON(http.StatusOK, SlotsResponse{Tabs: tracker.SlotTabs, Slots: slots})
}

// CreateBookingHandler books an available slot.
// @Summary      Book a Slot
// @Description  Reserves an available slot, which becomes pending, and creates an unpaid booking.
// @Description  Omitted fields take the form defaults (date 23, month 11, time 10:30 PM, online, "Regular checkup").
// @Description  The total is the doctor fee plus a platform fee of 10.
// @Tags         Bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        booking body tracker.BookingRequest true "The booking form."
// @Success      201  {object}  models.Booking "The new booking."
// @Failure      400  {object}  utils.APIError "Bad Request: malformed booking."
// @Failure      404  {object}  utils.APIError "Not Found: no such slot."
// @Failure      409  {object}  utils.APIError "Conflict: the slot is not available."
// @Router       /bookings [post]
func CreateBookingHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, email := workspaceFor(c, svc)
	if ws == nil {
		return
	}

	var req tracker.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	booking, err := ws.Scheduler.Book(req)
	switch {
	case err == nil:
		logBooking(email, booking)
		c.JSON(http.StatusCreated, booking)
	case errors.Is(err, tracker.ErrInvalidBooking):
		utils.GinBadRequest(c, err.Error())
	case errors.Is(err, tracker.ErrNotFound):
		utils.GinNotFound(c, fmt.Sprintf("Slot %d not found.", req.SlotID))
	case errors.Is(err, tracker.ErrSlotUnavailable):
		utils.GinConflict(c, fmt.Sprintf("Slot %d is not available.", req.SlotID))
	default:
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to book slot: %v", err))
	}
}

// GetBookingsHandler lists the patient's bookings.
// @Summary      List Your Bookings
// @Tags         Bookings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Booking "Bookings in creation order."
// @Failure      403  {object}  utils.APIError "Forbidden: only patients have bookings."
// @Router       /bookings [get]
func GetBookingsHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}
	c.JSON(http.StatusOK, ws.Scheduler.Bookings())
}

// PayBookingHandler completes the payment of a booking.
// @Summary      Pay for a Booking
// @Tags         Bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Booking ID."
// @Success      200  {object}  models.Booking "The paid booking."
// @Failure      404  {object}  utils.APIError "Not Found: no such booking."
// @Failure      409  {object}  utils.APIError "Conflict: already paid."
// @Router       /bookings/{id}/pay [post]
func PayBookingHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	ws, _ := workspaceFor(c, svc)
	if ws == nil {
		return
	}

	id := c.Param("id")
	booking, err := ws.Scheduler.Pay(id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, booking)
	case errors.Is(err, tracker.ErrNotFound):
		utils.GinNotFound(c, fmt.Sprintf("Booking %s not found.", id))
	case errors.Is(err, tracker.ErrAlreadyPaid):
		utils.GinConflict(c, fmt.Sprintf("Booking %s is already paid.", id))
	default:
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to pay booking: %v", err))
	}
}

func logBooking(email string, b models.Booking) {
	log.Printf("INFO: %s booked slot %d with %s (booking %s, total %.2f)", email, b.SlotID, b.DoctorName, b.ID, b.TotalFee)
}
