package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"mediconnect-server/internal/appointments"
	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/utils"
)

// AppointmentHandler exposes the appointment lifecycle over HTTP. All
// authorization and validation lives in the lifecycle service; the
// handler only binds requests and maps domain errors to responses.
type AppointmentHandler struct {
	Service *appointments.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// BookAppointmentRequest represents the request body for booking.
type BookAppointmentRequest struct {
	ProviderID      string `json:"providerId" binding:"required,uuid"`
	Date            string `json:"date" binding:"required"`
	Time            string `json:"time" binding:"required"`
	Reason          string `json:"reason" binding:"required,max=500"`
	AppointmentType string `json:"appointmentType" binding:"omitempty,oneof=ROUTINE FOLLOW_UP CONSULTATION EMERGENCY"`
}

// BookAppointment books a new appointment for the calling patient.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Book(c.Request.Context(), caller, appointments.BookingInput{
		ProviderID:      req.ProviderID,
		Date:            req.Date,
		Time:            req.Time,
		Reason:          req.Reason,
		AppointmentType: models.AppointmentType(req.AppointmentType),
	})
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully. A confirmation email has been sent.", appt)
}

// GetAppointmentsForUser lists the caller's appointments.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appts, err := h.Service.ListForUser(c.Request.Context(), caller)
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID fetches a single appointment. Only the appointment's
// patient or provider may view it.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// CancelAppointment cancels a SCHEDULED, still-future appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Cancel(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully. A notification email has been sent.", appt)
}

// CompleteAppointment marks an appointment COMPLETED (provider only).
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Complete(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	utils.Success(c, "Appointment marked as completed", appt)
}

// MarkNoShow marks an appointment NO_SHOW (provider only).
func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.MarkNoShow(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	utils.Success(c, "Appointment marked as no-show", appt)
}

// DownloadCalendar serves the appointment as an .ics file.
func (h *AppointmentHandler) DownloadCalendar(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	id := c.Param("id")
	ical, err := h.Service.Calendar(c.Request.Context(), caller, id)
	if err != nil {
		respondAppointmentError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "appointment_"+id+".ics"))
	c.Data(200, "text/calendar", []byte(ical))
}

// respondAppointmentError maps lifecycle errors onto the response
// helpers without leaking appointment details on authorization failures.
func respondAppointmentError(c *gin.Context, err error) {
	var verr *appointments.ValidationError
	var serr *appointments.SlotUnavailableError
	switch {
	case errors.As(err, &verr):
		utils.BadRequest(c, verr.Error())
	case errors.As(err, &serr):
		utils.Conflict(c, serr.Error())
	case errors.Is(err, appointments.ErrNotAuthorized):
		utils.Forbidden(c, "You are not authorized to perform this action.")
	case errors.Is(err, appointments.ErrNotCancellable):
		utils.Conflict(c, "This appointment can no longer be cancelled.")
	case errors.Is(err, appointments.ErrInvalidTransition):
		utils.Conflict(c, "This appointment is no longer in a state that allows this transition.")
	case errors.Is(err, appointments.ErrNotFound):
		utils.NotFound(c, "Appointment not found")
	default:
		utils.InternalServerError(c, "Internal error: "+err.Error())
	}
}
