// internal/interfaces/http/handlers/appointment.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/appointment"
	"github.com/your-org/feedmarket-backend/internal/domain/payment"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/middleware"
)

// AppointmentHandler handles consultation booking endpoints
type AppointmentHandler struct {
	appointmentService *appointment.Service
	reconciler         *payment.Reconciler
	config             *config.Config
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointmentService *appointment.Service, reconciler *payment.Reconciler, cfg *config.Config) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService: appointmentService,
		reconciler:         reconciler,
		config:             cfg,
	}
}

// ListConsultants handles GET /consultants
func (h *AppointmentHandler) ListConsultants(c *gin.Context) {
	consultants, err := h.appointmentService.ListConsultants(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve consultants"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Consultants retrieved successfully",
		"data":    consultants,
	})
}

// GetTakenSlots handles GET /consultants/:id/slots?date=YYYY-MM-DD
func (h *AppointmentHandler) GetTakenSlots(c *gin.Context) {
	consultantID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid consultant ID"})
		return
	}

	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter date is required"})
		return
	}

	slots, err := h.appointmentService.GetTakenSlots(c.Request.Context(), uint(consultantID), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve slots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Taken slots retrieved successfully",
		"data": gin.H{
			"date":        date,
			"taken_slots": slots,
		},
	})
}

// Book handles POST /appointments
func (h *AppointmentHandler) Book(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req appointment.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	booked, err := h.appointmentService.Book(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrConsultantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Consultant not found"})
		case errors.Is(err, appointment.ErrSlotTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "The slot is already taken"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Appointment booked, complete the payment to confirm the slot",
		"data":    booked,
	})
}

// GetAppointments handles GET /appointments
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	appointments, err := h.appointmentService.GetAppointments(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve appointments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Appointments retrieved successfully",
		"data":    appointments,
	})
}

// GetAppointment handles GET /appointments/:code. Like the order
// detail view, a best-effort live payment check runs after ownership
// is established.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	found, err := h.appointmentService.GetByCode(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve appointment"})
		return
	}

	if _, rerr := h.reconciler.Resolve(c.Request.Context(), found.AppointmentCode); rerr == nil {
		if refreshed, lerr := h.appointmentService.GetByCode(c.Request.Context(), userID, found.AppointmentCode); lerr == nil {
			found = refreshed
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Appointment retrieved successfully",
		"data":    found,
	})
}

// Cancel handles PUT /appointments/:code/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	cancelled, err := h.appointmentService.Cancel(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrAppointmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
		case errors.Is(err, appointment.ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "Appointment can no longer be cancelled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel appointment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Appointment cancelled successfully",
		"data":    cancelled,
	})
}
