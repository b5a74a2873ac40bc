package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/croffers/journey-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SupplierBookings is the supplier-side booking surface
type SupplierBookings interface {
	ListSupplierBookings(ctx context.Context, ownerID uuid.UUID, status *models.BookingStatus, page, limit int) ([]models.Booking, error)
	ConfirmSupplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID) (*models.Booking, error)
	CancelSupplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID, reason string) (*models.Booking, error)
}

// SupplierBookingHandler handles booking requests from supplier accounts
type SupplierBookingHandler struct {
	bookings  SupplierBookings
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewSupplierBookingHandler creates a new supplier booking handler
func NewSupplierBookingHandler(bookings SupplierBookings, v *validator.Validator, logger *logrus.Logger) *SupplierBookingHandler {
	return &SupplierBookingHandler{bookings: bookings, validator: v, logger: logger}
}

// RegisterRoutes mounts the supplier routes on a supplier-only group
func (h *SupplierBookingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/supplier/bookings")
	bookings.GET("", h.ListBookings)
	bookings.POST("/:booking_id/confirm", h.ConfirmBooking)
	bookings.POST("/:booking_id/cancel", h.CancelBooking)
}

// ListBookings handles GET /api/v1/supplier/bookings
func (h *SupplierBookingHandler) ListBookings(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	var status *models.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s := models.BookingStatus(strings.ToUpper(raw))
		switch s {
		case models.BookingStatusPending, models.BookingStatusConfirmed,
			models.BookingStatusCancelled, models.BookingStatusCompleted:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_status",
				Message: "status must be one of PENDING, CONFIRMED, CANCELLED, COMPLETED",
			})
			return
		}
	}

	page, limit := pagination(c)
	bookings, err := h.bookings.ListSupplierBookings(c.Request.Context(), userCtx.UserID, status, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"page":     page,
		"limit":    limit,
		"total":    len(bookings),
	})
}

// ConfirmBooking handles POST /api/v1/supplier/bookings/:booking_id/confirm
func (h *SupplierBookingHandler) ConfirmBooking(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := paramUUID(c, "booking_id", "booking")
	if !ok {
		return
	}

	booking, err := h.bookings.ConfirmSupplierBooking(c.Request.Context(), userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking handles POST /api/v1/supplier/bookings/:booking_id/cancel
func (h *SupplierBookingHandler) CancelBooking(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := paramUUID(c, "booking_id", "booking")
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if !bindOptionalJSON(c, h.validator, &req) {
		return
	}
	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}

	booking, err := h.bookings.CancelSupplierBooking(c.Request.Context(), userCtx.UserID, bookingID, reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"supplier":   booking.SupplierID,
	}).Info("Supplier cancelled booking")

	c.JSON(http.StatusOK, booking)
}
