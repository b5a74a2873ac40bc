package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/croffers/journey-backend/internal/apperrors"
	"github.com/croffers/journey-backend/internal/middleware"
	"github.com/croffers/journey-backend/internal/services"
	"github.com/croffers/journey-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// errorStatus maps a service error onto an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, apperrors.ErrLimitExceeded):
		return http.StatusTooManyRequests, "limit_exceeded"
	case errors.Is(err, apperrors.ErrBookingFailed):
		return http.StatusBadGateway, "booking_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes err using the shared status mapping. Partial booking
// failures carry the journey and the failed groups in the body.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	if partial, ok := services.IsPartialBooking(err); ok {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "booking_failed",
			"message":  partial.Error(),
			"journey":  partial.Journey,
			"failures": partial.Failures,
		})
		return
	}

	var fieldErrs *validator.FieldErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Request validation failed",
			Details: fieldErrs.Fields,
		})
		return
	}

	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error("Request failed")
		message = "An internal error occurred"
	}

	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

// bindJSON decodes the body into req and runs struct validation
func bindJSON(c *gin.Context, v *validator.Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: " + err.Error(),
		})
		return false
	}
	if err := v.Struct(req); err != nil {
		var fieldErrs *validator.FieldErrors
		if errors.As(err, &fieldErrs) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Request validation failed",
				Details: fieldErrs.Fields,
			})
		} else {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
		}
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted
func bindOptionalJSON(c *gin.Context, v *validator.Validator, req interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, v, req)
}

func paramUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid " + label + " ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (middleware.UserContext, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "User context not found",
		})
	}
	return userCtx, exists
}

// pagination reads page and limit query parameters; bad values fall back to defaults
func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
