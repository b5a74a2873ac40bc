package handlers

import (
	"context"
	"net/http"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/croffers/journey-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JourneyFacade is the journey lifecycle surface the handler drives
type JourneyFacade interface {
	PlanJourney(ctx context.Context, userID uuid.UUID, req *models.PlanJourneyRequest) (*models.Journey, error)
	GetJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error)
	ListJourneys(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Journey, error)
	UpdateJourney(ctx context.Context, id, userID uuid.UUID, req *models.UpdateJourneyRequest) (*models.Journey, error)
	DeleteJourney(ctx context.Context, id, userID uuid.UUID) error
	CompleteJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error)

	AddSegment(ctx context.Context, journeyID, userID uuid.UUID, req *models.AddSegmentRequest) (*models.Journey, error)
	UpdateSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID, req *models.UpdateSegmentRequest) (*models.Journey, error)
	DeleteSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID) (*models.Journey, error)
	CancelSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID, reason string) (*models.Journey, error)

	BookJourney(ctx context.Context, id, userID uuid.UUID, opts *models.BookJourneyRequest) (*models.Journey, error)
	GetJourneyBookings(ctx context.Context, id, userID uuid.UUID) ([]models.Booking, error)

	GetCancelledSegments(ctx context.Context, id, userID uuid.UUID) ([]models.JourneySegment, error)
	FindReplacementServices(ctx context.Context, journeyID, segmentID, userID uuid.UUID) ([]models.CatalogService, error)
	ReplaceSegment(ctx context.Context, journeyID, segmentID, userID, newServiceID uuid.UUID) (*models.Journey, error)

	RecalculateJourneyStatus(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error)
	RecalculateAllJourneyStatuses(ctx context.Context, userID uuid.UUID) (*models.RecalculateAllResponse, error)
}

// JourneyHandler handles journey-related HTTP requests
type JourneyHandler struct {
	journeys  JourneyFacade
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewJourneyHandler creates a new journey handler
func NewJourneyHandler(journeys JourneyFacade, v *validator.Validator, logger *logrus.Logger) *JourneyHandler {
	return &JourneyHandler{journeys: journeys, validator: v, logger: logger}
}

// RegisterRoutes mounts the journey routes on an authenticated group
func (h *JourneyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	journeys := rg.Group("/journeys")
	journeys.POST("", h.PlanJourney)
	journeys.GET("", h.ListJourneys)
	journeys.POST("/recalculate-statuses", h.RecalculateAllStatuses)
	journeys.GET("/:id", h.GetJourney)
	journeys.PATCH("/:id", h.UpdateJourney)
	journeys.DELETE("/:id", h.DeleteJourney)
	journeys.POST("/:id/book", h.BookJourney)
	journeys.POST("/:id/complete", h.CompleteJourney)
	journeys.GET("/:id/bookings", h.GetJourneyBookings)
	journeys.GET("/:id/cancelled-segments", h.GetCancelledSegments)
	journeys.POST("/:id/recalculate-status", h.RecalculateStatus)

	journeys.POST("/:id/segments", h.AddSegment)
	journeys.PATCH("/:id/segments/:segment_id", h.UpdateSegment)
	journeys.DELETE("/:id/segments/:segment_id", h.DeleteSegment)
	journeys.POST("/:id/segments/:segment_id/cancel", h.CancelSegment)
	journeys.GET("/:id/segments/:segment_id/replacements", h.GetReplacements)
	journeys.POST("/:id/segments/:segment_id/replace", h.ReplaceSegment)
}

// ============================================================================
// JOURNEYS
// ============================================================================

// PlanJourney handles POST /api/v1/journeys
func (h *JourneyHandler) PlanJourney(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.PlanJourneyRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	journey, err := h.journeys.PlanJourney(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, journey)
}

// ListJourneys handles GET /api/v1/journeys
func (h *JourneyHandler) ListJourneys(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	page, limit := pagination(c)
	journeys, err := h.journeys.ListJourneys(c.Request.Context(), userCtx.UserID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if journeys == nil {
		journeys = []models.Journey{}
	}

	c.JSON(http.StatusOK, gin.H{
		"journeys": journeys,
		"page":     page,
		"limit":    limit,
		"total":    len(journeys),
	})
}

// GetJourney handles GET /api/v1/journeys/:id
func (h *JourneyHandler) GetJourney(c *gin.Context) {
	h.withJourney(c, h.journeys.GetJourney)
}

// UpdateJourney handles PATCH /api/v1/journeys/:id
func (h *JourneyHandler) UpdateJourney(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	var req models.UpdateJourneyRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	journey, err := h.journeys.UpdateJourney(c.Request.Context(), journeyID, userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

// DeleteJourney handles DELETE /api/v1/journeys/:id
func (h *JourneyHandler) DeleteJourney(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	if err := h.journeys.DeleteJourney(c.Request.Context(), journeyID, userCtx.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Journey deleted successfully"})
}

// CompleteJourney handles POST /api/v1/journeys/:id/complete
func (h *JourneyHandler) CompleteJourney(c *gin.Context) {
	h.withJourney(c, h.journeys.CompleteJourney)
}

// RecalculateStatus handles POST /api/v1/journeys/:id/recalculate-status
func (h *JourneyHandler) RecalculateStatus(c *gin.Context) {
	h.withJourney(c, h.journeys.RecalculateJourneyStatus)
}

// RecalculateAllStatuses handles POST /api/v1/journeys/recalculate-statuses
func (h *JourneyHandler) RecalculateAllStatuses(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.journeys.RecalculateAllJourneyStatuses(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ============================================================================
// BOOKING
// ============================================================================

// BookJourney handles POST /api/v1/journeys/:id/book
func (h *JourneyHandler) BookJourney(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	var req models.BookJourneyRequest
	if !bindOptionalJSON(c, h.validator, &req) {
		return
	}

	journey, err := h.journeys.BookJourney(c.Request.Context(), journeyID, userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

// GetJourneyBookings handles GET /api/v1/journeys/:id/bookings
func (h *JourneyHandler) GetJourneyBookings(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	bookings, err := h.journeys.GetJourneyBookings(c.Request.Context(), journeyID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings":   bookings,
		"journey_id": journeyID,
		"total":      len(bookings),
	})
}

// ============================================================================
// SEGMENTS
// ============================================================================

// AddSegment handles POST /api/v1/journeys/:id/segments
func (h *JourneyHandler) AddSegment(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	var req models.AddSegmentRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	journey, err := h.journeys.AddSegment(c.Request.Context(), journeyID, userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, journey)
}

// UpdateSegment handles PATCH /api/v1/journeys/:id/segments/:segment_id
func (h *JourneyHandler) UpdateSegment(c *gin.Context) {
	userID, journeyID, segmentID, ok := h.segmentParams(c)
	if !ok {
		return
	}

	var req models.UpdateSegmentRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	journey, err := h.journeys.UpdateSegment(c.Request.Context(), journeyID, segmentID, userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

// DeleteSegment handles DELETE /api/v1/journeys/:id/segments/:segment_id
func (h *JourneyHandler) DeleteSegment(c *gin.Context) {
	userID, journeyID, segmentID, ok := h.segmentParams(c)
	if !ok {
		return
	}

	journey, err := h.journeys.DeleteSegment(c.Request.Context(), journeyID, segmentID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

// CancelSegment handles POST /api/v1/journeys/:id/segments/:segment_id/cancel
func (h *JourneyHandler) CancelSegment(c *gin.Context) {
	userID, journeyID, segmentID, ok := h.segmentParams(c)
	if !ok {
		return
	}

	var req models.CancelSegmentRequest
	if !bindOptionalJSON(c, h.validator, &req) {
		return
	}
	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}

	journey, err := h.journeys.CancelSegment(c.Request.Context(), journeyID, segmentID, userID, reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

// ============================================================================
// REPLACEMENT
// ============================================================================

// GetCancelledSegments handles GET /api/v1/journeys/:id/cancelled-segments
func (h *JourneyHandler) GetCancelledSegments(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	segments, err := h.journeys.GetCancelledSegments(c.Request.Context(), journeyID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if segments == nil {
		segments = []models.JourneySegment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"segments": segments,
		"total":    len(segments),
	})
}

// GetReplacements handles GET /api/v1/journeys/:id/segments/:segment_id/replacements
func (h *JourneyHandler) GetReplacements(c *gin.Context) {
	userID, journeyID, segmentID, ok := h.segmentParams(c)
	if !ok {
		return
	}

	services, err := h.journeys.FindReplacementServices(c.Request.Context(), journeyID, segmentID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if services == nil {
		services = []models.CatalogService{}
	}

	c.JSON(http.StatusOK, gin.H{
		"services":   services,
		"segment_id": segmentID,
		"total":      len(services),
	})
}

// ReplaceSegment handles POST /api/v1/journeys/:id/segments/:segment_id/replace
func (h *JourneyHandler) ReplaceSegment(c *gin.Context) {
	userID, journeyID, segmentID, ok := h.segmentParams(c)
	if !ok {
		return
	}

	var req models.ReplaceSegmentRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid service ID format",
		})
		return
	}

	journey, err := h.journeys.ReplaceSegment(c.Request.Context(), journeyID, segmentID, userID, serviceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

// ============================================================================
// HELPERS
// ============================================================================

type journeyAction func(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error)

func (h *JourneyHandler) withJourney(c *gin.Context, action journeyAction) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return
	}

	journey, err := action(c.Request.Context(), journeyID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, journey)
}

func (h *JourneyHandler) segmentParams(c *gin.Context) (uuid.UUID, uuid.UUID, uuid.UUID, bool) {
	userCtx, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	journeyID, ok := paramUUID(c, "id", "journey")
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	segmentID, ok := paramUUID(c, "segment_id", "segment")
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return userCtx.UserID, journeyID, segmentID, true
}
