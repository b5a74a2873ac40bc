package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/croffers/journey-backend/internal/apperrors"
	"github.com/croffers/journey-backend/internal/database"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// JourneyServiceConfig holds the journey planning rules
type JourneyServiceConfig struct {
	MaxActivePlans  int
	DefaultCurrency string
}

// JourneyService is the public journey facade used by the HTTP layer, the
// scheduler and the maintenance commands
type JourneyService struct {
	journeys     JourneyStore
	segments     SegmentStore
	bookings     BookingGateway
	catalog      CatalogLookup
	orchestrator *BookingOrchestrator
	cascade      *CancellationCascade
	replacement  *SegmentReplacementEngine
	reconciler   *StatusReconciler
	config       JourneyServiceConfig
	logger       *logrus.Logger
}

// NewJourneyService wires the journey core together
func NewJourneyService(
	journeys JourneyStore,
	segments SegmentStore,
	bookings BookingGateway,
	catalog CatalogLookup,
	notifier Notifier,
	bookingConcurrency int,
	config JourneyServiceConfig,
	logger *logrus.Logger,
) *JourneyService {
	reconciler := NewStatusReconciler(journeys, segments, bookings, logger)
	return &JourneyService{
		journeys:     journeys,
		segments:     segments,
		bookings:     bookings,
		catalog:      catalog,
		orchestrator: NewBookingOrchestrator(journeys, segments, bookings, catalog, notifier, bookingConcurrency, logger),
		cascade:      NewCancellationCascade(journeys, segments, reconciler, logger),
		replacement:  NewSegmentReplacementEngine(journeys, segments, catalog, logger),
		reconciler:   reconciler,
		config:       config,
		logger:       logger,
	}
}

// ============================================================================
// JOURNEYS
// ============================================================================

// PlanJourney creates an empty PLANNING journey
func (s *JourneyService) PlanJourney(ctx context.Context, userID uuid.UUID, req *models.PlanJourneyRequest) (*models.Journey, error) {
	originID, err := uuid.Parse(req.OriginLocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid origin_location_id", apperrors.ErrInvalidInput)
	}
	destinationID, err := uuid.Parse(req.DestinationLocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid destination_location_id", apperrors.ErrInvalidInput)
	}
	startDate, endDate, err := req.ParsedDates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if req.Travelers < 1 {
		return nil, fmt.Errorf("%w: travelers must be at least 1", apperrors.ErrInvalidInput)
	}

	origin, err := s.catalog.GetLocation(ctx, originID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, fmt.Errorf("%w: unknown origin location %s", apperrors.ErrInvalidInput, originID)
	}
	destination, err := s.catalog.GetLocation(ctx, destinationID)
	if err != nil {
		return nil, err
	}
	if destination == nil {
		return nil, fmt.Errorf("%w: unknown destination location %s", apperrors.ErrInvalidInput, destinationID)
	}

	name := fmt.Sprintf("%s to %s", origin.Name, destination.Name)
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	journey := &models.Journey{
		ID:                    uuid.New(),
		UserID:                userID,
		Name:                  name,
		OriginLocationID:      originID,
		DestinationLocationID: destinationID,
		StartDate:             startDate,
		EndDate:               endDate,
		Travelers:             req.Travelers,
		Currency:              s.config.DefaultCurrency,
		TotalPrice:            decimal.Zero,
		Status:                models.JourneyStatusPlanning,
		Preferences:           req.Preferences,
	}
	if err := s.journeys.CreateWithinCap(ctx, journey, models.PlanningStatuses, s.config.MaxActivePlans); err != nil {
		if errors.Is(err, database.ErrPlanningCapReached) {
			return nil, fmt.Errorf("%w: at most %d journeys can be in planning at once", apperrors.ErrLimitExceeded, s.config.MaxActivePlans)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"journey_id": journey.ID,
		"user_id":    userID,
	}).Info("Journey planned")

	journey.Segments = []models.JourneySegment{}
	return journey, nil
}

// GetJourney returns a journey with its segments
func (s *JourneyService) GetJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.withSegments(ctx, journey)
}

// ListJourneys returns a page of the user's journeys
func (s *JourneyService) ListJourneys(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Journey, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.journeys.ListByUser(ctx, userID, limit, (page-1)*limit)
}

// UpdateJourney patches the journey header. Changing the traveler count
// reprices per-person segments and is refused once anything is booked.
func (s *JourneyService) UpdateJourney(ctx context.Context, id, userID uuid.UUID, req *models.UpdateJourneyRequest) (*models.Journey, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidInput)
	}

	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if journey.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: journey is %s", apperrors.ErrInvalidState, journey.Status)
	}

	if req.Name != nil {
		journey.Name = strings.TrimSpace(*req.Name)
	}
	start, end := journey.StartDate.Format(models.DateLayout), journey.EndDate.Format(models.DateLayout)
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if journey.StartDate, journey.EndDate, err = (&models.PlanJourneyRequest{StartDate: start, EndDate: end}).ParsedDates(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if req.Preferences != nil {
		journey.Preferences = req.Preferences
	}

	var reprice map[uuid.UUID]decimal.Decimal
	if req.Travelers != nil && *req.Travelers != journey.Travelers {
		reprice, err = s.repriceForTravelers(ctx, journey, *req.Travelers)
		if err != nil {
			return nil, err
		}
		journey.Travelers = *req.Travelers
	}

	if journey.TotalPrice, err = s.journeys.Update(ctx, journey, reprice); err != nil {
		if errors.Is(err, database.ErrTravelersLocked) {
			return nil, fmt.Errorf("%w: traveler count cannot change once segments are booked", apperrors.ErrInvalidState)
		}
		return nil, err
	}

	return s.withSegments(ctx, journey)
}

// repriceForTravelers computes new prices for open per-person catalog segments
func (s *JourneyService) repriceForTravelers(ctx context.Context, journey *models.Journey, travelers int) (map[uuid.UUID]decimal.Decimal, error) {
	segments, err := s.segments.ListByJourney(ctx, journey.ID)
	if err != nil {
		return nil, err
	}

	prices := make(map[uuid.UUID]decimal.Decimal)
	for _, seg := range segments {
		if seg.IsBooked {
			return nil, fmt.Errorf("%w: traveler count cannot change once segments are booked", apperrors.ErrInvalidState)
		}
		if seg.IsCancelled || seg.ServiceID == nil {
			continue
		}
		service, err := s.catalog.GetService(ctx, *seg.ServiceID)
		if err != nil {
			return nil, err
		}
		if service == nil {
			continue
		}
		if !service.AcceptsGuests(travelers) {
			return nil, fmt.Errorf("%w: service %s does not accept %d travelers", apperrors.ErrInvalidInput, service.ID, travelers)
		}
		if seg.SegmentType.IsPricedPerPerson() {
			prices[seg.ID] = service.PriceFor(travelers)
		}
	}
	return prices, nil
}

// DeleteJourney removes a journey unless one of its segments still holds an
// active booking
func (s *JourneyService) DeleteJourney(ctx context.Context, id, userID uuid.UUID) error {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return err
	}

	segments, err := s.segments.ListByJourney(ctx, journey.ID)
	if err != nil {
		return err
	}
	var bookingIDs []uuid.UUID
	for _, seg := range segments {
		if seg.BookingID != nil {
			bookingIDs = append(bookingIDs, *seg.BookingID)
		}
	}
	if len(bookingIDs) > 0 {
		bookings, err := s.bookings.GetBookings(ctx, bookingIDs)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if b.Status.IsActive() {
				return fmt.Errorf("%w: booking %s is still %s", apperrors.ErrInvalidState, b.Reference, b.Status)
			}
		}
	}

	if err := s.journeys.Delete(ctx, journey.ID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"journey_id": journey.ID,
		"user_id":    userID,
	}).Info("Journey deleted")
	return nil
}

// CompleteJourney marks a journey COMPLETED
func (s *JourneyService) CompleteJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.complete(ctx, journey); err != nil {
		return nil, err
	}
	return s.withSegments(ctx, journey)
}

func (s *JourneyService) complete(ctx context.Context, journey *models.Journey) error {
	if journey.Status == models.JourneyStatusCompleted {
		return nil
	}
	if !journey.Status.CanTransitionTo(models.JourneyStatusCompleted) {
		return fmt.Errorf("%w: journey is %s", apperrors.ErrInvalidState, journey.Status)
	}
	if err := s.journeys.UpdateStatus(ctx, journey.ID, models.JourneyStatusCompleted); err != nil {
		return err
	}
	journey.Status = models.JourneyStatusCompleted
	return nil
}

// ============================================================================
// SEGMENTS
// ============================================================================

// AddSegment inserts a segment into the itinerary
func (s *JourneyService) AddSegment(ctx context.Context, journeyID, userID uuid.UUID, req *models.AddSegmentRequest) (*models.Journey, error) {
	journey, err := s.mutableJourney(ctx, journeyID, userID)
	if err != nil {
		return nil, err
	}
	if !req.SegmentType.IsValid() {
		return nil, fmt.Errorf("%w: unknown segment type %q", apperrors.ErrInvalidInput, req.SegmentType)
	}

	segment := &models.JourneySegment{
		ID:              uuid.New(),
		JourneyID:       journey.ID,
		SegmentType:     req.SegmentType,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	}
	if segment.DepartureLocationID, err = parseOptionalID(req.DepartureLocationID, "departure_location_id"); err != nil {
		return nil, err
	}
	if segment.ArrivalLocationID, err = parseOptionalID(req.ArrivalLocationID, "arrival_location_id"); err != nil {
		return nil, err
	}
	serviceID, err := parseOptionalID(req.ServiceID, "service_id")
	if err != nil {
		return nil, err
	}

	if serviceID != nil {
		if err := s.attachService(ctx, journey, segment, *serviceID); err != nil {
			return nil, err
		}
	} else if err := applyManualPrice(segment, req.Price, req.Currency, true); err != nil {
		return nil, err
	}

	total, err := s.segments.InsertAt(ctx, segment, req.AfterOrder)
	if err != nil {
		return nil, err
	}
	journey.TotalPrice = total

	if journey.Status == models.JourneyStatusPlanning {
		if err := s.journeys.UpdateStatus(ctx, journey.ID, models.JourneyStatusReady); err != nil {
			return nil, err
		}
		journey.Status = models.JourneyStatusReady
	}

	s.logger.WithFields(logrus.Fields{
		"journey_id":   journey.ID,
		"segment_id":   segment.ID,
		"segment_type": segment.SegmentType,
		"order":        segment.SegmentOrder,
	}).Info("Segment added")

	return s.withSegments(ctx, journey)
}

// UpdateSegment patches an unbooked segment
func (s *JourneyService) UpdateSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID, req *models.UpdateSegmentRequest) (*models.Journey, error) {
	journey, err := s.mutableJourney(ctx, journeyID, userID)
	if err != nil {
		return nil, err
	}
	segment, err := s.journeySegment(ctx, journey, segmentID)
	if err != nil {
		return nil, err
	}
	if segment.IsBooked || segment.IsCancelled {
		return nil, fmt.Errorf("%w: booked or cancelled segments cannot be edited", apperrors.ErrInvalidState)
	}

	if req.DepartureLocationID != nil {
		if segment.DepartureLocationID, err = parseOptionalID(req.DepartureLocationID, "departure_location_id"); err != nil {
			return nil, err
		}
	}
	if req.ArrivalLocationID != nil {
		if segment.ArrivalLocationID, err = parseOptionalID(req.ArrivalLocationID, "arrival_location_id"); err != nil {
			return nil, err
		}
	}
	if req.DepartureTime != nil {
		segment.DepartureTime = req.DepartureTime
	}
	if req.ArrivalTime != nil {
		segment.ArrivalTime = req.ArrivalTime
	}
	if req.DurationMinutes != nil {
		segment.DurationMinutes = req.DurationMinutes
	}
	if req.Notes != nil {
		segment.Notes = req.Notes
	}

	if req.ServiceID != nil {
		serviceID, err := parseOptionalID(req.ServiceID, "service_id")
		if err != nil {
			return nil, err
		}
		if serviceID == nil {
			return nil, fmt.Errorf("%w: service_id cannot be empty", apperrors.ErrInvalidInput)
		}
		if err := s.attachService(ctx, journey, segment, *serviceID); err != nil {
			return nil, err
		}
	} else if segment.ServiceID == nil {
		if err := applyManualPrice(segment, req.Price, req.Currency, false); err != nil {
			return nil, err
		}
	} else if req.Price != nil || req.Currency != nil {
		return nil, fmt.Errorf("%w: price of a catalog segment comes from its service", apperrors.ErrInvalidInput)
	}

	total, err := s.segments.Update(ctx, segment)
	if err != nil {
		return nil, err
	}
	journey.TotalPrice = total

	return s.withSegments(ctx, journey)
}

// DeleteSegment removes an unbooked or cancelled segment and closes the gap
func (s *JourneyService) DeleteSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID) (*models.Journey, error) {
	journey, err := s.mutableJourney(ctx, journeyID, userID)
	if err != nil {
		return nil, err
	}
	segment, err := s.journeySegment(ctx, journey, segmentID)
	if err != nil {
		return nil, err
	}
	if segment.IsBooked && !segment.IsCancelled {
		return nil, fmt.Errorf("%w: cancel the segment's booking before removing it", apperrors.ErrInvalidState)
	}

	total, err := s.segments.Delete(ctx, journey.ID, segment.ID)
	if err != nil {
		return nil, err
	}
	journey.TotalPrice = total

	updated, err := s.withSegments(ctx, journey)
	if err != nil {
		return nil, err
	}
	if len(updated.Segments) == 0 && updated.Status == models.JourneyStatusReady {
		if err := s.journeys.UpdateStatus(ctx, journey.ID, models.JourneyStatusPlanning); err != nil {
			return nil, err
		}
		updated.Status = models.JourneyStatusPlanning
	}

	s.logger.WithFields(logrus.Fields{
		"journey_id": journey.ID,
		"segment_id": segment.ID,
	}).Info("Segment removed")

	return updated, nil
}

// CancelSegment cancels the booking behind one segment on behalf of the guest.
// The cancellation cascade updates segments and journey status.
func (s *JourneyService) CancelSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID, reason string) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, journeyID, userID)
	if err != nil {
		return nil, err
	}
	segment, err := s.journeySegment(ctx, journey, segmentID)
	if err != nil {
		return nil, err
	}
	if segment.BookingID == nil || segment.IsCancelled {
		return nil, fmt.Errorf("%w: segment has no active booking", apperrors.ErrInvalidState)
	}

	if err := s.bookings.CancelBooking(ctx, *segment.BookingID, models.CancelledByGuest, reason); err != nil {
		return nil, err
	}

	return s.reload(ctx, journey.ID)
}

// ============================================================================
// BOOKING
// ============================================================================

// BookJourney books every open segment of the journey
func (s *JourneyService) BookJourney(ctx context.Context, id, userID uuid.UUID, opts *models.BookJourneyRequest) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Book(ctx, journey, opts)
}

// GetJourneyBookings lists the supplier bookings created for a journey
func (s *JourneyService) GetJourneyBookings(ctx context.Context, id, userID uuid.UUID) ([]models.Booking, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListJourneyBookings(ctx, journey.ID)
}

// HandleBookingCancelled runs the cancellation cascade for a booking event
func (s *JourneyService) HandleBookingCancelled(ctx context.Context, event models.BookingCancelledEvent) error {
	return s.cascade.HandleBookingCancelled(ctx, event)
}

// ============================================================================
// REPLACEMENT
// ============================================================================

// GetCancelledSegments lists the journey's cancelled segments
func (s *JourneyService) GetCancelledSegments(ctx context.Context, id, userID uuid.UUID) ([]models.JourneySegment, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	segments, err := s.segments.ListByJourney(ctx, journey.ID)
	if err != nil {
		return nil, err
	}
	cancelled := make([]models.JourneySegment, 0)
	for _, seg := range segments {
		if seg.IsCancelled {
			cancelled = append(cancelled, seg)
		}
	}
	return cancelled, nil
}

// FindReplacementServices lists substitute services for a cancelled segment
func (s *JourneyService) FindReplacementServices(ctx context.Context, journeyID, segmentID, userID uuid.UUID) ([]models.CatalogService, error) {
	journey, err := s.ownedJourney(ctx, journeyID, userID)
	if err != nil {
		return nil, err
	}
	segment, err := s.journeySegment(ctx, journey, segmentID)
	if err != nil {
		return nil, err
	}
	return s.replacement.FindReplacements(ctx, journey, segment)
}

// ReplaceSegment attaches a new service to a cancelled segment
func (s *JourneyService) ReplaceSegment(ctx context.Context, journeyID, segmentID, userID, newServiceID uuid.UUID) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, journeyID, userID)
	if err != nil {
		return nil, err
	}
	segment, err := s.journeySegment(ctx, journey, segmentID)
	if err != nil {
		return nil, err
	}
	return s.replacement.Replace(ctx, journey, segment, newServiceID)
}

// ============================================================================
// RECONCILIATION
// ============================================================================

// RecalculateJourneyStatus reconciles one journey's status from its bookings
func (s *JourneyService) RecalculateJourneyStatus(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	updated, _, err := s.reconciler.Recalculate(ctx, journey)
	if err != nil {
		return nil, err
	}
	if updated.Segments == nil {
		return s.withSegments(ctx, updated)
	}
	return updated, nil
}

// RecalculateAllJourneyStatuses reconciles every journey of a user
func (s *JourneyService) RecalculateAllJourneyStatuses(ctx context.Context, userID uuid.UUID) (*models.RecalculateAllResponse, error) {
	return s.reconciler.RecalculateAll(ctx, userID)
}

// SweepResult summarises one scheduled sweep
type SweepResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ReconcileAll reconciles the journeys of every owner with an open journey.
// Each journey is handled independently; failures are logged and counted.
func (s *JourneyService) ReconcileAll(ctx context.Context) (*SweepResult, error) {
	owners, err := s.journeys.ListOwnerIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, ownerID := range owners {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		resp, err := s.reconciler.RecalculateAll(ctx, ownerID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", ownerID).Error("Failed to reconcile user journeys")
			result.Failed++
			continue
		}
		result.Checked += len(resp.Journeys)
		result.Updated += resp.UpdatedCount
	}
	return result, nil
}

// ArchiveEnded completes journeys whose end date is before now. Journeys still
// in BOOKING are left for reconciliation.
func (s *JourneyService) ArchiveEnded(ctx context.Context, now time.Time) (*SweepResult, error) {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	journeys, err := s.journeys.ListEndedBefore(ctx, cutoff, []models.JourneyStatus{
		models.JourneyStatusPlanning,
		models.JourneyStatusReady,
		models.JourneyStatusConfirmed,
		models.JourneyStatusPendingChanges,
	})
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Checked: len(journeys)}
	for i := range journeys {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.complete(ctx, &journeys[i]); err != nil {
			s.logger.WithError(err).WithField("journey_id", journeys[i].ID).Error("Failed to archive journey")
			result.Failed++
			continue
		}
		result.Updated++
	}
	return result, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *JourneyService) ownedJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	journey, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if journey == nil {
		return nil, fmt.Errorf("%w: journey %s", apperrors.ErrNotFound, id)
	}
	if !journey.IsOwnedBy(userID) {
		return nil, fmt.Errorf("%w: journey %s belongs to another user", apperrors.ErrForbidden, id)
	}
	return journey, nil
}

func (s *JourneyService) mutableJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	journey, err := s.ownedJourney(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !journey.Status.CanMutateSegments() || journey.Status == models.JourneyStatusCancelled {
		return nil, fmt.Errorf("%w: segments of a %s journey cannot be changed", apperrors.ErrInvalidState, journey.Status)
	}
	return journey, nil
}

func (s *JourneyService) journeySegment(ctx context.Context, journey *models.Journey, segmentID uuid.UUID) (*models.JourneySegment, error) {
	segment, err := s.segments.GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if segment == nil || segment.JourneyID != journey.ID {
		return nil, fmt.Errorf("%w: segment %s", apperrors.ErrNotFound, segmentID)
	}
	return segment, nil
}

// attachService validates a catalog service against the segment and journey and
// copies its price, currency and places onto the segment
func (s *JourneyService) attachService(ctx context.Context, journey *models.Journey, segment *models.JourneySegment, serviceID uuid.UUID) error {
	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if service == nil {
		return fmt.Errorf("%w: service %s", apperrors.ErrNotFound, serviceID)
	}
	if !service.IsActive {
		return fmt.Errorf("%w: service %s is not available", apperrors.ErrInvalidInput, serviceID)
	}
	if service.Type != segment.SegmentType {
		return fmt.Errorf("%w: service type %s does not match segment type %s", apperrors.ErrInvalidInput, service.Type, segment.SegmentType)
	}
	if !service.AcceptsGuests(journey.Travelers) {
		return fmt.Errorf("%w: service %s does not accept %d travelers", apperrors.ErrInvalidInput, serviceID, journey.Travelers)
	}

	segment.ServiceID = &service.ID
	segment.Price = service.PriceFor(journey.Travelers)
	segment.Currency = service.Currency
	if segment.DepartureLocationID == nil {
		segment.DepartureLocationID = service.DepartureLocationID
	}
	if segment.ArrivalLocationID == nil {
		if service.ArrivalLocationID != nil {
			segment.ArrivalLocationID = service.ArrivalLocationID
		} else {
			segment.ArrivalLocationID = service.LocationID
		}
	}
	if segment.DurationMinutes == nil {
		segment.DurationMinutes = service.DurationMinutes
	}
	return nil
}

// applyManualPrice sets price and currency on a segment without a catalog
// service. When required, both must be present.
func applyManualPrice(segment *models.JourneySegment, price, currency *string, required bool) error {
	if required && (price == nil || currency == nil) {
		return fmt.Errorf("%w: price and currency are required for a segment without a service", apperrors.ErrInvalidInput)
	}
	if price != nil {
		value, err := decimal.NewFromString(*price)
		if err != nil || value.IsNegative() {
			return fmt.Errorf("%w: price must be a non-negative number", apperrors.ErrInvalidInput)
		}
		segment.Price = value.Round(2)
	}
	if currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*currency))
		if len(code) != 3 {
			return fmt.Errorf("%w: currency must be a 3-letter ISO code", apperrors.ErrInvalidInput)
		}
		segment.Currency = code
	}
	return nil
}

func parseOptionalID(value *string, field string) (*uuid.UUID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", apperrors.ErrInvalidInput, field)
	}
	return &id, nil
}

func (s *JourneyService) withSegments(ctx context.Context, journey *models.Journey) (*models.Journey, error) {
	segments, err := s.segments.ListByJourney(ctx, journey.ID)
	if err != nil {
		return nil, err
	}
	journey.Segments = segments
	return journey, nil
}

func (s *JourneyService) reload(ctx context.Context, id uuid.UUID) (*models.Journey, error) {
	journey, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if journey == nil {
		return nil, fmt.Errorf("%w: journey %s", apperrors.ErrNotFound, id)
	}
	return s.withSegments(ctx, journey)
}

// IsPartialBooking reports whether err carries a partially booked journey
func IsPartialBooking(err error) (*models.PartialBookingError, bool) {
	var partial *models.PartialBookingError
	if errors.As(err, &partial) {
		return partial, true
	}
	return nil, false
}
