package services

import (
	"context"
	"fmt"

	"github.com/croffers/journey-backend/internal/apperrors"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const replacementSearchLimit = 20

// SegmentReplacementEngine finds substitutes for cancelled segments and
// re-attaches a new service to them
type SegmentReplacementEngine struct {
	journeys JourneyStore
	segments SegmentStore
	catalog  CatalogLookup
	logger   *logrus.Logger
}

// NewSegmentReplacementEngine creates a new SegmentReplacementEngine
func NewSegmentReplacementEngine(journeys JourneyStore, segments SegmentStore, catalog CatalogLookup, logger *logrus.Logger) *SegmentReplacementEngine {
	return &SegmentReplacementEngine{journeys: journeys, segments: segments, catalog: catalog, logger: logger}
}

// FindReplacements lists active services of the same type near the cancelled
// segment that accept the journey's traveler count
func (e *SegmentReplacementEngine) FindReplacements(ctx context.Context, journey *models.Journey, segment *models.JourneySegment) ([]models.CatalogService, error) {
	if !segment.IsCancelled {
		return nil, fmt.Errorf("%w: segment %s is not cancelled", apperrors.ErrInvalidState, segment.ID)
	}

	candidates, err := e.catalog.FindReplacements(ctx, segment, replacementSearchLimit)
	if err != nil {
		return nil, err
	}

	services := make([]models.CatalogService, 0, len(candidates))
	for _, svc := range candidates {
		if svc.AcceptsGuests(journey.Travelers) {
			services = append(services, svc)
		}
	}
	return services, nil
}

// Replace attaches newServiceID to a cancelled segment, reprices it and moves
// the journey back to CONFIRMED once no cancelled segment remains
func (e *SegmentReplacementEngine) Replace(ctx context.Context, journey *models.Journey, segment *models.JourneySegment, newServiceID uuid.UUID) (*models.Journey, error) {
	if journey.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: journey is %s", apperrors.ErrInvalidState, journey.Status)
	}
	if !segment.IsCancelled {
		return nil, fmt.Errorf("%w: segment %s is not cancelled", apperrors.ErrInvalidState, segment.ID)
	}

	service, err := e.catalog.GetService(ctx, newServiceID)
	if err != nil {
		return nil, err
	}
	if service == nil {
		return nil, fmt.Errorf("%w: service %s", apperrors.ErrNotFound, newServiceID)
	}
	if !service.IsActive {
		return nil, fmt.Errorf("%w: service %s is not available", apperrors.ErrInvalidInput, newServiceID)
	}
	if service.Type != segment.SegmentType {
		return nil, fmt.Errorf("%w: service type %s does not match segment type %s", apperrors.ErrInvalidInput, service.Type, segment.SegmentType)
	}
	if !service.AcceptsGuests(journey.Travelers) {
		return nil, fmt.Errorf("%w: service %s does not accept %d travelers", apperrors.ErrInvalidInput, newServiceID, journey.Travelers)
	}

	previous := segment.ServiceID
	segment.ServiceID = &service.ID
	segment.Price = service.PriceFor(journey.Travelers)
	segment.Currency = service.Currency
	if service.DurationMinutes != nil {
		segment.DurationMinutes = service.DurationMinutes
	}

	total, err := e.segments.ReplaceService(ctx, segment)
	if err != nil {
		return nil, err
	}
	journey.TotalPrice = total

	segments, err := e.segments.ListByJourney(ctx, journey.ID)
	if err != nil {
		return nil, err
	}
	journey.Segments = segments

	remaining := 0
	for _, seg := range segments {
		if seg.IsCancelled {
			remaining++
		}
	}

	log := e.logger.WithFields(logrus.Fields{
		"journey_id":         journey.ID,
		"segment_id":         segment.ID,
		"previous_service":   previous,
		"new_service":        service.ID,
		"cancelled_segments": remaining,
	})

	if remaining == 0 && journey.Status == models.JourneyStatusPendingChanges {
		if err := e.journeys.UpdateStatus(ctx, journey.ID, models.JourneyStatusConfirmed); err != nil {
			return nil, err
		}
		log = log.WithField("status", models.JourneyStatusConfirmed)
		journey.Status = models.JourneyStatusConfirmed
	}

	log.Info("Segment replaced")
	return journey, nil
}
