package services

import (
	"context"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CatalogService answers catalog and location questions for the journey core
type CatalogService struct {
	store  CatalogStore
	logger *logrus.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(store CatalogStore, logger *logrus.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

// GetService returns a catalog service or nil if it does not exist
func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error) {
	return s.store.GetService(ctx, id)
}

// GetLocation returns a location or nil if it does not exist
func (s *CatalogService) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	return s.store.GetLocation(ctx, id)
}

// FindReplacements searches active services of the segment's type at the same
// place. Stays, tours, activities and events match on location; transport legs
// match on their route. When nothing matches exactly the search widens to
// sibling locations under the same parent.
func (s *CatalogService) FindReplacements(ctx context.Context, segment *models.JourneySegment, limit int) ([]models.CatalogService, error) {
	search := models.ServiceSearch{
		Type:             segment.SegmentType,
		ExcludeServiceID: segment.ServiceID,
		Limit:            limit,
	}

	var current *models.CatalogService
	if segment.ServiceID != nil {
		svc, err := s.store.GetService(ctx, *segment.ServiceID)
		if err != nil {
			return nil, err
		}
		current = svc
	}

	routeBased := isRouteSegment(segment.SegmentType)
	departure, arrival, location := segmentPlaces(segment, current)

	exact := search
	if routeBased {
		exact.DepartureLocationIDs = idList(departure)
		exact.ArrivalLocationIDs = idList(arrival)
	} else {
		exact.LocationIDs = idList(location)
	}

	services, err := s.store.SearchServices(ctx, exact)
	if err != nil {
		return nil, err
	}
	if len(services) > 0 {
		return services, nil
	}

	widened := search
	if routeBased {
		if widened.DepartureLocationIDs, err = s.siblings(ctx, departure); err != nil {
			return nil, err
		}
		if widened.ArrivalLocationIDs, err = s.siblings(ctx, arrival); err != nil {
			return nil, err
		}
	} else {
		if widened.LocationIDs, err = s.siblings(ctx, location); err != nil {
			return nil, err
		}
	}

	if len(widened.LocationIDs)+len(widened.DepartureLocationIDs)+len(widened.ArrivalLocationIDs) == 0 {
		return services, nil
	}

	s.logger.WithFields(logrus.Fields{
		"segment_id":   segment.ID,
		"segment_type": segment.SegmentType,
	}).Debug("No exact replacement, widening search to sibling locations")

	return s.store.SearchServices(ctx, widened)
}

// siblings returns the location and every location sharing its parent
func (s *CatalogService) siblings(ctx context.Context, id *uuid.UUID) ([]uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	location, err := s.store.GetLocation(ctx, *id)
	if err != nil {
		return nil, err
	}
	if location == nil || location.ParentID == nil {
		return []uuid.UUID{*id}, nil
	}

	children, err := s.store.ListChildLocationIDs(ctx, *location.ParentID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child == *id {
			return children, nil
		}
	}
	return append(children, *id), nil
}

func isRouteSegment(t models.SegmentType) bool {
	switch t {
	case models.SegmentTypeTransport, models.SegmentTypeFerry, models.SegmentTypeAirportTransfer:
		return true
	}
	return false
}

// segmentPlaces resolves departure, arrival and location from the segment,
// falling back to the currently attached service
func segmentPlaces(segment *models.JourneySegment, current *models.CatalogService) (departure, arrival, location *uuid.UUID) {
	departure = segment.DepartureLocationID
	arrival = segment.ArrivalLocationID
	if current != nil {
		if departure == nil {
			departure = current.DepartureLocationID
		}
		if arrival == nil {
			arrival = current.ArrivalLocationID
		}
		location = current.LocationID
	}
	if location == nil {
		location = arrival
	}
	return departure, arrival, location
}

func idList(id *uuid.UUID) []uuid.UUID {
	if id == nil {
		return nil
	}
	return []uuid.UUID{*id}
}
