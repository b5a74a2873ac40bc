package services

import (
	"context"
	"time"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JourneyStore is the journey persistence used by the journey services
type JourneyStore interface {
	CreateWithinCap(ctx context.Context, journey *models.Journey, statuses []models.JourneyStatus, limit int) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Journey, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Journey, error)
	ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.Journey, error)
	ListOwnerIDs(ctx context.Context) ([]uuid.UUID, error)
	ListEndedBefore(ctx context.Context, cutoff time.Time, statuses []models.JourneyStatus) ([]models.Journey, error)
	Update(ctx context.Context, journey *models.Journey, prices map[uuid.UUID]decimal.Decimal) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.JourneyStatus) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from []models.JourneyStatus, status models.JourneyStatus) (bool, error)
	RecalculateTotalPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SegmentStore is the ordered itinerary storage. Methods returning a decimal
// return the journey total recomputed in the same unit of work.
type SegmentStore interface {
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.JourneySegment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.JourneySegment, error)
	InsertAt(ctx context.Context, segment *models.JourneySegment, afterOrder *int) (decimal.Decimal, error)
	Update(ctx context.Context, segment *models.JourneySegment) (decimal.Decimal, error)
	Delete(ctx context.Context, journeyID, segmentID uuid.UUID) (decimal.Decimal, error)
	Reorder(ctx context.Context, journeyID uuid.UUID) error
	LinkBooking(ctx context.Context, bookingID uuid.UUID, segmentIDs []uuid.UUID) error
	MarkConfirmed(ctx context.Context, journeyID uuid.UUID) error
	MarkCancelledByBooking(ctx context.Context, journeyID, bookingID uuid.UUID, reason string, at time.Time) (int, error)
	ReplaceService(ctx context.Context, segment *models.JourneySegment) (decimal.Decimal, error)
}

// BookingStore is the booking persistence owned by the booking subsystem
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Booking, error)
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.Booking, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, status *models.BookingStatus, limit, offset int) ([]models.Booking, error)
	Cancel(ctx context.Context, booking *models.Booking) error
	Confirm(ctx context.Context, booking *models.Booking) error
}

// CatalogStore reads catalog services, locations and suppliers
type CatalogStore interface {
	GetService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	ListChildLocationIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error)
	SearchServices(ctx context.Context, search models.ServiceSearch) ([]models.CatalogService, error)
	GetSupplierByOwner(ctx context.Context, userID uuid.UUID) (*models.Supplier, error)
}

// SupplierDirectory resolves the supplier operated by a user
type SupplierDirectory interface {
	GetSupplierByOwner(ctx context.Context, userID uuid.UUID) (*models.Supplier, error)
}

// NotificationStore records notifications delivered to suppliers
type NotificationStore interface {
	Create(ctx context.Context, n *models.SupplierNotification) (bool, error)
}

// BookingGateway is the booking-creation collaborator the journey core calls
type BookingGateway interface {
	CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.BookingRef, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, by models.CancellationInitiator, reason string) error
	GetBookings(ctx context.Context, ids []uuid.UUID) ([]models.Booking, error)
	ListJourneyBookings(ctx context.Context, journeyID uuid.UUID) ([]models.Booking, error)
}

// Notifier dispatches supplier notifications
type Notifier interface {
	NotifySupplierNewBooking(ctx context.Context, n models.SupplierBookingNotification) error
}

// CatalogLookup validates segment inputs and finds replacement candidates
type CatalogLookup interface {
	GetService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	FindReplacements(ctx context.Context, segment *models.JourneySegment, limit int) ([]models.CatalogService, error)
}

// BookingCancelledListener reacts to a booking moving to CANCELLED
type BookingCancelledListener func(ctx context.Context, event models.BookingCancelledEvent) error
