package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/croffers/journey-backend/internal/apperrors"
	"github.com/croffers/journey-backend/internal/database"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BookingService is the booking subsystem: it creates supplier bookings for the
// orchestrator, lets suppliers confirm or cancel them and emits a cancellation
// event to registered listeners.
type BookingService struct {
	bookings       BookingStore
	suppliers      SupplierDirectory
	commissionRate decimal.Decimal
	logger         *logrus.Logger

	mu        sync.RWMutex
	listeners []BookingCancelledListener
}

// NewBookingService creates a new BookingService
func NewBookingService(bookings BookingStore, suppliers SupplierDirectory, commissionRate decimal.Decimal, logger *logrus.Logger) *BookingService {
	return &BookingService{
		bookings:       bookings,
		suppliers:      suppliers,
		commissionRate: commissionRate,
		logger:         logger,
	}
}

// OnCancelled registers a listener invoked after every booking cancellation
func (s *BookingService) OnCancelled(listener BookingCancelledListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// CreateBooking creates a PENDING booking for one booking group
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.BookingRef, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	segmentIDs := make(models.UUIDArray, len(req.Items))
	for i, item := range req.Items {
		segmentIDs[i] = item.SegmentID
	}

	journeyID := req.JourneyID
	packageID := req.PackageBookingID
	booking := &models.Booking{
		ID:               uuid.New(),
		Reference:        models.GenerateBookingReference(),
		SupplierID:       req.SupplierID,
		UserID:           req.UserID,
		JourneyID:        &journeyID,
		ServiceID:        req.ServiceID,
		PackageBookingID: &packageID,
		SegmentIDs:       segmentIDs,
		Status:           models.BookingStatusPending,
		ServiceDate:      req.ServiceDate,
		CheckIn:          req.CheckIn,
		CheckOut:         req.CheckOut,
		Participants:     req.TravelerCount,
		UnitPrice:        req.UnitPrice,
		TotalAmount:      req.TotalAmount,
		CommissionAmount: req.TotalAmount.Mul(s.commissionRate).Round(2),
		Currency:         req.Currency,
		Notes:            req.Notes,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"reference":   booking.Reference,
		"supplier_id": booking.SupplierID,
		"journey_id":  journeyID,
		"segments":    len(segmentIDs),
		"amount":      booking.TotalAmount.StringFixed(2),
	}).Info("Supplier booking created")

	return &models.BookingRef{ID: booking.ID, Reference: booking.Reference, Status: booking.Status}, nil
}

// CancelBooking cancels an active booking and emits the cancellation event
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, by models.CancellationInitiator, reason string) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return fmt.Errorf("%w: booking %s", apperrors.ErrNotFound, bookingID)
	}
	return s.cancel(ctx, booking, by, reason)
}

func (s *BookingService) cancel(ctx context.Context, booking *models.Booking, by models.CancellationInitiator, reason string) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := booking.Cancel(by, reasonPtr); err != nil {
		return fmt.Errorf("%w: %v (status: %s)", apperrors.ErrInvalidState, err, booking.Status)
	}

	if err := s.bookings.Cancel(ctx, booking); err != nil {
		if errors.Is(err, database.ErrBookingNotActive) {
			return fmt.Errorf("%w: booking %s is no longer active", apperrors.ErrInvalidState, booking.ID)
		}
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"cancelled_by": by,
		"reason":       reason,
	}).Info("Booking cancelled")

	event := models.BookingCancelledEvent{
		BookingID:   booking.ID,
		JourneyID:   booking.JourneyID,
		CancelledBy: by,
		Reason:      reason,
		CancelledAt: *booking.CancelledAt,
	}
	return s.emitCancelled(ctx, event)
}

func (s *BookingService) emitCancelled(ctx context.Context, event models.BookingCancelledEvent) error {
	s.mu.RLock()
	listeners := append([]BookingCancelledListener(nil), s.listeners...)
	s.mu.RUnlock()

	var errs []error
	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil {
			s.logger.WithError(err).WithField("booking_id", event.BookingID).Error("Booking cancellation listener failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetBookings returns the bookings with the given IDs
func (s *BookingService) GetBookings(ctx context.Context, ids []uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByIDs(ctx, ids)
}

// ListJourneyBookings returns every booking created for a journey
func (s *BookingService) ListJourneyBookings(ctx context.Context, journeyID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByJourney(ctx, journeyID)
}

// ============================================================================
// SUPPLIER OPERATIONS
// ============================================================================

// ListSupplierBookings lists the bookings of the supplier owned by the user
func (s *BookingService) ListSupplierBookings(ctx context.Context, ownerID uuid.UUID, status *models.BookingStatus, page, limit int) ([]models.Booking, error) {
	supplier, err := s.supplierFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.bookings.ListBySupplier(ctx, supplier.ID, status, limit, (page-1)*limit)
}

// ConfirmSupplierBooking moves a PENDING booking to CONFIRMED on behalf of its supplier
func (s *BookingService) ConfirmSupplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.supplierBooking(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}

	if err := booking.Confirm(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidState, err)
	}
	if err := s.bookings.Confirm(ctx, booking); err != nil {
		if errors.Is(err, database.ErrBookingNotActive) {
			return nil, fmt.Errorf("%w: booking %s is no longer pending", apperrors.ErrInvalidState, booking.ID)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"supplier_id": booking.SupplierID,
	}).Info("Booking confirmed by supplier")

	return booking, nil
}

// CancelSupplierBooking cancels a booking on behalf of its supplier
func (s *BookingService) CancelSupplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	booking, err := s.supplierBooking(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, booking, models.CancelledBySupplier, reason); err != nil {
		return booking, err
	}
	return booking, nil
}

func (s *BookingService) supplierFor(ctx context.Context, ownerID uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.suppliers.GetSupplierByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: user %s does not operate a supplier", apperrors.ErrForbidden, ownerID)
	}
	return supplier, nil
}

func (s *BookingService) supplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID) (*models.Booking, error) {
	supplier, err := s.supplierFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", apperrors.ErrNotFound, bookingID)
	}
	if booking.SupplierID != supplier.ID {
		return nil, fmt.Errorf("%w: booking %s belongs to another supplier", apperrors.ErrForbidden, bookingID)
	}
	return booking, nil
}
