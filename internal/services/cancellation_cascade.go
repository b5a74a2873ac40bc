package services

import (
	"context"
	"fmt"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// CancellationCascade propagates a booking cancellation into the itinerary:
// the booking's segments are flagged cancelled and the journey status is
// re-derived from the remaining bookings.
type CancellationCascade struct {
	journeys   JourneyStore
	segments   SegmentStore
	reconciler *StatusReconciler
	logger     *logrus.Logger
}

// NewCancellationCascade creates a new CancellationCascade
func NewCancellationCascade(journeys JourneyStore, segments SegmentStore, reconciler *StatusReconciler, logger *logrus.Logger) *CancellationCascade {
	return &CancellationCascade{journeys: journeys, segments: segments, reconciler: reconciler, logger: logger}
}

// HandleBookingCancelled is registered as a booking cancellation listener
func (c *CancellationCascade) HandleBookingCancelled(ctx context.Context, event models.BookingCancelledEvent) error {
	if event.JourneyID == nil {
		return nil
	}
	journeyID := *event.JourneyID

	log := c.logger.WithFields(logrus.Fields{
		"journey_id":   journeyID,
		"booking_id":   event.BookingID,
		"cancelled_by": event.CancelledBy,
	})

	reason := event.Reason
	if reason == "" {
		reason = fmt.Sprintf("booking cancelled by %s", event.CancelledBy)
	}
	changed, err := c.segments.MarkCancelledByBooking(ctx, journeyID, event.BookingID, reason, event.CancelledAt)
	if err != nil {
		return fmt.Errorf("failed to cancel segments of booking %s: %w", event.BookingID, err)
	}

	journey, err := c.journeys.GetByID(ctx, journeyID)
	if err != nil {
		return err
	}
	if journey == nil {
		log.Warn("Cancelled booking references a journey that no longer exists")
		return nil
	}

	linked, err := c.reconciler.load(ctx, journeyID)
	if err != nil {
		return err
	}

	target := cascadeStatus(journey.Status, event.CancelledBy, linked)
	log = log.WithFields(logrus.Fields{
		"segments_cancelled": changed,
		"from":               journey.Status,
		"to":                 target,
	})

	if target == journey.Status {
		log.Info("Booking cancellation cascaded, journey status unchanged")
		return nil
	}
	if !journey.Status.CanTransitionTo(target) {
		log.Warn("Cascade target status not reachable, leaving journey unchanged")
		return nil
	}

	if err := c.journeys.UpdateStatus(ctx, journeyID, target); err != nil {
		return err
	}
	log.Info("Booking cancellation cascaded")
	return nil
}

// cascadeStatus classifies a journey after one of its bookings was cancelled.
// A cancellation from the supplier side leaves the guest something to fix;
// a guest cancelling the last active booking abandons the trip.
func cascadeStatus(current models.JourneyStatus, by models.CancellationInitiator, l *linkedBookings) models.JourneyStatus {
	if current.IsTerminal() {
		return current
	}

	total, cancelled, active := l.counts()
	switch {
	case total > 0 && cancelled == total:
		return models.JourneyStatusCancelled
	case by != models.CancelledByGuest && active > 0:
		return models.JourneyStatusPendingChanges
	case by == models.CancelledByGuest && active == 0:
		return models.JourneyStatusCancelled
	}
	return current
}
