package services

import (
	"context"
	"fmt"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StatusReconciler recomputes a journey's status from the bookings linked to
// its segments. It writes nothing when the stored state is already correct.
type StatusReconciler struct {
	journeys JourneyStore
	segments SegmentStore
	bookings BookingGateway
	logger   *logrus.Logger
}

// NewStatusReconciler creates a new StatusReconciler
func NewStatusReconciler(journeys JourneyStore, segments SegmentStore, bookings BookingGateway, logger *logrus.Logger) *StatusReconciler {
	return &StatusReconciler{journeys: journeys, segments: segments, bookings: bookings, logger: logger}
}

// linkedBookings is a journey's segments joined with their bookings
type linkedBookings struct {
	segments []models.JourneySegment
	bookings map[uuid.UUID]models.Booking
}

func (s *StatusReconciler) load(ctx context.Context, journeyID uuid.UUID) (*linkedBookings, error) {
	segments, err := s.segments.ListByJourney(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(segments))
	for _, seg := range segments {
		if seg.BookingID != nil && !seen[*seg.BookingID] {
			seen[*seg.BookingID] = true
			ids = append(ids, *seg.BookingID)
		}
	}

	byID := make(map[uuid.UUID]models.Booking, len(ids))
	if len(ids) > 0 {
		bookings, err := s.bookings.GetBookings(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			byID[b.ID] = b
		}
	}
	return &linkedBookings{segments: segments, bookings: byID}, nil
}

func (l *linkedBookings) counts() (total, cancelled, active int) {
	for _, b := range l.bookings {
		total++
		switch {
		case b.Status == models.BookingStatusCancelled:
			cancelled++
		case b.Status.IsActive():
			active++
		}
	}
	return total, cancelled, active
}

// supplierCancelledSegment is true when a cancelled segment's booking was cancelled by its supplier
func (l *linkedBookings) supplierCancelledSegment() bool {
	for _, seg := range l.segments {
		if !seg.IsCancelled || seg.BookingID == nil {
			continue
		}
		if b, ok := l.bookings[*seg.BookingID]; ok && b.WasCancelledBySupplier() {
			return true
		}
	}
	return false
}

func (l *linkedBookings) activeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, seg := range l.segments {
		if !seg.IsCancelled {
			total = total.Add(seg.Price)
		}
	}
	return total
}

// derive applies the reconciliation rules in order and returns the status the
// journey should have
func derive(current models.JourneyStatus, l *linkedBookings) models.JourneyStatus {
	total, cancelled, active := l.counts()
	switch {
	case total == 0:
		return current
	case cancelled == total:
		return models.JourneyStatusCancelled
	case l.supplierCancelledSegment() && active > 0:
		return models.JourneyStatusPendingChanges
	case active == 0 && current == models.JourneyStatusConfirmed:
		return models.JourneyStatusCancelled
	}
	return current
}

// Recalculate reconciles one journey. It returns the journey as stored after
// the call and whether anything was written.
func (s *StatusReconciler) Recalculate(ctx context.Context, journey *models.Journey) (*models.Journey, bool, error) {
	if journey.Status.IsTerminal() {
		return journey, false, nil
	}

	linked, err := s.load(ctx, journey.ID)
	if err != nil {
		return nil, false, err
	}

	changed := false
	if !denseOrder(linked.segments) {
		if err := s.segments.Reorder(ctx, journey.ID); err != nil {
			return nil, false, err
		}
		for i := range linked.segments {
			linked.segments[i].SegmentOrder = i + 1
		}
		s.logger.WithField("journey_id", journey.ID).Warn("Segment order renumbered")
		changed = true
	}

	if expected := linked.activeTotal(); !expected.Equal(journey.TotalPrice) {
		total, err := s.journeys.RecalculateTotalPrice(ctx, journey.ID)
		if err != nil {
			return nil, false, err
		}
		journey.TotalPrice = total
		changed = true
	}

	target := derive(journey.Status, linked)
	if target != journey.Status {
		if err := s.journeys.UpdateStatus(ctx, journey.ID, target); err != nil {
			return nil, false, fmt.Errorf("failed to apply reconciled status: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"journey_id": journey.ID,
			"from":       journey.Status,
			"to":         target,
		}).Info("Journey status reconciled")
		journey.Status = target
		changed = true
	}

	journey.Segments = linked.segments
	return journey, changed, nil
}

// denseOrder reports whether ordered segments are numbered exactly 1..n
func denseOrder(segments []models.JourneySegment) bool {
	for i, seg := range segments {
		if seg.SegmentOrder != i+1 {
			return false
		}
	}
	return true
}

// RecalculateAll reconciles every journey of a user. One failing journey is
// logged and skipped.
func (s *StatusReconciler) RecalculateAll(ctx context.Context, userID uuid.UUID) (*models.RecalculateAllResponse, error) {
	journeys, err := s.journeys.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &models.RecalculateAllResponse{Journeys: make([]models.Journey, 0, len(journeys))}
	for i := range journeys {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		journey, changed, err := s.Recalculate(ctx, &journeys[i])
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"journey_id": journeys[i].ID,
				"user_id":    userID,
			}).Error("Failed to reconcile journey")
			resp.Journeys = append(resp.Journeys, journeys[i])
			continue
		}
		if changed {
			resp.UpdatedCount++
		}
		resp.Journeys = append(resp.Journeys, *journey)
	}
	return resp, nil
}
