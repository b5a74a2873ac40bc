package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/croffers/journey-backend/internal/apperrors"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BookingOrchestrator turns a journey's open segments into supplier bookings
type BookingOrchestrator struct {
	journeys    JourneyStore
	segments    SegmentStore
	bookings    BookingGateway
	catalog     CatalogLookup
	notifier    Notifier
	concurrency int
	logger      *logrus.Logger
}

// NewBookingOrchestrator creates a new BookingOrchestrator
func NewBookingOrchestrator(
	journeys JourneyStore,
	segments SegmentStore,
	bookings BookingGateway,
	catalog CatalogLookup,
	notifier Notifier,
	concurrency int,
	logger *logrus.Logger,
) *BookingOrchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BookingOrchestrator{
		journeys:    journeys,
		segments:    segments,
		bookings:    bookings,
		catalog:     catalog,
		notifier:    notifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// groupResult is the outcome of booking one group
type groupResult struct {
	group      models.BookingGroup
	supplierID uuid.UUID
	ref        *models.BookingRef
	err        error
}

// Book creates one supplier booking per booking group. Groups are booked
// concurrently and independently: a failed group never undoes the others.
// When every group succeeds the journey becomes CONFIRMED; otherwise it stays
// in BOOKING and a *models.PartialBookingError is returned. Only one caller
// can move a journey into BOOKING; the others get ErrInvalidState.
func (o *BookingOrchestrator) Book(ctx context.Context, journey *models.Journey, opts *models.BookJourneyRequest) (*models.Journey, error) {
	if !journey.Status.CanBook() {
		return nil, fmt.Errorf("%w: journey in status %s cannot be booked", apperrors.ErrInvalidState, journey.Status)
	}

	log := o.logger.WithFields(logrus.Fields{
		"journey_id": journey.ID,
		"user_id":    journey.UserID,
	})

	previous := journey.Status
	claimed, err := o.journeys.TransitionStatus(ctx, journey.ID, models.BookableStatuses, models.JourneyStatusBooking)
	if err != nil {
		return nil, err
	}
	if !claimed {
		log.Warn("Journey left a bookable status before booking started")
		return nil, fmt.Errorf("%w: journey is already being booked", apperrors.ErrInvalidState)
	}
	journey.Status = models.JourneyStatusBooking

	segments, err := o.segments.ListByJourney(ctx, journey.ID)
	if err != nil {
		o.release(ctx, journey, previous)
		return nil, err
	}

	groups := GroupSegments(segments)
	if len(groups) == 0 {
		o.release(ctx, journey, previous)
		return nil, fmt.Errorf("%w: journey has no segments left to book", apperrors.ErrInvalidState)
	}

	packageID := uuid.New()
	notes := opts.Notes()
	results := make([]groupResult, len(groups))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range groups {
		i := i
		g.Go(func() error {
			results[i] = o.bookGroup(ctx, journey, groups[i], packageID, notes)
			return nil
		})
	}
	_ = g.Wait()

	var failures []models.BookingFailure
	created := 0
	notify := make([]groupResult, 0, len(results))
	for _, r := range results {
		if r.ref != nil {
			notify = append(notify, r)
		}
		if r.err != nil {
			log.WithError(r.err).WithFields(logrus.Fields{
				"supplier_id": r.supplierID,
				"segments":    len(r.group.Segments),
			}).Error("Booking group failed")
			failures = append(failures, models.BookingFailure{
				SegmentIDs: r.group.SegmentIDs(),
				SupplierID: r.supplierID,
				Error:      r.err.Error(),
			})
			continue
		}
		created++
	}

	if len(failures) == 0 {
		if _, err := o.journeys.RecalculateTotalPrice(ctx, journey.ID); err != nil {
			return nil, err
		}
		if err := o.segments.MarkConfirmed(ctx, journey.ID); err != nil {
			return nil, err
		}
		if err := o.journeys.UpdateStatus(ctx, journey.ID, models.JourneyStatusConfirmed); err != nil {
			return nil, err
		}
	}

	o.notifySuppliers(ctx, journey, notify)

	updated, err := o.reload(ctx, journey.ID)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"package_booking_id": packageID,
		"groups":             len(groups),
		"created":            created,
		"failed":             len(failures),
		"status":             updated.Status,
	}).Info("Journey booking finished")

	if len(failures) > 0 {
		return updated, &models.PartialBookingError{Journey: updated, Failures: failures, Created: created}
	}
	return updated, nil
}

// release hands a claimed journey back to the status it was booked from
func (o *BookingOrchestrator) release(ctx context.Context, journey *models.Journey, previous models.JourneyStatus) {
	if _, err := o.journeys.TransitionStatus(ctx, journey.ID, []models.JourneyStatus{models.JourneyStatusBooking}, previous); err != nil {
		o.logger.WithError(err).WithField("journey_id", journey.ID).Error("Failed to release journey from BOOKING")
		return
	}
	journey.Status = previous
}

// bookGroup creates the booking for one group and links it to the group's segments
func (o *BookingOrchestrator) bookGroup(ctx context.Context, journey *models.Journey, group models.BookingGroup, packageID uuid.UUID, notes *string) groupResult {
	result := groupResult{group: group}

	service, err := o.catalog.GetService(ctx, *group.ServiceID)
	if err != nil {
		result.err = err
		return result
	}
	if service == nil {
		result.err = fmt.Errorf("%w: service %s", apperrors.ErrNotFound, *group.ServiceID)
		return result
	}
	result.supplierID = service.SupplierID

	items := make([]models.BookingItem, len(group.Segments))
	for i, seg := range group.Segments {
		items[i] = models.BookingItem{SegmentID: seg.ID, SegmentType: seg.SegmentType, Price: seg.Price}
	}

	ref, err := o.bookings.CreateBooking(ctx, &models.CreateBookingRequest{
		SupplierID:       service.SupplierID,
		UserID:           journey.UserID,
		JourneyID:        journey.ID,
		ServiceID:        group.ServiceID,
		PackageBookingID: packageID,
		Items:            items,
		ServiceDate:      group.ServiceDate,
		CheckIn:          group.CheckIn,
		CheckOut:         group.CheckOut,
		TravelerCount:    journey.Travelers,
		UnitPrice:        group.Amount.DivRound(decimal.NewFromInt(int64(journey.Travelers)), 2),
		TotalAmount:      group.Amount,
		Currency:         group.Currency,
		Notes:            notes,
	})
	if err != nil {
		result.err = err
		return result
	}
	result.ref = ref

	if err := o.segments.LinkBooking(ctx, ref.ID, group.SegmentIDs()); err != nil {
		result.err = fmt.Errorf("booking %s created but not linked: %w", ref.Reference, err)
		return result
	}
	return result
}

// notifySuppliers sends one notification per created booking, linked or not.
// Failures are logged and dropped.
func (o *BookingOrchestrator) notifySuppliers(ctx context.Context, journey *models.Journey, created []groupResult) {
	var wg sync.WaitGroup
	for _, r := range created {
		wg.Add(1)
		go func(r groupResult) {
			defer wg.Done()
			err := o.notifier.NotifySupplierNewBooking(ctx, models.SupplierBookingNotification{
				SupplierID: r.supplierID,
				BookingID:  r.ref.ID,
				JourneyID:  journey.ID,
				Reference:  r.ref.Reference,
				Amount:     r.group.Amount,
				Currency:   r.group.Currency,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				o.logger.WithError(err).WithFields(logrus.Fields{
					"booking_id":  r.ref.ID,
					"supplier_id": r.supplierID,
				}).Warn("Failed to notify supplier of new booking")
			}
		}(r)
	}
	wg.Wait()
}

func (o *BookingOrchestrator) reload(ctx context.Context, journeyID uuid.UUID) (*models.Journey, error) {
	journey, err := o.journeys.GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	if journey == nil {
		return nil, fmt.Errorf("%w: journey %s", apperrors.ErrNotFound, journeyID)
	}
	segments, err := o.segments.ListByJourney(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	journey.Segments = segments
	return journey, nil
}
