package handlers

import (
	"context"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/croffers/journey-backend/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockJourneyFacade struct {
	mock.Mock
}

func journeyResult(args mock.Arguments) (*models.Journey, error) {
	j, _ := args.Get(0).(*models.Journey)
	return j, args.Error(1)
}

func (m *mockJourneyFacade) PlanJourney(ctx context.Context, userID uuid.UUID, req *models.PlanJourneyRequest) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, userID, req))
}

func (m *mockJourneyFacade) GetJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, id, userID))
}

func (m *mockJourneyFacade) ListJourneys(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Journey, error) {
	args := m.Called(ctx, userID, page, limit)
	journeys, _ := args.Get(0).([]models.Journey)
	return journeys, args.Error(1)
}

func (m *mockJourneyFacade) UpdateJourney(ctx context.Context, id, userID uuid.UUID, req *models.UpdateJourneyRequest) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, id, userID, req))
}

func (m *mockJourneyFacade) DeleteJourney(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockJourneyFacade) CompleteJourney(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, id, userID))
}

func (m *mockJourneyFacade) AddSegment(ctx context.Context, journeyID, userID uuid.UUID, req *models.AddSegmentRequest) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, journeyID, userID, req))
}

func (m *mockJourneyFacade) UpdateSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID, req *models.UpdateSegmentRequest) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, journeyID, segmentID, userID, req))
}

func (m *mockJourneyFacade) DeleteSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, journeyID, segmentID, userID))
}

func (m *mockJourneyFacade) CancelSegment(ctx context.Context, journeyID, segmentID, userID uuid.UUID, reason string) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, journeyID, segmentID, userID, reason))
}

func (m *mockJourneyFacade) BookJourney(ctx context.Context, id, userID uuid.UUID, opts *models.BookJourneyRequest) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, id, userID, opts))
}

func (m *mockJourneyFacade) GetJourneyBookings(ctx context.Context, id, userID uuid.UUID) ([]models.Booking, error) {
	args := m.Called(ctx, id, userID)
	bookings, _ := args.Get(0).([]models.Booking)
	return bookings, args.Error(1)
}

func (m *mockJourneyFacade) GetCancelledSegments(ctx context.Context, id, userID uuid.UUID) ([]models.JourneySegment, error) {
	args := m.Called(ctx, id, userID)
	segments, _ := args.Get(0).([]models.JourneySegment)
	return segments, args.Error(1)
}

func (m *mockJourneyFacade) FindReplacementServices(ctx context.Context, journeyID, segmentID, userID uuid.UUID) ([]models.CatalogService, error) {
	args := m.Called(ctx, journeyID, segmentID, userID)
	services, _ := args.Get(0).([]models.CatalogService)
	return services, args.Error(1)
}

func (m *mockJourneyFacade) ReplaceSegment(ctx context.Context, journeyID, segmentID, userID, newServiceID uuid.UUID) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, journeyID, segmentID, userID, newServiceID))
}

func (m *mockJourneyFacade) RecalculateJourneyStatus(ctx context.Context, id, userID uuid.UUID) (*models.Journey, error) {
	return journeyResult(m.Called(ctx, id, userID))
}

func (m *mockJourneyFacade) RecalculateAllJourneyStatuses(ctx context.Context, userID uuid.UUID) (*models.RecalculateAllResponse, error) {
	args := m.Called(ctx, userID)
	resp, _ := args.Get(0).(*models.RecalculateAllResponse)
	return resp, args.Error(1)
}

type mockSupplierBookings struct {
	mock.Mock
}

func (m *mockSupplierBookings) ListSupplierBookings(ctx context.Context, ownerID uuid.UUID, status *models.BookingStatus, page, limit int) ([]models.Booking, error) {
	args := m.Called(ctx, ownerID, status, page, limit)
	bookings, _ := args.Get(0).([]models.Booking)
	return bookings, args.Error(1)
}

func (m *mockSupplierBookings) ConfirmSupplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, ownerID, bookingID)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

func (m *mockSupplierBookings) CancelSupplierBooking(ctx context.Context, ownerID, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	args := m.Called(ctx, ownerID, bookingID, reason)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

type stubSweepRunner struct {
	result *services.SweepResult
	err    error
	calls  []string
}

func (s *stubSweepRunner) RunReconcileNow() (*services.SweepResult, error) {
	s.calls = append(s.calls, "reconcile")
	return s.result, s.err
}

func (s *stubSweepRunner) RunArchiveNow() (*services.SweepResult, error) {
	s.calls = append(s.calls, "archive")
	return s.result, s.err
}

func (s *stubSweepRunner) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "job_count": 2}
}
