package services

import (
	"testing"
	"time"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) *time.Time {
	t := time.Date(2026, 7, n, 15, 0, 0, 0, time.UTC)
	return &t
}

func stay(serviceID uuid.UUID, night int, price int64) models.JourneySegment {
	return models.JourneySegment{
		ID:          uuid.New(),
		SegmentType: models.SegmentTypeAccommodation,
		ServiceID:   &serviceID,
		ArrivalTime: day(night),
		Price:       decimal.NewFromInt(price),
		Currency:    "EUR",
	}
}

func activity(segmentType models.SegmentType, serviceID uuid.UUID, on int, price int64) models.JourneySegment {
	return models.JourneySegment{
		ID:            uuid.New(),
		SegmentType:   segmentType,
		ServiceID:     &serviceID,
		DepartureTime: day(on),
		Price:         decimal.NewFromInt(price),
		Currency:      "EUR",
	}
}

func TestGroupSegments_MergesConsecutiveStays(t *testing.T) {
	hotel, tour := uuid.New(), uuid.New()
	segments := []models.JourneySegment{
		stay(hotel, 1, 100),
		stay(hotel, 2, 120),
		activity(models.SegmentTypeTour, tour, 2, 40),
	}

	groups := GroupSegments(segments)

	require.Len(t, groups, 2)
	assert.True(t, groups[0].IsAccommodation())
	assert.Len(t, groups[0].Segments, 2)
	assert.True(t, groups[0].Amount.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, *day(1), *groups[0].CheckIn)
	assert.Equal(t, *day(3), *groups[0].CheckOut)
	assert.Equal(t, []uuid.UUID{segments[0].ID, segments[1].ID}, groups[0].SegmentIDs())

	assert.Equal(t, models.SegmentTypeTour, groups[1].SegmentType)
	assert.Len(t, groups[1].Segments, 1)
	assert.Nil(t, groups[1].CheckOut)
	assert.True(t, groups[1].Amount.Equal(decimal.NewFromInt(40)))
}

func TestGroupSegments_DifferentServiceStartsNewStay(t *testing.T) {
	hotelA, hotelB := uuid.New(), uuid.New()
	groups := GroupSegments([]models.JourneySegment{
		stay(hotelA, 1, 100),
		stay(hotelB, 2, 90),
		stay(hotelB, 3, 90),
	})

	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Segments, 1)
	assert.Len(t, groups[1].Segments, 2)
	assert.Equal(t, *day(4), *groups[1].CheckOut)
}

func TestGroupSegments_InterruptedStayIsNotMerged(t *testing.T) {
	hotel, ferry := uuid.New(), uuid.New()
	groups := GroupSegments([]models.JourneySegment{
		stay(hotel, 1, 100),
		activity(models.SegmentTypeFerry, ferry, 2, 30),
		stay(hotel, 2, 100),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, models.SegmentTypeFerry, groups[1].SegmentType)
	assert.Len(t, groups[2].Segments, 1)
}

func TestGroupSegments_NonAccommodationNeverMerges(t *testing.T) {
	tour := uuid.New()
	groups := GroupSegments([]models.JourneySegment{
		activity(models.SegmentTypeTour, tour, 1, 40),
		activity(models.SegmentTypeTour, tour, 2, 40),
	})

	assert.Len(t, groups, 2)
}

func TestGroupSegments_SkipsBookedCancelledAndServiceless(t *testing.T) {
	hotel := uuid.New()
	booked := stay(hotel, 1, 100)
	booked.IsBooked = true
	cancelled := stay(hotel, 2, 100)
	cancelled.IsCancelled = true
	serviceless := models.JourneySegment{ID: uuid.New(), SegmentType: models.SegmentTypeTransport, Price: decimal.NewFromInt(10)}
	open := stay(hotel, 3, 100)

	groups := GroupSegments([]models.JourneySegment{booked, cancelled, serviceless, open})

	require.Len(t, groups, 1)
	assert.Equal(t, open.ID, groups[0].Segments[0].ID)
}

func TestGroupSegments_TrailingStayIsFlushed(t *testing.T) {
	tour, hotel := uuid.New(), uuid.New()
	groups := GroupSegments([]models.JourneySegment{
		activity(models.SegmentTypeTour, tour, 1, 40),
		stay(hotel, 1, 100),
		stay(hotel, 2, 100),
	})

	require.Len(t, groups, 2)
	assert.True(t, groups[1].IsAccommodation())
	assert.Len(t, groups[1].Segments, 2)
}

func TestGroupSegments_Empty(t *testing.T) {
	assert.Empty(t, GroupSegments(nil))
}
