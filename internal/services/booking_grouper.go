package services

import (
	"time"

	"github.com/croffers/journey-backend/internal/models"
)

// GroupSegments partitions an ordered segment list into booking groups.
// Only bookable segments take part. Consecutive ACCOMMODATION segments with the
// same service merge into one stay whose checkout is the day after the last
// night; every other segment becomes its own group.
func GroupSegments(segments []models.JourneySegment) []models.BookingGroup {
	groups := make([]models.BookingGroup, 0, len(segments))
	var open *models.BookingGroup

	flush := func() {
		if open != nil {
			groups = append(groups, *open)
			open = nil
		}
	}

	for _, seg := range segments {
		if !seg.IsBookable() {
			continue
		}

		if seg.SegmentType == models.SegmentTypeAccommodation {
			if open != nil && *open.ServiceID == *seg.ServiceID {
				open.Segments = append(open.Segments, seg)
				open.Amount = open.Amount.Add(seg.Price)
				open.CheckOut = nextDay(seg.StayNight())
				continue
			}
			flush()
			open = &models.BookingGroup{
				Segments:    []models.JourneySegment{seg},
				ServiceID:   seg.ServiceID,
				SegmentType: seg.SegmentType,
				ServiceDate: seg.ServiceDate(),
				CheckIn:     seg.ServiceDate(),
				CheckOut:    nextDay(seg.StayNight()),
				Amount:      seg.Price,
				Currency:    seg.Currency,
			}
			continue
		}

		flush()
		groups = append(groups, models.BookingGroup{
			Segments:    []models.JourneySegment{seg},
			ServiceID:   seg.ServiceID,
			SegmentType: seg.SegmentType,
			ServiceDate: seg.ServiceDate(),
			Amount:      seg.Price,
			Currency:    seg.Currency,
		})
	}
	flush()

	return groups
}

func nextDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	next := t.AddDate(0, 0, 1)
	return &next
}
