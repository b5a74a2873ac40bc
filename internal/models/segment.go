package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SegmentType identifies the kind of itinerary entry
type SegmentType string

const (
	SegmentTypeTransport       SegmentType = "TRANSPORT"
	SegmentTypeFerry           SegmentType = "FERRY"
	SegmentTypeAirportTransfer SegmentType = "AIRPORT_TRANSFER"
	SegmentTypeAccommodation   SegmentType = "ACCOMMODATION"
	SegmentTypeTour            SegmentType = "TOUR"
	SegmentTypeActivity        SegmentType = "ACTIVITY"
	SegmentTypeEvent           SegmentType = "EVENT"
)

// SegmentTypes lists every valid segment type
var SegmentTypes = []SegmentType{
	SegmentTypeTransport,
	SegmentTypeFerry,
	SegmentTypeAirportTransfer,
	SegmentTypeAccommodation,
	SegmentTypeTour,
	SegmentTypeActivity,
	SegmentTypeEvent,
}

// IsValid returns true if the type is known
func (t SegmentType) IsValid() bool {
	for _, st := range SegmentTypes {
		if st == t {
			return true
		}
	}
	return false
}

// IsPricedPerPerson is true for segment types whose catalog price is per traveler
func (t SegmentType) IsPricedPerPerson() bool {
	return t == SegmentTypeTour || t == SegmentTypeActivity
}

// JourneySegment is one leg of a journey itinerary
type JourneySegment struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	JourneyID           uuid.UUID       `json:"journey_id" db:"journey_id"`
	SegmentType         SegmentType     `json:"segment_type" db:"segment_type"`
	SegmentOrder        int             `json:"segment_order" db:"segment_order"`
	ServiceID           *uuid.UUID      `json:"service_id,omitempty" db:"service_id"`
	DepartureLocationID *uuid.UUID      `json:"departure_location_id,omitempty" db:"departure_location_id"`
	ArrivalLocationID   *uuid.UUID      `json:"arrival_location_id,omitempty" db:"arrival_location_id"`
	DepartureTime       *time.Time      `json:"departure_time,omitempty" db:"departure_time"`
	ArrivalTime         *time.Time      `json:"arrival_time,omitempty" db:"arrival_time"`
	DurationMinutes     *int            `json:"duration_minutes,omitempty" db:"duration_minutes"`
	Price               decimal.Decimal `json:"price" db:"price"`
	Currency            string          `json:"currency" db:"currency"`
	Notes               *string         `json:"notes,omitempty" db:"notes"`
	IsBooked            bool            `json:"is_booked" db:"is_booked"`
	IsConfirmed         bool            `json:"is_confirmed" db:"is_confirmed"`
	IsCancelled         bool            `json:"is_cancelled" db:"is_cancelled"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason  *string         `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	BookingID           *uuid.UUID      `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// IsBookable is true for segments the orchestrator still has to turn into a booking
func (s *JourneySegment) IsBookable() bool {
	return !s.IsBooked && !s.IsCancelled && s.ServiceID != nil
}

// ServiceDate is the date a supplier delivers the segment
func (s *JourneySegment) ServiceDate() *time.Time {
	if s.DepartureTime != nil {
		return s.DepartureTime
	}
	return s.ArrivalTime
}

// StayNight is the night an accommodation segment covers
func (s *JourneySegment) StayNight() *time.Time {
	if s.ArrivalTime != nil {
		return s.ArrivalTime
	}
	return s.DepartureTime
}

// AddSegmentRequest represents the request to add a segment to a journey
type AddSegmentRequest struct {
	SegmentType         SegmentType `json:"segment_type" binding:"required" validate:"required,segment_type"`
	ServiceID           *string     `json:"service_id,omitempty" validate:"omitempty,uuid"`
	AfterOrder          *int        `json:"after_order,omitempty" validate:"omitempty,min=0"`
	DepartureLocationID *string     `json:"departure_location_id,omitempty" validate:"omitempty,uuid"`
	ArrivalLocationID   *string     `json:"arrival_location_id,omitempty" validate:"omitempty,uuid"`
	DepartureTime       *time.Time  `json:"departure_time,omitempty"`
	ArrivalTime         *time.Time  `json:"arrival_time,omitempty"`
	DurationMinutes     *int        `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	Price               *string     `json:"price,omitempty" validate:"omitempty,numeric"`
	Currency            *string     `json:"currency,omitempty" validate:"omitempty,currency"`
	Notes               *string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateSegmentRequest is a partial update of an unbooked segment
type UpdateSegmentRequest struct {
	ServiceID           *string    `json:"service_id,omitempty" validate:"omitempty,uuid"`
	DepartureLocationID *string    `json:"departure_location_id,omitempty" validate:"omitempty,uuid"`
	ArrivalLocationID   *string    `json:"arrival_location_id,omitempty" validate:"omitempty,uuid"`
	DepartureTime       *time.Time `json:"departure_time,omitempty"`
	ArrivalTime         *time.Time `json:"arrival_time,omitempty"`
	DurationMinutes     *int       `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	Price               *string    `json:"price,omitempty" validate:"omitempty,numeric"`
	Currency            *string    `json:"currency,omitempty" validate:"omitempty,currency"`
	Notes               *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CancelSegmentRequest is a guest-initiated cancellation of one segment's booking
type CancelSegmentRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ReplaceSegmentRequest attaches a new catalog service to a cancelled segment
type ReplaceSegmentRequest struct {
	ServiceID string `json:"service_id" binding:"required" validate:"required,uuid"`
}

// BookingGroup is the transient output of the booking grouper: segments
// fulfilled by one supplier booking
type BookingGroup struct {
	Segments    []JourneySegment
	ServiceID   *uuid.UUID
	SegmentType SegmentType
	ServiceDate *time.Time
	CheckIn     *time.Time
	CheckOut    *time.Time
	Amount      decimal.Decimal
	Currency    string
}

// SegmentIDs returns the ids of the grouped segments in order
func (g *BookingGroup) SegmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Segments))
	for i, seg := range g.Segments {
		ids[i] = seg.ID
	}
	return ids
}

// IsAccommodation is true for merged stay groups
func (g *BookingGroup) IsAccommodation() bool {
	return g.SegmentType == SegmentTypeAccommodation
}
