package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for journey dates
const DateLayout = "2006-01-02"

// JourneyStatus represents the lifecycle state of a journey
type JourneyStatus string

const (
	JourneyStatusPlanning       JourneyStatus = "PLANNING"
	JourneyStatusReady          JourneyStatus = "READY"
	JourneyStatusBooking        JourneyStatus = "BOOKING"
	JourneyStatusConfirmed      JourneyStatus = "CONFIRMED"
	JourneyStatusPendingChanges JourneyStatus = "PENDING_CHANGES"
	JourneyStatusCompleted      JourneyStatus = "COMPLETED"
	JourneyStatusCancelled      JourneyStatus = "CANCELLED"
)

// journeyTransitions is the journey state machine. CONFIRMED and PENDING_CHANGES
// only reach CANCELLED through the cancellation cascade and the reconciler.
var journeyTransitions = map[JourneyStatus][]JourneyStatus{
	JourneyStatusPlanning:       {JourneyStatusReady, JourneyStatusBooking, JourneyStatusCancelled, JourneyStatusCompleted},
	JourneyStatusReady:          {JourneyStatusPlanning, JourneyStatusBooking, JourneyStatusCancelled, JourneyStatusCompleted},
	JourneyStatusBooking:        {JourneyStatusConfirmed, JourneyStatusPendingChanges, JourneyStatusCancelled, JourneyStatusCompleted},
	JourneyStatusConfirmed:      {JourneyStatusPendingChanges, JourneyStatusCancelled, JourneyStatusCompleted},
	JourneyStatusPendingChanges: {JourneyStatusConfirmed, JourneyStatusBooking, JourneyStatusCancelled, JourneyStatusCompleted},
	JourneyStatusCompleted:      {},
	JourneyStatusCancelled:      {},
}

// IsValid returns true if the status is a recognized journey status
func (s JourneyStatus) IsValid() bool {
	_, exists := journeyTransitions[s]
	return exists
}

// CanTransitionTo returns true if the state machine allows moving to target
func (s JourneyStatus) CanTransitionTo(target JourneyStatus) bool {
	for _, t := range journeyTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for COMPLETED and CANCELLED
func (s JourneyStatus) IsTerminal() bool {
	allowed, exists := journeyTransitions[s]
	return !exists || len(allowed) == 0
}

// CanBook reports whether bookJourney may run from this status
func (s JourneyStatus) CanBook() bool {
	return s == JourneyStatusPlanning || s == JourneyStatusReady || s == JourneyStatusPendingChanges
}

// CanMutateSegments reports whether segments may be added, updated or deleted
func (s JourneyStatus) CanMutateSegments() bool {
	return s != JourneyStatusConfirmed && s != JourneyStatusCompleted
}

// BookableStatuses are the statuses bookJourney may start from
var BookableStatuses = []JourneyStatus{JourneyStatusPlanning, JourneyStatusReady, JourneyStatusPendingChanges}

// PlanningStatuses are the statuses counted against the planning cap
var PlanningStatuses = []JourneyStatus{JourneyStatusPlanning, JourneyStatusReady}

// Journey is a planned trip owned by exactly one user
type Journey struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	UserID                uuid.UUID       `json:"user_id" db:"user_id"`
	Name                  string          `json:"name" db:"name"`
	OriginLocationID      uuid.UUID       `json:"origin_location_id" db:"origin_location_id"`
	DestinationLocationID uuid.UUID       `json:"destination_location_id" db:"destination_location_id"`
	StartDate             time.Time       `json:"start_date" db:"start_date"`
	EndDate               time.Time       `json:"end_date" db:"end_date"`
	Travelers             int             `json:"travelers" db:"travelers"`
	Currency              string          `json:"currency" db:"currency"`
	TotalPrice            decimal.Decimal `json:"total_price" db:"total_price"`
	Status                JourneyStatus   `json:"status" db:"status"`
	Preferences           JSONMap         `json:"preferences,omitempty" db:"preferences"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`

	Segments []JourneySegment `json:"segments,omitempty" db:"-"`
}

// IsOwnedBy checks journey ownership
func (j *Journey) IsOwnedBy(userID uuid.UUID) bool {
	return j.UserID == userID
}

// PlanJourneyRequest represents the request to plan a new journey
type PlanJourneyRequest struct {
	Name                  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	OriginLocationID      string  `json:"origin_location_id" binding:"required" validate:"required,uuid"`
	DestinationLocationID string  `json:"destination_location_id" binding:"required" validate:"required,uuid"`
	StartDate             string  `json:"start_date" binding:"required" validate:"required,datetime=2006-01-02"`
	EndDate               string  `json:"end_date" binding:"required" validate:"required,datetime=2006-01-02"`
	Travelers             int     `json:"travelers" binding:"required" validate:"required,min=1,max=50"`
	Preferences           JSONMap `json:"preferences,omitempty"`
}

// ParsedDates parses and orders the requested start and end dates
func (r *PlanJourneyRequest) ParsedDates() (time.Time, time.Time, error) {
	return parseDateRange(r.StartDate, r.EndDate)
}

// UpdateJourneyRequest is a partial update of journey header fields
type UpdateJourneyRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	StartDate   *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Travelers   *int    `json:"travelers,omitempty" validate:"omitempty,min=1,max=50"`
	Preferences JSONMap `json:"preferences,omitempty"`
}

// IsEmpty returns true when the patch changes nothing
func (r *UpdateJourneyRequest) IsEmpty() bool {
	return r.Name == nil && r.StartDate == nil && r.EndDate == nil && r.Travelers == nil && r.Preferences == nil
}

// BookJourneyRequest carries guest-supplied booking options
type BookJourneyRequest struct {
	ContactName     *string `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	ContactEmail    *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone    *string `json:"contact_phone,omitempty" validate:"omitempty,max=32"`
	SpecialRequests *string `json:"special_requests,omitempty" validate:"omitempty,max=2000"`
}

// Notes flattens the booking options into the supplier-facing notes field
func (r *BookJourneyRequest) Notes() *string {
	if r == nil {
		return nil
	}
	parts := make([]string, 0, 4)
	if r.ContactName != nil && *r.ContactName != "" {
		parts = append(parts, "contact: "+*r.ContactName)
	}
	if r.ContactEmail != nil && *r.ContactEmail != "" {
		parts = append(parts, "email: "+*r.ContactEmail)
	}
	if r.ContactPhone != nil && *r.ContactPhone != "" {
		parts = append(parts, "phone: "+*r.ContactPhone)
	}
	if r.SpecialRequests != nil && *r.SpecialRequests != "" {
		parts = append(parts, *r.SpecialRequests)
	}
	if len(parts) == 0 {
		return nil
	}
	notes := strings.Join(parts, "; ")
	return &notes
}

// RecalculateAllResponse is returned by the bulk status repair operation
type RecalculateAllResponse struct {
	UpdatedCount int       `json:"updated_count"`
	Journeys     []Journey `json:"journeys"`
}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t, nil
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDate, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}
	return startDate, endDate, nil
}
