package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/croffers/journey-backend/internal/apperrors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the status of a supplier booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// IsActive is true for bookings a supplier still has to fulfil
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// CancellationInitiator identifies who cancelled a booking
type CancellationInitiator string

const (
	CancelledBySupplier CancellationInitiator = "SUPPLIER"
	CancelledByGuest    CancellationInitiator = "GUEST"
	CancelledBySystem   CancellationInitiator = "SYSTEM"
)

// Booking is a supplier-facing commitment created from one or more segments
type Booking struct {
	ID                 uuid.UUID              `json:"id" db:"id"`
	Reference          string                 `json:"reference" db:"reference"`
	SupplierID         uuid.UUID              `json:"supplier_id" db:"supplier_id"`
	UserID             uuid.UUID              `json:"user_id" db:"user_id"`
	JourneyID          *uuid.UUID             `json:"journey_id,omitempty" db:"journey_id"`
	ServiceID          *uuid.UUID             `json:"service_id,omitempty" db:"service_id"`
	PackageBookingID   *uuid.UUID             `json:"package_booking_id,omitempty" db:"package_booking_id"`
	SegmentIDs         UUIDArray              `json:"segment_ids" db:"segment_ids"`
	Status             BookingStatus          `json:"status" db:"status"`
	ServiceDate        *time.Time             `json:"service_date,omitempty" db:"service_date"`
	CheckIn            *time.Time             `json:"check_in,omitempty" db:"check_in"`
	CheckOut           *time.Time             `json:"check_out,omitempty" db:"check_out"`
	Participants       int                    `json:"participants" db:"participants"`
	UnitPrice          decimal.Decimal        `json:"unit_price" db:"unit_price"`
	TotalAmount        decimal.Decimal        `json:"total_amount" db:"total_amount"`
	CommissionAmount   decimal.Decimal        `json:"commission_amount" db:"commission_amount"`
	Currency           string                 `json:"currency" db:"currency"`
	Notes              *string                `json:"notes,omitempty" db:"notes"`
	CancelledBy        *CancellationInitiator `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancellationReason *string                `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty" db:"cancelled_at"`
	ConfirmedAt        *time.Time             `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" db:"updated_at"`
}

// CanBeCancelled checks if the booking can be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status.IsActive()
}

// Cancel cancels the booking
func (b *Booking) Cancel(by CancellationInitiator, reason *string) error {
	if !b.CanBeCancelled() {
		return errors.New("booking cannot be cancelled")
	}

	now := time.Now()
	b.Status = BookingStatusCancelled
	b.CancelledBy = &by
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.UpdatedAt = now

	return nil
}

// Confirm marks a pending booking as confirmed by the supplier
func (b *Booking) Confirm() error {
	if b.Status != BookingStatusPending {
		return fmt.Errorf("booking cannot be confirmed (status: %s)", b.Status)
	}

	now := time.Now()
	b.Status = BookingStatusConfirmed
	b.ConfirmedAt = &now
	b.UpdatedAt = now

	return nil
}

// WasCancelledBySupplier is true when the supplier side cancelled the booking
func (b *Booking) WasCancelledBySupplier() bool {
	return b.Status == BookingStatusCancelled && b.CancelledBy != nil && *b.CancelledBy == CancelledBySupplier
}

// BookingItem is one segment carried by a booking request
type BookingItem struct {
	SegmentID   uuid.UUID       `json:"segment_id"`
	SegmentType SegmentType     `json:"segment_type"`
	Price       decimal.Decimal `json:"price"`
}

// CreateBookingRequest is what the orchestrator hands to the booking collaborator
type CreateBookingRequest struct {
	SupplierID       uuid.UUID
	UserID           uuid.UUID
	JourneyID        uuid.UUID
	ServiceID        *uuid.UUID
	PackageBookingID uuid.UUID
	Items            []BookingItem
	ServiceDate      *time.Time
	CheckIn          *time.Time
	CheckOut         *time.Time
	TravelerCount    int
	UnitPrice        decimal.Decimal
	TotalAmount      decimal.Decimal
	Currency         string
	Notes            *string
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("booking must carry at least one item")
	}
	if r.TravelerCount <= 0 {
		return errors.New("traveler count must be at least 1")
	}
	if r.TotalAmount.IsNegative() {
		return errors.New("total amount must not be negative")
	}
	return nil
}

// BookingRef is the collaborator's answer to a booking request
type BookingRef struct {
	ID        uuid.UUID     `json:"id"`
	Reference string        `json:"reference"`
	Status    BookingStatus `json:"status"`
}

// BookingCancelledEvent is emitted by the booking subsystem after a booking is cancelled
type BookingCancelledEvent struct {
	BookingID   uuid.UUID
	JourneyID   *uuid.UUID
	CancelledBy CancellationInitiator
	Reason      string
	CancelledAt time.Time
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// GenerateBookingReference generates a supplier-facing booking reference
func GenerateBookingReference() string {
	// Format: JRN-XXXXXXXX
	id := uuid.New()
	return "JRN-" + id.String()[0:8]
}

// BookingFailure describes one booking group the collaborator rejected
type BookingFailure struct {
	SegmentIDs []uuid.UUID `json:"segment_ids"`
	SupplierID uuid.UUID   `json:"supplier_id"`
	Error      string      `json:"error"`
}

// PartialBookingError is returned when some booking groups failed. Bookings
// already created stay valid and the journey is left in BOOKING.
type PartialBookingError struct {
	Journey  *Journey
	Failures []BookingFailure
	Created  int
}

func (e *PartialBookingError) Error() string {
	return fmt.Sprintf("%d of %d booking groups failed", len(e.Failures), len(e.Failures)+e.Created)
}

// Unwrap lets errors.Is match apperrors.ErrBookingFailed
func (e *PartialBookingError) Unwrap() error {
	return apperrors.ErrBookingFailed
}
