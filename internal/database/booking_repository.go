package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const bookingColumns = `
	id, reference, supplier_id, user_id, journey_id, service_id, package_booking_id,
	segment_ids, status, service_date, check_in, check_out, participants,
	unit_price, total_amount, commission_amount, currency, notes,
	cancelled_by, cancellation_reason, cancelled_at, confirmed_at,
	created_at, updated_at`

// ErrBookingNotActive is returned when a status change targets a booking that
// is no longer PENDING/CONFIRMED
var ErrBookingNotActive = errors.New("booking is not active")

// BookingRepository handles supplier booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a new booking
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	query := `
		INSERT INTO bookings (
			id, reference, supplier_id, user_id, journey_id, service_id, package_booking_id,
			segment_ids, status, service_date, check_in, check_out, participants,
			unit_price, total_amount, commission_amount, currency, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.Reference, booking.SupplierID, booking.UserID, booking.JourneyID,
		booking.ServiceID, booking.PackageBookingID, booking.SegmentIDs, booking.Status,
		booking.ServiceDate, booking.CheckIn, booking.CheckOut, booking.Participants,
		booking.UnitPrice, booking.TotalAmount, booking.CommissionAmount, booking.Currency, booking.Notes,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID. Returns nil, nil if not found.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := r.db.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListByIDs returns the bookings with the given IDs
func (r *BookingRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	if len(ids) == 0 {
		return bookings, nil
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ANY($1)`

	if err := r.db.SelectContext(ctx, &bookings, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListByJourney returns every booking created for the journey
func (r *BookingRepository) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE journey_id = $1
		ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &bookings, query, journeyID); err != nil {
		return nil, fmt.Errorf("failed to list journey bookings: %w", err)
	}
	return bookings, nil
}

// ListBySupplier returns a page of the supplier's bookings, optionally filtered by status
func (r *BookingRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, status *models.BookingStatus, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE supplier_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var statusArg interface{}
	if status != nil {
		statusArg = string(*status)
	}
	if err := r.db.SelectContext(ctx, &bookings, query, supplierID, statusArg, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list supplier bookings: %w", err)
	}
	return bookings, nil
}

// Cancel moves an active booking to CANCELLED
func (r *BookingRepository) Cancel(ctx context.Context, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = 'CANCELLED',
			cancelled_by = $2,
			cancellation_reason = $3,
			cancelled_at = $4,
			updated_at = $5
		WHERE id = $1 AND status IN ('PENDING', 'CONFIRMED')`

	result, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.CancelledBy, booking.CancellationReason, booking.CancelledAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookingNotActive
	}
	return nil
}

// Confirm moves a pending booking to CONFIRMED
func (r *BookingRepository) Confirm(ctx context.Context, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = 'CONFIRMED', confirmed_at = $2, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'`

	result, err := r.db.ExecContext(ctx, query, booking.ID, booking.ConfirmedAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookingNotActive
	}
	return nil
}
