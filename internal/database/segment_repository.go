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
	"github.com/shopspring/decimal"
)

const segmentColumns = `
	id, journey_id, segment_type, segment_order, service_id,
	departure_location_id, arrival_location_id, departure_time, arrival_time,
	duration_minutes, price, currency, notes, is_booked, is_confirmed,
	is_cancelled, cancelled_at, cancellation_reason, booking_id,
	created_at, updated_at`

// SegmentRepository is the segment store. Every write that touches ordering or
// prices locks the owning journey row first and recomputes the journey total
// in the same transaction.
type SegmentRepository struct {
	db *sqlx.DB
}

// NewSegmentRepository creates a new SegmentRepository
func NewSegmentRepository(db *sqlx.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// ListByJourney returns the journey's segments ordered by segment_order
func (r *SegmentRepository) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]models.JourneySegment, error) {
	segments := []models.JourneySegment{}
	query := `
		SELECT ` + segmentColumns + `
		FROM journey_segments
		WHERE journey_id = $1
		ORDER BY segment_order`

	if err := r.db.SelectContext(ctx, &segments, query, journeyID); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// GetByID retrieves a segment by ID. Returns nil, nil if not found.
func (r *SegmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JourneySegment, error) {
	var segment models.JourneySegment
	query := `SELECT ` + segmentColumns + ` FROM journey_segments WHERE id = $1`

	err := r.db.GetContext(ctx, &segment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return &segment, nil
}

// InsertAt inserts the segment after afterOrder, shifting later segments down.
// A nil afterOrder (or one past the end) appends at count+1.
func (r *SegmentRepository) InsertAt(ctx context.Context, segment *models.JourneySegment, afterOrder *int) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	if err := lockJourney(ctx, tx, segment.JourneyID); err != nil {
		return decimal.Zero, err
	}

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM journey_segments WHERE journey_id = $1`, segment.JourneyID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to count segments: %w", err)
	}

	position := count
	if afterOrder != nil && *afterOrder < count {
		position = *afterOrder
		if position < 0 {
			position = 0
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE journey_segments
			SET segment_order = segment_order + 1, updated_at = NOW()
			WHERE journey_id = $1 AND segment_order > $2`,
			segment.JourneyID, position)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to shift segments: %w", err)
		}
	}

	if segment.ID == uuid.Nil {
		segment.ID = uuid.New()
	}
	now := time.Now()
	segment.SegmentOrder = position + 1
	segment.CreatedAt = now
	segment.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journey_segments (
			id, journey_id, segment_type, segment_order, service_id,
			departure_location_id, arrival_location_id, departure_time, arrival_time,
			duration_minutes, price, currency, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		segment.ID, segment.JourneyID, segment.SegmentType, segment.SegmentOrder, segment.ServiceID,
		segment.DepartureLocationID, segment.ArrivalLocationID, segment.DepartureTime, segment.ArrivalTime,
		segment.DurationMinutes, segment.Price, segment.Currency, segment.Notes, segment.CreatedAt, segment.UpdatedAt,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to insert segment: %w", err)
	}

	total, err := recomputeTotal(ctx, tx, segment.JourneyID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, tx.Commit()
}

// Update writes the editable fields of an unbooked segment
func (r *SegmentRepository) Update(ctx context.Context, segment *models.JourneySegment) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	if err := lockJourney(ctx, tx, segment.JourneyID); err != nil {
		return decimal.Zero, err
	}

	segment.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE journey_segments
		SET service_id = $2, departure_location_id = $3, arrival_location_id = $4,
		    departure_time = $5, arrival_time = $6, duration_minutes = $7,
		    price = $8, currency = $9, notes = $10, updated_at = $11
		WHERE id = $1`,
		segment.ID, segment.ServiceID, segment.DepartureLocationID, segment.ArrivalLocationID,
		segment.DepartureTime, segment.ArrivalTime, segment.DurationMinutes,
		segment.Price, segment.Currency, segment.Notes, segment.UpdatedAt,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update segment: %w", err)
	}

	total, err := recomputeTotal(ctx, tx, segment.JourneyID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, tx.Commit()
}

// Delete removes a segment and closes the gap it leaves in the ordering
func (r *SegmentRepository) Delete(ctx context.Context, journeyID, segmentID uuid.UUID) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	if err := lockJourney(ctx, tx, journeyID); err != nil {
		return decimal.Zero, err
	}

	var order int
	err = tx.GetContext(ctx, &order, `
		DELETE FROM journey_segments
		WHERE id = $1 AND journey_id = $2
		RETURNING segment_order`,
		segmentID, journeyID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("segment %s not found", segmentID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to delete segment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE journey_segments
		SET segment_order = segment_order - 1, updated_at = NOW()
		WHERE journey_id = $1 AND segment_order > $2`,
		journeyID, order)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to shift segments: %w", err)
	}

	total, err := recomputeTotal(ctx, tx, journeyID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, tx.Commit()
}

// Reorder renumbers the journey's segments densely from 1, keeping their relative order
func (r *SegmentRepository) Reorder(ctx context.Context, journeyID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockJourney(ctx, tx, journeyID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE journey_segments s
		SET segment_order = o.new_order, updated_at = NOW()
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY segment_order, created_at) AS new_order
			FROM journey_segments
			WHERE journey_id = $1
		) o
		WHERE s.id = o.id AND s.segment_order <> o.new_order`,
		journeyID)
	if err != nil {
		return fmt.Errorf("failed to reorder segments: %w", err)
	}

	return tx.Commit()
}

// LinkBooking attaches a booking to the given segments and marks them booked
func (r *SegmentRepository) LinkBooking(ctx context.Context, bookingID uuid.UUID, segmentIDs []uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE journey_segments
		SET booking_id = $1, is_booked = TRUE, updated_at = NOW()
		WHERE id = ANY($2)`,
		bookingID, pq.Array(uuidStrings(segmentIDs)))
	if err != nil {
		return fmt.Errorf("failed to link booking to segments: %w", err)
	}
	return nil
}

// MarkConfirmed sets is_confirmed on every non-cancelled segment of the journey
func (r *SegmentRepository) MarkConfirmed(ctx context.Context, journeyID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE journey_segments
		SET is_confirmed = TRUE, updated_at = NOW()
		WHERE journey_id = $1 AND NOT is_cancelled`,
		journeyID)
	if err != nil {
		return fmt.Errorf("failed to confirm segments: %w", err)
	}
	return nil
}

// MarkCancelledByBooking flags every segment of the journey that references the
// booking as cancelled and recomputes the journey total. Returns the number of
// segments that changed.
func (r *SegmentRepository) MarkCancelledByBooking(ctx context.Context, journeyID, bookingID uuid.UUID, reason string, at time.Time) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := lockJourney(ctx, tx, journeyID); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE journey_segments
		SET is_cancelled = TRUE, is_confirmed = FALSE, cancelled_at = $3,
		    cancellation_reason = $4, updated_at = NOW()
		WHERE journey_id = $1 AND booking_id = $2 AND NOT is_cancelled`,
		journeyID, bookingID, at, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel segments: %w", err)
	}
	affected, _ := result.RowsAffected()

	if _, err := recomputeTotal(ctx, tx, journeyID); err != nil {
		return 0, err
	}
	return int(affected), tx.Commit()
}

// ReplaceService attaches a new service to a cancelled segment and returns it to
// the unbooked state
func (r *SegmentRepository) ReplaceService(ctx context.Context, segment *models.JourneySegment) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	if err := lockJourney(ctx, tx, segment.JourneyID); err != nil {
		return decimal.Zero, err
	}

	segment.UpdatedAt = time.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE journey_segments
		SET service_id = $2, price = $3, currency = $4, duration_minutes = $5,
		    is_booked = FALSE, is_confirmed = FALSE, is_cancelled = FALSE,
		    cancelled_at = NULL, cancellation_reason = NULL, booking_id = NULL,
		    updated_at = $6
		WHERE id = $1 AND is_cancelled`,
		segment.ID, segment.ServiceID, segment.Price, segment.Currency, segment.DurationMinutes, segment.UpdatedAt)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to replace segment service: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return decimal.Zero, fmt.Errorf("segment %s is no longer cancelled", segment.ID)
	}

	total, err := recomputeTotal(ctx, tx, segment.JourneyID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, tx.Commit()
}

func recomputeTotal(ctx context.Context, tx *sqlx.Tx, journeyID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := tx.GetContext(ctx, &total, recomputeTotalPriceQuery, journeyID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to recalculate journey price: %w", err)
	}
	return total, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
