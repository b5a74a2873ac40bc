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

const journeyColumns = `
	id, user_id, name, origin_location_id, destination_location_id,
	start_date, end_date, travelers, currency, total_price, status,
	preferences, created_at, updated_at`

// recomputeTotalPriceQuery keeps journeys.total_price derived from its non-cancelled segments
const recomputeTotalPriceQuery = `
	UPDATE journeys
	SET total_price = (
		SELECT COALESCE(SUM(price), 0)
		FROM journey_segments
		WHERE journey_id = $1 AND NOT is_cancelled
	), updated_at = NOW()
	WHERE id = $1
	RETURNING total_price`

// JourneyRepository handles journey database operations
type JourneyRepository struct {
	db *sqlx.DB
}

// NewJourneyRepository creates a new JourneyRepository
func NewJourneyRepository(db *sqlx.DB) *JourneyRepository {
	return &JourneyRepository{db: db}
}

// ErrPlanningCapReached is returned by CreateWithinCap when the owner already
// has the maximum number of journeys in the capped statuses
var ErrPlanningCapReached = errors.New("planning cap reached")

// ErrTravelersLocked is returned by Update when the traveler count changes on
// a journey that already has booked segments
var ErrTravelersLocked = errors.New("journey has booked segments")

// CreateWithinCap inserts a new journey unless the owner already has limit
// journeys in one of statuses. The count and the insert run under a per-user
// advisory lock so concurrent plans cannot overshoot the cap.
func (r *JourneyRepository) CreateWithinCap(ctx context.Context, journey *models.Journey, statuses []models.JourneyStatus, limit int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, journey.UserID.String()); err != nil {
		return fmt.Errorf("failed to lock journey owner: %w", err)
	}

	var count int
	err = tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM journeys WHERE user_id = $1 AND status = ANY($2)`,
		journey.UserID, pq.Array(statusStrings(statuses)))
	if err != nil {
		return fmt.Errorf("failed to count journeys: %w", err)
	}
	if count >= limit {
		return ErrPlanningCapReached
	}

	if journey.ID == uuid.Nil {
		journey.ID = uuid.New()
	}
	now := time.Now()
	journey.CreatedAt = now
	journey.UpdatedAt = now

	query := `
		INSERT INTO journeys (
			id, user_id, name, origin_location_id, destination_location_id,
			start_date, end_date, travelers, currency, total_price, status,
			preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.ExecContext(ctx, query,
		journey.ID, journey.UserID, journey.Name, journey.OriginLocationID, journey.DestinationLocationID,
		journey.StartDate, journey.EndDate, journey.Travelers, journey.Currency, journey.TotalPrice, journey.Status,
		journey.Preferences, journey.CreatedAt, journey.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create journey: %w", err)
	}
	return tx.Commit()
}

// GetByID retrieves a journey by ID. Returns nil, nil if not found.
func (r *JourneyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Journey, error) {
	var journey models.Journey
	query := `SELECT ` + journeyColumns + ` FROM journeys WHERE id = $1`

	err := r.db.GetContext(ctx, &journey, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}
	return &journey, nil
}

// ListByUser returns a page of the user's journeys, newest first
func (r *JourneyRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Journey, error) {
	journeys := []models.Journey{}
	query := `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &journeys, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}
	return journeys, nil
}

// ListAllByUser returns every journey owned by the user
func (r *JourneyRepository) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.Journey, error) {
	journeys := []models.Journey{}
	query := `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE user_id = $1
		ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &journeys, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}
	return journeys, nil
}

// ListOwnerIDs returns the owners of every journey that is not terminal
func (r *JourneyRepository) ListOwnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `
		SELECT DISTINCT user_id
		FROM journeys
		WHERE status NOT IN ('COMPLETED', 'CANCELLED')`

	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list journey owners: %w", err)
	}
	return ids, nil
}

// ListEndedBefore returns journeys in the given statuses whose end date is before the cutoff
func (r *JourneyRepository) ListEndedBefore(ctx context.Context, cutoff time.Time, statuses []models.JourneyStatus) ([]models.Journey, error) {
	journeys := []models.Journey{}
	query := `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE end_date < $1 AND status = ANY($2)
		ORDER BY end_date`

	if err := r.db.SelectContext(ctx, &journeys, query, cutoff, pq.Array(statusStrings(statuses))); err != nil {
		return nil, fmt.Errorf("failed to list ended journeys: %w", err)
	}
	return journeys, nil
}

// Update writes the journey header fields and the given segment prices in one
// transaction under the journey row lock, then recomputes the total. A change
// of traveler count is refused with ErrTravelersLocked once any segment is booked.
func (r *JourneyRepository) Update(ctx context.Context, journey *models.Journey, prices map[uuid.UUID]decimal.Decimal) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	var travelers int
	err = tx.GetContext(ctx, &travelers, `SELECT travelers FROM journeys WHERE id = $1 FOR UPDATE`, journey.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("journey %s not found", journey.ID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock journey: %w", err)
	}

	if travelers != journey.Travelers {
		var booked bool
		err := tx.GetContext(ctx, &booked,
			`SELECT EXISTS (SELECT 1 FROM journey_segments WHERE journey_id = $1 AND is_booked)`, journey.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to check booked segments: %w", err)
		}
		if booked {
			return decimal.Zero, ErrTravelersLocked
		}
	}

	journey.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE journeys
		SET name = $2, start_date = $3, end_date = $4, travelers = $5,
		    preferences = $6, updated_at = $7
		WHERE id = $1`,
		journey.ID, journey.Name, journey.StartDate, journey.EndDate, journey.Travelers,
		journey.Preferences, journey.UpdatedAt,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update journey: %w", err)
	}

	for id, price := range prices {
		_, err := tx.ExecContext(ctx, `
			UPDATE journey_segments
			SET price = $3, updated_at = NOW()
			WHERE id = $1 AND journey_id = $2 AND NOT is_booked`,
			id, journey.ID, price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to reprice segment %s: %w", id, err)
		}
	}

	total, err := recomputeTotal(ctx, tx, journey.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, tx.Commit()
}

// UpdateStatus sets the journey status
func (r *JourneyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JourneyStatus) error {
	query := `UPDATE journeys SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update journey status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("journey %s not found", id)
	}
	return nil
}

// TransitionStatus moves the journey to status only while it is in one of
// from. It reports whether this call made the change.
func (r *JourneyRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []models.JourneyStatus, status models.JourneyStatus) (bool, error) {
	query := `UPDATE journeys SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3)`

	result, err := r.db.ExecContext(ctx, query, id, status, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("failed to transition journey status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to transition journey status: %w", err)
	}
	return rows == 1, nil
}

// RecalculateTotalPrice recomputes total_price from the non-cancelled segments
func (r *JourneyRepository) RecalculateTotalPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, recomputeTotalPriceQuery, id); err != nil {
		return decimal.Zero, fmt.Errorf("failed to recalculate journey price: %w", err)
	}
	return total, nil
}

// Delete removes a journey. Segments go with it through ON DELETE CASCADE.
func (r *JourneyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM journeys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete journey: %w", err)
	}
	return nil
}

func statusStrings(statuses []models.JourneyStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// lockJourney takes the journey row lock that serializes segment writes
func lockJourney(ctx context.Context, tx *sqlx.Tx, journeyID uuid.UUID) error {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `SELECT id FROM journeys WHERE id = $1 FOR UPDATE`, journeyID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("journey %s not found", journeyID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock journey: %w", err)
	}
	return nil
}
