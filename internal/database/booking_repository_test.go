package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"id", "reference", "supplier_id", "user_id", "journey_id", "service_id", "package_booking_id",
	"segment_ids", "status", "service_date", "check_in", "check_out", "participants",
	"unit_price", "total_amount", "commission_amount", "currency", "notes",
	"cancelled_by", "cancellation_reason", "cancelled_at", "confirmed_at",
	"created_at", "updated_at",
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	journeyID := uuid.New()

	booking := &models.Booking{
		Reference:    "JRN-1a2b3c4d",
		SupplierID:   uuid.New(),
		UserID:       uuid.New(),
		JourneyID:    &journeyID,
		SegmentIDs:   models.UUIDArray{uuid.New()},
		Status:       models.BookingStatusPending,
		Participants: 2,
		UnitPrice:    decimal.NewFromInt(50),
		TotalAmount:  decimal.NewFromInt(100),
		Currency:     "EUR",
	}

	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), booking)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	id := uuid.New()
	segmentID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
			id.String(), "JRN-1a2b3c4d", uuid.New().String(), uuid.New().String(), uuid.New().String(), nil, nil,
			[]byte("{"+segmentID.String()+"}"), "CANCELLED", now, nil, nil, 2,
			"50.00", "100.00", "10.00", "EUR", nil,
			"SUPPLIER", "no availability", now, nil,
			now, now,
		))

	booking, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.UUIDArray{segmentID}, booking.SegmentIDs)
	assert.True(t, booking.WasCancelledBySupplier())
	assert.True(t, booking.CommissionAmount.Equal(decimal.NewFromInt(10)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		booking := &models.Booking{ID: uuid.New(), Status: models.BookingStatusConfirmed}
		require.NoError(t, booking.Cancel(models.CancelledByGuest, nil))

		mock.ExpectExec(`UPDATE bookings SET status = 'CANCELLED'`).
			WithArgs(booking.ID, "GUEST", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Cancel(ctx, booking))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		booking := &models.Booking{ID: uuid.New(), Status: models.BookingStatusPending}
		require.NoError(t, booking.Cancel(models.CancelledBySupplier, nil))

		mock.ExpectExec(`UPDATE bookings SET status = 'CANCELLED'`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Cancel(ctx, booking)
		assert.ErrorIs(t, err, ErrBookingNotActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_ListByIDsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	bookings, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}
