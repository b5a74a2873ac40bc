package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogServiceRowColumns = []string{
	"id", "supplier_id", "type", "name", "price", "currency", "location_id",
	"departure_location_id", "arrival_location_id", "duration_minutes",
	"min_guests", "max_guests", "is_active", "created_at", "updated_at",
}

func TestCatalogRepository_SearchServices(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)
	exclude := uuid.New()
	locationID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM catalog_services WHERE is_active AND type = \$1 AND location_id = ANY\(\$2\) AND id <> \$3 ORDER BY price, name LIMIT \$4`).
		WithArgs("ACCOMMODATION", sqlmock.AnyArg(), exclude, 20).
		WillReturnRows(sqlmock.NewRows(catalogServiceRowColumns).AddRow(
			uuid.New().String(), uuid.New().String(), "ACCOMMODATION", "Harbour Inn", "90.00", "EUR", locationID.String(),
			nil, nil, nil,
			1, 4, true, now, now,
		))

	services, err := repo.SearchServices(context.Background(), models.ServiceSearch{
		Type:             models.SegmentTypeAccommodation,
		LocationIDs:      []uuid.UUID{locationID},
		ExcludeServiceID: &exclude,
	})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Harbour Inn", services[0].Name)
	assert.True(t, services[0].AcceptsGuests(4))
	assert.False(t, services[0].AcceptsGuests(5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetLocationNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT id, name, type, parent_id FROM locations WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "parent_id"}))

	location, err := repo.GetLocation(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, location)
	assert.NoError(t, mock.ExpectationsWereMet())
}
