package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const catalogServiceColumns = `
	id, supplier_id, type, name, price, currency, location_id,
	departure_location_id, arrival_location_id, duration_minutes,
	min_guests, max_guests, is_active, created_at, updated_at`

// CatalogRepository reads catalog services, locations and suppliers
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetService retrieves a catalog service by ID. Returns nil, nil if not found.
func (r *CatalogRepository) GetService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error) {
	var service models.CatalogService
	query := `SELECT ` + catalogServiceColumns + ` FROM catalog_services WHERE id = $1`

	err := r.db.GetContext(ctx, &service, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog service: %w", err)
	}
	return &service, nil
}

// GetLocation retrieves a location by ID. Returns nil, nil if not found.
func (r *CatalogRepository) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var location models.Location
	query := `SELECT id, name, type, parent_id FROM locations WHERE id = $1`

	err := r.db.GetContext(ctx, &location, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &location, nil
}

// ListChildLocationIDs returns the IDs of locations directly under parentID
func (r *CatalogRepository) ListChildLocationIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM locations WHERE parent_id = $1`, parentID); err != nil {
		return nil, fmt.Errorf("failed to list child locations: %w", err)
	}
	return ids, nil
}

// SearchServices returns active services matching the search, cheapest first
func (r *CatalogRepository) SearchServices(ctx context.Context, search models.ServiceSearch) ([]models.CatalogService, error) {
	conditions := []string{"is_active", "type = $1"}
	args := []interface{}{search.Type}
	argCount := 2

	if len(search.LocationIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("location_id = ANY($%d)", argCount))
		args = append(args, pq.Array(uuidStrings(search.LocationIDs)))
		argCount++
	}
	if len(search.DepartureLocationIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("departure_location_id = ANY($%d)", argCount))
		args = append(args, pq.Array(uuidStrings(search.DepartureLocationIDs)))
		argCount++
	}
	if len(search.ArrivalLocationIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("arrival_location_id = ANY($%d)", argCount))
		args = append(args, pq.Array(uuidStrings(search.ArrivalLocationIDs)))
		argCount++
	}
	if search.ExcludeServiceID != nil {
		conditions = append(conditions, fmt.Sprintf("id <> $%d", argCount))
		args = append(args, *search.ExcludeServiceID)
		argCount++
	}

	limit := search.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_services
		WHERE %s
		ORDER BY price, name
		LIMIT $%d`, catalogServiceColumns, strings.Join(conditions, " AND "), argCount)

	services := []models.CatalogService{}
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search catalog services: %w", err)
	}
	return services, nil
}

// GetSupplier retrieves a supplier by ID. Returns nil, nil if not found.
func (r *CatalogRepository) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	query := `SELECT id, owner_user_id, name, email, created_at FROM suppliers WHERE id = $1`

	err := r.db.GetContext(ctx, &supplier, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &supplier, nil
}

// GetSupplierByOwner retrieves the supplier owned by a user. Returns nil, nil if not found.
func (r *CatalogRepository) GetSupplierByOwner(ctx context.Context, userID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	query := `SELECT id, owner_user_id, name, email, created_at FROM suppliers WHERE owner_user_id = $1`

	err := r.db.GetContext(ctx, &supplier, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &supplier, nil
}
