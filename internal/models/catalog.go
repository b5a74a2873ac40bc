package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocationType classifies catalog locations
type LocationType string

const (
	LocationTypeCountry LocationType = "COUNTRY"
	LocationTypeRegion  LocationType = "REGION"
	LocationTypeCity    LocationType = "CITY"
	LocationTypePort    LocationType = "PORT"
	LocationTypeAirport LocationType = "AIRPORT"
	LocationTypeIsland  LocationType = "ISLAND"
)

// Location is a place a journey or segment can start or end at
type Location struct {
	ID       uuid.UUID    `json:"id" db:"id"`
	Name     string       `json:"name" db:"name"`
	Type     LocationType `json:"type" db:"type"`
	ParentID *uuid.UUID   `json:"parent_id,omitempty" db:"parent_id"`
}

// Supplier is an independent business fulfilling catalog services
type Supplier struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id" db:"owner_user_id"`
	Name        string    `json:"name" db:"name"`
	Email       *string   `json:"email,omitempty" db:"email"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CatalogService is a bookable offer from a supplier
type CatalogService struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	SupplierID          uuid.UUID       `json:"supplier_id" db:"supplier_id"`
	Type                SegmentType     `json:"type" db:"type"`
	Name                string          `json:"name" db:"name"`
	Price               decimal.Decimal `json:"price" db:"price"`
	Currency            string          `json:"currency" db:"currency"`
	LocationID          *uuid.UUID      `json:"location_id,omitempty" db:"location_id"`
	DepartureLocationID *uuid.UUID      `json:"departure_location_id,omitempty" db:"departure_location_id"`
	ArrivalLocationID   *uuid.UUID      `json:"arrival_location_id,omitempty" db:"arrival_location_id"`
	DurationMinutes     *int            `json:"duration_minutes,omitempty" db:"duration_minutes"`
	MinGuests           *int            `json:"min_guests,omitempty" db:"min_guests"`
	MaxGuests           *int            `json:"max_guests,omitempty" db:"max_guests"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// AcceptsGuests checks the traveler count against the package bounds
func (s *CatalogService) AcceptsGuests(travelers int) bool {
	if s.MinGuests != nil && travelers < *s.MinGuests {
		return false
	}
	if s.MaxGuests != nil && travelers > *s.MaxGuests {
		return false
	}
	return true
}

// PriceFor returns the segment price for a traveler count. TOUR and ACTIVITY
// catalog prices are per person, everything else is per booking.
func (s *CatalogService) PriceFor(travelers int) decimal.Decimal {
	if s.Type.IsPricedPerPerson() && travelers > 0 {
		return s.Price.Mul(decimal.NewFromInt(int64(travelers)))
	}
	return s.Price
}

// ServiceSearch filters catalog services for replacement candidates
type ServiceSearch struct {
	Type                 SegmentType
	LocationIDs          []uuid.UUID
	DepartureLocationIDs []uuid.UUID
	ArrivalLocationIDs   []uuid.UUID
	ExcludeServiceID     *uuid.UUID
	Limit                int
}
