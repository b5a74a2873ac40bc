package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierBookingNotification is published for every booking the orchestrator creates
type SupplierBookingNotification struct {
	SupplierID uuid.UUID       `json:"supplier_id"`
	BookingID  uuid.UUID       `json:"booking_id"`
	JourneyID  uuid.UUID       `json:"journey_id"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SupplierNotification is a delivered notification in the supplier inbox
type SupplierNotification struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SupplierID  uuid.UUID       `json:"supplier_id" db:"supplier_id"`
	BookingID   uuid.UUID       `json:"booking_id" db:"booking_id"`
	Reference   string          `json:"reference" db:"reference"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	DeliveredAt time.Time       `json:"delivered_at" db:"delivered_at"`
}
