package database

import (
	"context"
	"fmt"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SupplierNotificationRepository stores notifications delivered to supplier inboxes
type SupplierNotificationRepository struct {
	db *sqlx.DB
}

// NewSupplierNotificationRepository creates a new SupplierNotificationRepository
func NewSupplierNotificationRepository(db *sqlx.DB) *SupplierNotificationRepository {
	return &SupplierNotificationRepository{db: db}
}

// Create records a notification. Redelivered messages for the same booking are
// ignored; the returned bool reports whether a row was written.
func (r *SupplierNotificationRepository) Create(ctx context.Context, n *models.SupplierNotification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO supplier_notifications (id, supplier_id, booking_id, reference, amount, currency, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (booking_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		n.ID, n.SupplierID, n.BookingID, n.Reference, n.Amount, n.Currency, n.DeliveredAt)
	if err != nil {
		return false, fmt.Errorf("failed to store supplier notification: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListBySupplier returns the supplier's most recent notifications
func (r *SupplierNotificationRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]models.SupplierNotification, error) {
	notifications := []models.SupplierNotification{}
	query := `
		SELECT id, supplier_id, booking_id, reference, amount, currency, delivered_at
		FROM supplier_notifications
		WHERE supplier_id = $1
		ORDER BY delivered_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &notifications, query, supplierID, limit); err != nil {
		return nil, fmt.Errorf("failed to list supplier notifications: %w", err)
	}
	return notifications, nil
}
