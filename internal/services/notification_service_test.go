package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationConsumer_Handle(t *testing.T) {
	store := &memNotifications{items: make(map[uuid.UUID]models.SupplierNotification)}
	consumer := NewNotificationConsumer("", "supplier.booking.created", store, quietLogger())

	n := models.SupplierBookingNotification{
		SupplierID: uuid.New(),
		BookingID:  uuid.New(),
		JourneyID:  uuid.New(),
		Reference:  "JRN-1A2B3C4D",
		Amount:     decimal.RequireFromString("240.00"),
		Currency:   "EUR",
		CreatedAt:  time.Now().UTC(),
	}
	body, err := json.Marshal(n)
	require.NoError(t, err)

	require.NoError(t, consumer.Handle(context.Background(), body))
	require.NoError(t, consumer.Handle(context.Background(), body), "redelivery is recorded once")

	require.Len(t, store.items, 1)
	stored := store.items[n.BookingID]
	assert.Equal(t, n.SupplierID, stored.SupplierID)
	assert.Equal(t, "JRN-1A2B3C4D", stored.Reference)
	assert.True(t, stored.Amount.Equal(n.Amount))
}

func TestNotificationConsumer_HandleRejectsGarbage(t *testing.T) {
	store := &memNotifications{items: make(map[uuid.UUID]models.SupplierNotification)}
	consumer := NewNotificationConsumer("", "q", store, quietLogger())

	assert.Error(t, consumer.Handle(context.Background(), []byte("{not json")))
	assert.Empty(t, store.items)
}

func TestLogNotifier(t *testing.T) {
	notifier := NewLogNotifier(quietLogger())
	err := notifier.NotifySupplierNewBooking(context.Background(), models.SupplierBookingNotification{
		SupplierID: uuid.New(),
		BookingID:  uuid.New(),
		Amount:     decimal.NewFromInt(10),
		Currency:   "EUR",
	})
	assert.NoError(t, err)
}

func TestSleepCtx_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
