package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/croffers/journey-backend/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// QueueNotifier publishes supplier notifications to a durable RabbitMQ queue.
// The connection is opened lazily and re-dialled after a failed publish.
type QueueNotifier struct {
	url    string
	queue  string
	logger *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewQueueNotifier creates a new QueueNotifier
func NewQueueNotifier(url, queue string, logger *logrus.Logger) *QueueNotifier {
	return &QueueNotifier{url: url, queue: queue, logger: logger}
}

// NotifySupplierNewBooking publishes one persistent JSON message per booking
func (n *QueueNotifier) NotifySupplierNewBooking(ctx context.Context, notification models.SupplierBookingNotification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    notification.BookingID.String(),
			Body:         body,
		})
	if err != nil {
		n.reset()
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// channel returns an open channel with the queue declared. Caller holds mu.
func (n *QueueNotifier) channel() (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	n.reset()

	conn, err := amqp.Dial(n.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	n.conn = conn
	n.ch = ch
	return ch, nil
}

func (n *QueueNotifier) reset() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

// Close releases the broker connection
func (n *QueueNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset()
	return nil
}

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifySupplierNewBooking logs the notification
func (n *LogNotifier) NotifySupplierNewBooking(_ context.Context, notification models.SupplierBookingNotification) error {
	n.logger.WithFields(logrus.Fields{
		"supplier_id": notification.SupplierID,
		"booking_id":  notification.BookingID,
		"reference":   notification.Reference,
		"amount":      notification.Amount.StringFixed(2),
		"currency":    notification.Currency,
	}).Info("Supplier notified of new booking")
	return nil
}

// NotificationConsumer drains the notification queue into the supplier inbox
type NotificationConsumer struct {
	url    string
	queue  string
	store  NotificationStore
	logger *logrus.Logger
}

// NewNotificationConsumer creates a new NotificationConsumer
func NewNotificationConsumer(url, queue string, store NotificationStore, logger *logrus.Logger) *NotificationConsumer {
	return &NotificationConsumer{url: url, queue: queue, store: store, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with backoff when the
// broker goes away
func (c *NotificationConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WithError(err).Warnf("notification-consumer: dial failed, retrying in %s", backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil {
			c.logger.WithError(err).Warn("notification-consumer: consume loop ended, reconnecting")
		}
		_ = conn.Close()

		if !sleepCtx(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *NotificationConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.WithError(err).Warn("notification-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.logger.WithField("queue", c.queue).Info("Notification consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.logger.WithError(err).Error("notification-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, no requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle records one delivered notification
func (c *NotificationConsumer) Handle(ctx context.Context, body []byte) error {
	var n models.SupplierBookingNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	created, err := c.store.Create(ctx, &models.SupplierNotification{
		SupplierID:  n.SupplierID,
		BookingID:   n.BookingID,
		Reference:   n.Reference,
		Amount:      n.Amount,
		Currency:    n.Currency,
		DeliveredAt: time.Now(),
	})
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"supplier_id": n.SupplierID,
		"booking_id":  n.BookingID,
		"duplicate":   !created,
	}).Info("Supplier notification delivered")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
