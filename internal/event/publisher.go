package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Delivery event types
const (
	EventRefreshed  = "feed.refreshed"
	EventRead       = "notification.read"
	EventAllRead    = "notification.read_all"
	EventDeleted    = "notification.deleted"
	EventAllDeleted = "notification.deleted_all"
)

// DeliveryEvent describes a change observed in the local notification feed
type DeliveryEvent struct {
	Type           string    `json:"type"`
	NotificationID string    `json:"notification_id,omitempty"`
	UnreadCount    int       `json:"unread_count"`
	At             time.Time `json:"at"`
}

// Publisher publishes feed delivery events to a Kafka topic
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a new delivery event publisher
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// Publish sends a delivery event; the event key is the notification id so
// per-notification events stay ordered within a partition
func (p *Publisher) Publish(ctx context.Context, ev DeliveryEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to marshal delivery event",
			zap.String("type", ev.Type),
			zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(ev.NotificationID),
		Value: value,
		Time:  ev.At,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish delivery event",
			zap.String("type", ev.Type),
			zap.Error(err))
		return err
	}

	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
