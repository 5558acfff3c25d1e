package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"transit-booking/internal/usecase"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventPaymentReceipt     = "booking.payment_receipt"
	EventCancellationNotice = "booking.cancellation_notice"
)

// Event is the envelope written to the notification topic.
type Event struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NotificationPublisher hands receipts and cancellation notices to the
// delivery service through Kafka.
type NotificationPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

func NewNotificationPublisher(brokers []string, topic string, log *zap.Logger) *NotificationPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return newNotificationPublisher(writer, log)
}

func newNotificationPublisher(writer messageWriter, log *zap.Logger) *NotificationPublisher {
	return &NotificationPublisher{
		writer: writer,
		log:    log.With(zap.String("broker", "kafka")),
	}
}

func (p *NotificationPublisher) publish(ctx context.Context, reference, eventType string, payload any) error {
	event := Event{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte("booking-" + reference),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event to kafka: %w", eventType, err)
	}

	p.log.Debug("Published event",
		zap.String("event_type", eventType),
		zap.String("booking_reference", reference),
	)
	return nil
}

func (p *NotificationPublisher) PaymentReceipt(ctx context.Context, notice usecase.ReceiptNotice) error {
	return p.publish(ctx, notice.BookingReference, EventPaymentReceipt, notice)
}

func (p *NotificationPublisher) CancellationNotice(ctx context.Context, notice usecase.CancellationNotice) error {
	return p.publish(ctx, notice.BookingReference, EventCancellationNotice, notice)
}

func (p *NotificationPublisher) Close() error {
	return p.writer.Close()
}
