package usecase

import (
	"context"
	"time"

	"transit-booking/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReceiptNotice struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	BookingReference string          `json:"booking_reference"`
	RecipientEmail   string          `json:"recipient_email,omitempty"`
	RecipientPhone   string          `json:"recipient_phone,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	DepartureAt      time.Time       `json:"departure_at"`
	TicketPayload    string          `json:"ticket_payload"`
}

type CancellationNotice struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	BookingReference string          `json:"booking_reference"`
	RecipientEmail   string          `json:"recipient_email,omitempty"`
	RecipientPhone   string          `json:"recipient_phone,omitempty"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundPercent    int             `json:"refund_percent"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
}

// Notifier hands messages to the delivery collaborator. Delivery is
// fire-and-forget; a returned error is logged and never undoes state.
type Notifier interface {
	PaymentReceipt(ctx context.Context, notice ReceiptNotice) error
	CancellationNotice(ctx context.Context, notice CancellationNotice) error
}

// LogNotifier only records notices in the log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("notifier", "log"))}
}

func (n *LogNotifier) PaymentReceipt(_ context.Context, notice ReceiptNotice) error {
	n.log.Info("Payment receipt",
		zap.String("booking_reference", notice.BookingReference),
		zap.String("amount", notice.Amount.StringFixed(2)),
	)
	return nil
}

func (n *LogNotifier) CancellationNotice(_ context.Context, notice CancellationNotice) error {
	n.log.Info("Cancellation notice",
		zap.String("booking_reference", notice.BookingReference),
		zap.String("refund_amount", notice.RefundAmount.StringFixed(2)),
		zap.Int("refund_percent", notice.RefundPercent),
	)
	return nil
}

const notifyTimeout = 5 * time.Second

// dispatch runs send detached from the caller's cancellation and swallows its error.
func dispatch(ctx context.Context, log *zap.Logger, kind string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		metrics.NotificationFailures.WithLabelValues(kind).Inc()
		log.Warn("Notification delivery failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
