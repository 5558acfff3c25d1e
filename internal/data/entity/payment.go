package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "momo"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodManual      PaymentMethod = "manual"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type Payment struct {
	Base
	BookingID     uuid.UUID       `db:"booking_id"`
	Method        PaymentMethod   `db:"method"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Status        PaymentStatus   `db:"status"`
	CorrelationID *string         `db:"correlation_id"`
	PayerPhone    *string         `db:"payer_phone"`
	CardID        *uuid.UUID      `db:"card_id"`
}
