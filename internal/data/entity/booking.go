package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

type BookingPaymentStatus string

const (
	BookingPaymentUnpaid   BookingPaymentStatus = "unpaid"
	BookingPaymentPaid     BookingPaymentStatus = "paid"
	BookingPaymentRefunded BookingPaymentStatus = "refunded"
	BookingPaymentFailed   BookingPaymentStatus = "failed"
)

type Booking struct {
	Base
	BookingReference string               `db:"booking_reference"`
	RouteID          uuid.UUID            `db:"route_id"`
	VehicleID        uuid.UUID            `db:"vehicle_id"`
	RiderID          uuid.UUID            `db:"rider_id"`
	TripKind         TripKind             `db:"trip_kind"`
	SeatCount        int                  `db:"seat_count"`
	PassengerNames   []string             `db:"passenger_names"`
	DepartureDate    time.Time            `db:"departure_date"`
	DepartureAt      time.Time            `db:"departure_at"`
	Subtotal         decimal.Decimal      `db:"subtotal"`
	DiscountAmount   decimal.Decimal      `db:"discount_amount"`
	TaxAmount        decimal.Decimal      `db:"tax_amount"`
	TotalPrice       decimal.Decimal      `db:"total_price"`
	Status           BookingStatus        `db:"status"`
	PaymentStatus    BookingPaymentStatus `db:"payment_status"`
	PaymentMethod    *PaymentMethod       `db:"payment_method"`
	PaymentReference *string              `db:"payment_reference"`
	ExpiresAt        time.Time            `db:"expires_at"`
	PaidAt           *time.Time           `db:"paid_at"`
	CancelledAt      *time.Time           `db:"cancelled_at"`
	CompletedAt      *time.Time           `db:"completed_at"`
	RefundAmount     decimal.Decimal      `db:"refund_amount"`
	RefundPercent    int                  `db:"refund_percent"`
	TicketCredential *string              `db:"ticket_credential"`
	ContactEmail     string               `db:"contact_email"`
	ContactPhone     string               `db:"contact_phone"`
}

// HoldExpired reports whether a pending booking has outlived its reservation window.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusPending && !now.Before(b.ExpiresAt)
}

// HoldsSeats reports whether the booking counts toward route capacity at now.
func (b *Booking) HoldsSeats(now time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed, BookingStatusCompleted:
		return true
	case BookingStatusPending:
		return now.Before(b.ExpiresAt)
	default:
		return false
	}
}
