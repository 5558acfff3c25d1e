package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type BookingResponse struct {
	ID               string                      `json:"id"`
	BookingReference string                      `json:"booking_reference"`
	RouteID          string                      `json:"route_id"`
	VehicleID        string                      `json:"vehicle_id"`
	RiderID          string                      `json:"rider_id"`
	TripKind         entity.TripKind             `json:"trip_kind"`
	SeatCount        int                         `json:"seat_count"`
	PassengerNames   []string                    `json:"passenger_names"`
	DepartureDate    string                      `json:"departure_date"`
	DepartureAt      time.Time                   `json:"departure_at"`
	Subtotal         string                      `json:"subtotal"`
	Discount         string                      `json:"discount"`
	Tax              string                      `json:"tax"`
	TotalPrice       string                      `json:"total_price"`
	Status           entity.BookingStatus        `json:"status"`
	PaymentStatus    entity.BookingPaymentStatus `json:"payment_status"`
	PaymentMethod    *entity.PaymentMethod       `json:"payment_method,omitempty"`
	ExpiresAt        time.Time                   `json:"expires_at"`
	PaidAt           *time.Time                  `json:"paid_at,omitempty"`
	CancelledAt      *time.Time                  `json:"cancelled_at,omitempty"`
	CompletedAt      *time.Time                  `json:"completed_at,omitempty"`
	RefundAmount     string                      `json:"refund_amount,omitempty"`
	RefundPercent    int                         `json:"refund_percent,omitempty"`
	TicketCredential *string                     `json:"ticket_credential,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
}

type CancellationResponse struct {
	Booking       BookingResponse `json:"booking"`
	RefundAmount  string          `json:"refund_amount"`
	RefundPercent int             `json:"refund_percent"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID.String(),
		BookingReference: b.BookingReference,
		RouteID:          b.RouteID.String(),
		VehicleID:        b.VehicleID.String(),
		RiderID:          b.RiderID.String(),
		TripKind:         b.TripKind,
		SeatCount:        b.SeatCount,
		PassengerNames:   b.PassengerNames,
		DepartureDate:    b.DepartureDate.Format(time.DateOnly),
		DepartureAt:      b.DepartureAt,
		Subtotal:         b.Subtotal.StringFixed(2),
		Discount:         b.DiscountAmount.StringFixed(2),
		Tax:              b.TaxAmount.StringFixed(2),
		TotalPrice:       b.TotalPrice.StringFixed(2),
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		PaymentMethod:    b.PaymentMethod,
		ExpiresAt:        b.ExpiresAt,
		PaidAt:           b.PaidAt,
		CancelledAt:      b.CancelledAt,
		CompletedAt:      b.CompletedAt,
		TicketCredential: b.TicketCredential,
		CreatedAt:        b.CreatedAt,
	}
	if b.Status == entity.BookingStatusCancelled {
		resp.RefundAmount = b.RefundAmount.StringFixed(2)
		resp.RefundPercent = b.RefundPercent
	}
	return resp
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b))
	}
	return out
}
