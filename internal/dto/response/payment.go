package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Method        entity.PaymentMethod `json:"method"`
	Amount        string               `json:"amount"`
	Currency      string               `json:"currency"`
	Status        entity.PaymentStatus `json:"status"`
	CorrelationID *string              `json:"correlation_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type VerificationResponse struct {
	Status  string           `json:"status"`
	Payment PaymentResponse  `json:"payment"`
	Booking *BookingResponse `json:"booking,omitempty"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		BookingID:     p.BookingID.String(),
		Method:        p.Method,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		Status:        p.Status,
		CorrelationID: p.CorrelationID,
		CreatedAt:     p.CreatedAt,
	}
}

func PaymentsToResponse(payments []*entity.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentToResponse(p))
	}
	return out
}
