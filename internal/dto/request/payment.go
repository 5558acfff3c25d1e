package request

type InitiateMomoRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Phone     string `json:"phone" validate:"required,min=9,max=16"`
}

type CardPaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	CardID    string `json:"card_id" validate:"required,uuid"`
}
