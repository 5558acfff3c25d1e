package request

type CreateBookingRequest struct {
	RouteID        string   `json:"route_id" validate:"required,uuid"`
	DepartureDate  string   `json:"departure_date" validate:"required,datetime=2006-01-02"`
	DepartureTime  string   `json:"departure_time,omitempty" validate:"omitempty,datetime=15:04"`
	SeatCount      int      `json:"seat_count" validate:"required,min=1,max=8"`
	PassengerNames []string `json:"passenger_names" validate:"required,min=1,max=8,dive,required,max=120"`
	ContactEmail   string   `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone   string   `json:"contact_phone,omitempty" validate:"omitempty,max=20"`

	// Set from the Idempotency-Key header.
	IdempotencyKey string `json:"-" validate:"omitempty,max=128"`
}

// ConfirmBookingRequest is the admin manual confirmation body.
type ConfirmBookingRequest struct {
	Reference string `json:"reference" validate:"required,max=100"`
	Amount    string `json:"amount" validate:"required,numeric"`
}
