package request

type TopUpRequest struct {
	Amount      string `json:"amount" validate:"required,numeric"`
	Reference   string `json:"reference" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=255"`
}

type UpdateCardStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active blocked"`
}
