package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type CardResponse struct {
	ID         string            `json:"id"`
	RiderID    string            `json:"rider_id"`
	CardNumber string            `json:"card_number"`
	Balance    string            `json:"balance"`
	Status     entity.CardStatus `json:"status"`
	LastUsedAt *time.Time        `json:"last_used_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type IssuedCardResponse struct {
	Card       CardResponse `json:"card"`
	Credential string       `json:"credential"`
}

type CardTransactionResponse struct {
	ID              string                     `json:"id"`
	CardID          string                     `json:"card_id"`
	Type            entity.CardTransactionType `json:"type"`
	Amount          string                     `json:"amount"`
	PreviousBalance string                     `json:"previous_balance"`
	NewBalance      string                     `json:"new_balance"`
	ReferenceID     *string                    `json:"reference_id,omitempty"`
	Description     string                     `json:"description"`
	CreatedAt       time.Time                  `json:"created_at"`
}

func CardToResponse(c *entity.Card) CardResponse {
	return CardResponse{
		ID:         c.ID.String(),
		RiderID:    c.RiderID.String(),
		CardNumber: c.CardNumber,
		Balance:    c.Balance.StringFixed(2),
		Status:     c.Status,
		LastUsedAt: c.LastUsedAt,
		CreatedAt:  c.CreatedAt,
	}
}

func CardsToResponse(cards []*entity.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, CardToResponse(c))
	}
	return out
}

func CardTransactionToResponse(t *entity.CardTransaction) CardTransactionResponse {
	return CardTransactionResponse{
		ID:              t.ID.String(),
		CardID:          t.CardID.String(),
		Type:            t.Type,
		Amount:          t.Amount.StringFixed(2),
		PreviousBalance: t.PreviousBalance.StringFixed(2),
		NewBalance:      t.NewBalance.StringFixed(2),
		ReferenceID:     t.ReferenceID,
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
	}
}

func CardTransactionsToResponse(txns []*entity.CardTransaction) []CardTransactionResponse {
	out := make([]CardTransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, CardTransactionToResponse(t))
	}
	return out
}
