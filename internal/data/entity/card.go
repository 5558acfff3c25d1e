package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CardStatus string

const (
	CardStatusActive  CardStatus = "active"
	CardStatusBlocked CardStatus = "blocked"
)

type Card struct {
	Base
	RiderID         uuid.UUID       `db:"rider_id"`
	CardNumber      string          `db:"card_number"`
	Balance         decimal.Decimal `db:"balance"`
	Status          CardStatus      `db:"status"`
	LastUsedAt      *time.Time      `db:"last_used_at"`
	LastUsedRouteID *uuid.UUID      `db:"last_used_route_id"`
}

type CardTransactionType string

const (
	CardTransactionCredit CardTransactionType = "credit"
	CardTransactionDebit  CardTransactionType = "debit"
)

// CardTransaction is an immutable ledger row.
type CardTransaction struct {
	BaseSimple
	CardID          uuid.UUID           `db:"card_id"`
	Type            CardTransactionType `db:"type"`
	Amount          decimal.Decimal     `db:"amount"`
	PreviousBalance decimal.Decimal     `db:"previous_balance"`
	NewBalance      decimal.Decimal     `db:"new_balance"`
	ReferenceID     *string             `db:"reference_id"`
	Description     string              `db:"description"`
}
