package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CardRepository interface {
	Create(ctx context.Context, card *entity.Card) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Card, error)
	FindByRiderID(ctx context.Context, riderID uuid.UUID) ([]*entity.Card, error)
	// ApplyDelta adds delta to an active card's balance only if the result stays
	// non-negative. ok is false when no row qualified.
	ApplyDelta(ctx context.Context, p BalanceDelta) (result BalanceChange, ok bool, err error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CardStatus, now time.Time) (bool, error)
}

type BalanceDelta struct {
	CardID  uuid.UUID
	Delta   decimal.Decimal
	RouteID *uuid.UUID
	Now     time.Time
}

type BalanceChange struct {
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

type cardRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewCardRepository(db database.Querier, log *zap.Logger) CardRepository {
	return &cardRepository{
		db:  db,
		log: log.With(zap.String("repository", "card")),
	}
}

func (r *cardRepository) Create(ctx context.Context, card *entity.Card) error {
	query := `
		INSERT INTO cards (id, rider_id, card_number, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		card.ID,
		card.RiderID,
		card.CardNumber,
		card.Balance,
		card.Status,
		card.CreatedAt,
		card.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create card",
			zap.Error(err),
			zap.String("rider_id", card.RiderID.String()),
		)
		return fmt.Errorf("create card for rider %s: %w", card.RiderID.String(), err)
	}

	return nil
}

func (r *cardRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Card, error) {
	query := `
		SELECT id, rider_id, card_number, balance, status, last_used_at, last_used_route_id, created_at, updated_at
		FROM cards
		WHERE id = $1
	`

	var card entity.Card
	err := r.db.QueryRow(ctx, query, id).Scan(
		&card.ID,
		&card.RiderID,
		&card.CardNumber,
		&card.Balance,
		&card.Status,
		&card.LastUsedAt,
		&card.LastUsedRouteID,
		&card.CreatedAt,
		&card.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find card by ID",
			zap.Error(err),
			zap.String("card_id", id.String()),
		)
		return nil, fmt.Errorf("find card by ID %s: %w", id.String(), err)
	}

	return &card, nil
}

func (r *cardRepository) FindByRiderID(ctx context.Context, riderID uuid.UUID) ([]*entity.Card, error) {
	query := `
		SELECT id, rider_id, card_number, balance, status, last_used_at, last_used_route_id, created_at, updated_at
		FROM cards
		WHERE rider_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, riderID)
	if err != nil {
		r.log.Error("Failed to find cards by rider",
			zap.Error(err),
			zap.String("rider_id", riderID.String()),
		)
		return nil, fmt.Errorf("find cards for rider %s: %w", riderID.String(), err)
	}
	defer rows.Close()

	var cards []*entity.Card
	for rows.Next() {
		var card entity.Card
		err := rows.Scan(
			&card.ID,
			&card.RiderID,
			&card.CardNumber,
			&card.Balance,
			&card.Status,
			&card.LastUsedAt,
			&card.LastUsedRouteID,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan card row", zap.Error(err))
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, &card)
	}

	return cards, rows.Err()
}

func (r *cardRepository) ApplyDelta(ctx context.Context, p BalanceDelta) (BalanceChange, bool, error) {
	query := `
		UPDATE cards
		SET balance = balance + $2,
		    last_used_at = CASE WHEN $2 < 0 THEN $3 ELSE last_used_at END,
		    last_used_route_id = COALESCE($4, last_used_route_id),
		    updated_at = $3
		WHERE id = $1 AND status = 'active' AND balance + $2 >= 0
		RETURNING balance - $2, balance
	`

	var change BalanceChange
	err := r.db.QueryRow(ctx, query, p.CardID, p.Delta, p.Now, p.RouteID).Scan(
		&change.PreviousBalance,
		&change.NewBalance,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return BalanceChange{}, false, nil
	}
	if err != nil {
		r.log.Error("Failed to apply card balance delta",
			zap.Error(err),
			zap.String("card_id", p.CardID.String()),
			zap.String("delta", p.Delta.String()),
		)
		return BalanceChange{}, false, fmt.Errorf("apply balance delta to card %s: %w", p.CardID.String(), err)
	}

	return change, true, nil
}

func (r *cardRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CardStatus, now time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `UPDATE cards SET status = $2, updated_at = $3 WHERE id = $1`, id, status, now)
	if err != nil {
		r.log.Error("Failed to update card status",
			zap.Error(err),
			zap.String("card_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("update card %s status to %s: %w", id.String(), string(status), err)
	}

	return result.RowsAffected() == 1, nil
}
