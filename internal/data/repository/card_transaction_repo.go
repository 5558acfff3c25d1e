package repository

import (
	"context"
	"fmt"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CardTransactionRepository is append-only.
type CardTransactionRepository interface {
	Create(ctx context.Context, txn *entity.CardTransaction) error
	FindByCardID(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]*entity.CardTransaction, error)
	CountByCardID(ctx context.Context, cardID uuid.UUID) (int64, error)
}

type cardTransactionRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewCardTransactionRepository(db database.Querier, log *zap.Logger) CardTransactionRepository {
	return &cardTransactionRepository{
		db:  db,
		log: log.With(zap.String("repository", "card_transaction")),
	}
}

func (r *cardTransactionRepository) Create(ctx context.Context, txn *entity.CardTransaction) error {
	query := `
		INSERT INTO card_transactions (id, card_id, type, amount, previous_balance, new_balance, reference_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		txn.ID,
		txn.CardID,
		txn.Type,
		txn.Amount,
		txn.PreviousBalance,
		txn.NewBalance,
		txn.ReferenceID,
		txn.Description,
		txn.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create card transaction",
			zap.Error(err),
			zap.String("card_id", txn.CardID.String()),
			zap.String("type", string(txn.Type)),
		)
		return fmt.Errorf("create %s transaction for card %s: %w", txn.Type, txn.CardID.String(), err)
	}

	return nil
}

func (r *cardTransactionRepository) FindByCardID(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]*entity.CardTransaction, error) {
	query := `
		SELECT id, card_id, type, amount, previous_balance, new_balance, reference_id, description, created_at
		FROM card_transactions
		WHERE card_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, cardID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find card transactions",
			zap.Error(err),
			zap.String("card_id", cardID.String()),
		)
		return nil, fmt.Errorf("find transactions for card %s: %w", cardID.String(), err)
	}
	defer rows.Close()

	var txns []*entity.CardTransaction
	for rows.Next() {
		var txn entity.CardTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.CardID,
			&txn.Type,
			&txn.Amount,
			&txn.PreviousBalance,
			&txn.NewBalance,
			&txn.ReferenceID,
			&txn.Description,
			&txn.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan card transaction row", zap.Error(err))
			return nil, fmt.Errorf("scan card transaction row: %w", err)
		}
		txns = append(txns, &txn)
	}

	return txns, rows.Err()
}

func (r *cardTransactionRepository) CountByCardID(ctx context.Context, cardID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM card_transactions WHERE card_id = $1`, cardID).Scan(&count); err != nil {
		r.log.Error("Failed to count card transactions",
			zap.Error(err),
			zap.String("card_id", cardID.String()),
		)
		return 0, fmt.Errorf("count transactions for card %s: %w", cardID.String(), err)
	}
	return count, nil
}
