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
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*entity.Payment, error)
	// FindByRiderID lists payments on the rider's bookings, newest first.
	FindByRiderID(ctx context.Context, riderID uuid.UUID, limit, offset int) ([]*entity.Payment, error)
	CountByRiderID(ctx context.Context, riderID uuid.UUID) (int64, error)
	// FindLatestByBookingID returns the newest payment of the booking in status.
	FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID, status entity.PaymentStatus) (*entity.Payment, error)
	// UpdateStatus moves a payment from one status to another; false when it was not in from.
	UpdateStatus(ctx context.Context, paymentID uuid.UUID, from, to entity.PaymentStatus, now time.Time) (bool, error)
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, method, amount, currency, status, correlation_id, payer_phone, card_id, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.Method,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.CorrelationID,
		&p.PayerPhone,
		&p.CardID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.BookingID,
		p.Method,
		p.Amount,
		p.Currency,
		p.Status,
		p.CorrelationID,
		p.PayerPhone,
		p.CardID,
		p.CreatedAt,
		p.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", p.BookingID.String()),
			zap.String("method", string(p.Method)),
		)
		return fmt.Errorf("create payment for booking %s: %w", p.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE correlation_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, correlationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by correlation ID",
			zap.Error(err),
			zap.String("correlation_id", correlationID),
		)
		return nil, fmt.Errorf("find payment by correlation ID %s: %w", correlationID, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID, status entity.PaymentStatus) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, bookingID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return nil, fmt.Errorf("find %s payment by booking ID %s: %w", string(status), bookingID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByRiderID(ctx context.Context, riderID uuid.UUID, limit, offset int) ([]*entity.Payment, error) {
	query := `SELECT p.id, p.booking_id, p.method, p.amount, p.currency, p.status, p.correlation_id, p.payer_phone, p.card_id, p.created_at, p.updated_at
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE b.rider_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, riderID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find payments by rider",
			zap.Error(err),
			zap.String("rider_id", riderID.String()),
		)
		return nil, fmt.Errorf("find payments for rider %s: %w", riderID.String(), err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) CountByRiderID(ctx context.Context, riderID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM payments p JOIN bookings b ON b.id = p.booking_id WHERE b.rider_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, riderID).Scan(&count); err != nil {
		r.log.Error("Failed to count payments by rider",
			zap.Error(err),
			zap.String("rider_id", riderID.String()),
		)
		return 0, fmt.Errorf("count payments for rider %s: %w", riderID.String(), err)
	}
	return count, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID uuid.UUID, from, to entity.PaymentStatus, now time.Time) (bool, error) {
	query := `UPDATE payments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, paymentID, from, to, now)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
			zap.String("status", string(to)),
		)
		return false, fmt.Errorf("update payment %s status to %s: %w", paymentID.String(), string(to), err)
	}

	return result.RowsAffected() == 1, nil
}
