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

// Every state transition below is a conditional update; the bool result is
// false when the row was not in the required prior state.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByReference(ctx context.Context, reference string) (*entity.Booking, error)
	FindByRiderID(ctx context.Context, riderID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByRiderID(ctx context.Context, riderID uuid.UUID) (int64, error)

	Confirm(ctx context.Context, params ConfirmParams) (bool, error)
	Cancel(ctx context.Context, params CancelParams) (bool, error)
	MarkCompleted(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error)
	ExpirePending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type ConfirmParams struct {
	BookingID  uuid.UUID
	Method     entity.PaymentMethod
	Reference  string
	Credential string
	Now        time.Time
}

type CancelParams struct {
	BookingID     uuid.UUID
	FromStatus    entity.BookingStatus
	RefundAmount  decimal.Decimal
	RefundPercent int
	Now           time.Time
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `
	id, booking_reference, route_id, vehicle_id, rider_id, trip_kind, seat_count, passenger_names,
	departure_date, departure_at, subtotal, discount_amount, tax_amount, total_price,
	status, payment_status, payment_method, payment_reference, expires_at, paid_at,
	cancelled_at, completed_at, refund_amount, refund_percent, ticket_credential,
	contact_email, contact_phone, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.BookingReference,
		&b.RouteID,
		&b.VehicleID,
		&b.RiderID,
		&b.TripKind,
		&b.SeatCount,
		&b.PassengerNames,
		&b.DepartureDate,
		&b.DepartureAt,
		&b.Subtotal,
		&b.DiscountAmount,
		&b.TaxAmount,
		&b.TotalPrice,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentMethod,
		&b.PaymentReference,
		&b.ExpiresAt,
		&b.PaidAt,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.RefundAmount,
		&b.RefundPercent,
		&b.TicketCredential,
		&b.ContactEmail,
		&b.ContactPhone,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	query := `
		INSERT INTO bookings (
			id, booking_reference, route_id, vehicle_id, rider_id, trip_kind, seat_count, passenger_names,
			departure_date, departure_at, subtotal, discount_amount, tax_amount, total_price,
			status, payment_status, expires_at, contact_email, contact_phone, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.BookingReference,
		b.RouteID,
		b.VehicleID,
		b.RiderID,
		b.TripKind,
		b.SeatCount,
		b.PassengerNames,
		b.DepartureDate,
		b.DepartureAt,
		b.Subtotal,
		b.DiscountAmount,
		b.TaxAmount,
		b.TotalPrice,
		b.Status,
		b.PaymentStatus,
		b.ExpiresAt,
		b.ContactEmail,
		b.ContactPhone,
		b.CreatedAt,
		b.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_reference", b.BookingReference),
			zap.String("rider_id", b.RiderID.String()),
		)
		return fmt.Errorf("create booking %s: %w", b.BookingReference, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by reference",
			zap.Error(err),
			zap.String("booking_reference", reference),
		)
		return nil, fmt.Errorf("find booking by reference %s: %w", reference, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByRiderID(ctx context.Context, riderID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE rider_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, riderID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by rider ID",
			zap.Error(err),
			zap.String("rider_id", riderID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by rider ID %s: %w", riderID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) CountByRiderID(ctx context.Context, riderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE rider_id = $1`, riderID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by rider ID",
			zap.Error(err),
			zap.String("rider_id", riderID.String()),
		)
		return 0, fmt.Errorf("count bookings by rider ID %s: %w", riderID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) Confirm(ctx context.Context, p ConfirmParams) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'paid', payment_method = $2, payment_reference = $3,
		    ticket_credential = $4, paid_at = $5, updated_at = $5
		WHERE id = $1 AND status = 'pending' AND expires_at > $5
	`

	result, err := r.db.Exec(ctx, query, p.BookingID, p.Method, p.Reference, p.Credential, p.Now)
	if err != nil {
		r.log.Error("Failed to confirm booking",
			zap.Error(err),
			zap.String("booking_id", p.BookingID.String()),
		)
		return false, fmt.Errorf("confirm booking %s: %w", p.BookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, p CancelParams) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled',
		    payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END,
		    refund_amount = $3, refund_percent = $4, cancelled_at = $5, updated_at = $5
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, p.BookingID, p.FromStatus, p.RefundAmount, p.RefundPercent, p.Now)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", p.BookingID.String()),
		)
		return false, fmt.Errorf("cancel booking %s: %w", p.BookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) MarkCompleted(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'confirmed'
	`

	result, err := r.db.Exec(ctx, query, bookingID, now)
	if err != nil {
		r.log.Error("Failed to mark booking completed",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("mark booking %s completed: %w", bookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'failed', updated_at = $2
		WHERE id = $1 AND status = 'pending' AND payment_status IN ('unpaid', 'failed')
	`

	result, err := r.db.Exec(ctx, query, bookingID, now)
	if err != nil {
		r.log.Error("Failed to mark booking payment failed",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("mark booking %s payment failed: %w", bookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) ExpirePending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE bookings
		SET status = 'expired', updated_at = $1
		WHERE id IN (
			SELECT id FROM bookings
			WHERE status = 'pending' AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AND status = 'pending'
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to expire pending bookings", zap.Error(err))
		return nil, fmt.Errorf("expire pending bookings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired booking id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
