package repository

import (
	"context"
	"fmt"
	"time"

	"transit-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryRepository exposes the seat aggregate for a (route, departure date)
// slot. LockSlot only has effect inside a transaction.
type InventoryRepository interface {
	LockSlot(ctx context.Context, routeID uuid.UUID, departureDate time.Time) error
	CommittedSeats(ctx context.Context, routeID uuid.UUID, departureDate time.Time, now time.Time) (int, error)
}

type inventoryRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewInventoryRepository(db database.Querier, log *zap.Logger) InventoryRepository {
	return &inventoryRepository{
		db:  db,
		log: log.With(zap.String("repository", "inventory")),
	}
}

// SlotKey identifies the advisory lock for a route and departure date.
func SlotKey(routeID uuid.UUID, departureDate time.Time) string {
	return routeID.String() + "|" + departureDate.Format(time.DateOnly)
}

func (r *inventoryRepository) LockSlot(ctx context.Context, routeID uuid.UUID, departureDate time.Time) error {
	key := SlotKey(routeID, departureDate)

	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		r.log.Error("Failed to lock inventory slot",
			zap.Error(err),
			zap.String("slot", key),
		)
		return fmt.Errorf("lock inventory slot %s: %w", key, err)
	}
	return nil
}

func (r *inventoryRepository) CommittedSeats(ctx context.Context, routeID uuid.UUID, departureDate time.Time, now time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(seat_count), 0)
		FROM bookings
		WHERE route_id = $1
		  AND departure_date = $2
		  AND (status IN ('confirmed', 'completed') OR (status = 'pending' AND expires_at > $3))
	`

	var committed int
	if err := r.db.QueryRow(ctx, query, routeID, departureDate, now).Scan(&committed); err != nil {
		r.log.Error("Failed to sum committed seats",
			zap.Error(err),
			zap.String("slot", SlotKey(routeID, departureDate)),
		)
		return 0, fmt.Errorf("sum committed seats %s: %w", SlotKey(routeID, departureDate), err)
	}
	return committed, nil
}
