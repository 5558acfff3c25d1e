package repository

import (
	"context"
	"errors"
	"fmt"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Vehicle, error)
	// FindActiveForRoute returns the largest active vehicle of the route's company.
	FindActiveForRoute(ctx context.Context, routeID uuid.UUID) (*entity.Vehicle, error)
}

type vehicleRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewVehicleRepository(db database.Querier, log *zap.Logger) VehicleRepository {
	return &vehicleRepository{
		db:  db,
		log: log.With(zap.String("repository", "vehicle")),
	}
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Vehicle, error) {
	query := `
		SELECT id, company_id, plate_number, seat_capacity, status, created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`

	vehicle, err := scanVehicle(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find vehicle by ID",
			zap.Error(err),
			zap.String("vehicle_id", id.String()),
		)
		return nil, fmt.Errorf("find vehicle by ID %s: %w", id.String(), err)
	}

	return vehicle, nil
}

func (r *vehicleRepository) FindActiveForRoute(ctx context.Context, routeID uuid.UUID) (*entity.Vehicle, error) {
	query := `
		SELECT v.id, v.company_id, v.plate_number, v.seat_capacity, v.status, v.created_at, v.updated_at
		FROM vehicles v
		JOIN routes r ON r.company_id = v.company_id
		WHERE r.id = $1 AND v.status = 'active'
		ORDER BY v.seat_capacity DESC, v.id
		LIMIT 1
	`

	vehicle, err := scanVehicle(r.db.QueryRow(ctx, query, routeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active vehicle for route",
			zap.Error(err),
			zap.String("route_id", routeID.String()),
		)
		return nil, fmt.Errorf("find active vehicle for route %s: %w", routeID.String(), err)
	}

	return vehicle, nil
}

func scanVehicle(row pgx.Row) (*entity.Vehicle, error) {
	var vehicle entity.Vehicle
	err := row.Scan(
		&vehicle.ID,
		&vehicle.CompanyID,
		&vehicle.PlateNumber,
		&vehicle.SeatCapacity,
		&vehicle.Status,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}
