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

type RouteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Route, error)
}

type routeRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewRouteRepository(db database.Querier, log *zap.Logger) RouteRepository {
	return &routeRepository{
		db:  db,
		log: log.With(zap.String("repository", "route")),
	}
}

func (r *routeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Route, error) {
	query := `
		SELECT id, company_id, origin, destination, trip_kind, price_per_seat, discount_percent, status, created_at, updated_at
		FROM routes
		WHERE id = $1
	`

	var route entity.Route
	err := r.db.QueryRow(ctx, query, id).Scan(
		&route.ID,
		&route.CompanyID,
		&route.Origin,
		&route.Destination,
		&route.TripKind,
		&route.PricePerSeat,
		&route.DiscountPercent,
		&route.Status,
		&route.CreatedAt,
		&route.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find route by ID",
			zap.Error(err),
			zap.String("route_id", id.String()),
		)
		return nil, fmt.Errorf("find route by ID %s: %w", id.String(), err)
	}

	return &route, nil
}
