package usecase

import (
	"context"
	"errors"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/pkg/metrics"
	"transit-booking/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ReservationRequest struct {
	RouteID       uuid.UUID
	DepartureDate time.Time
	Seats         int
}

// Reservation is the admitted request, valid only inside the transaction
// that produced it.
type Reservation struct {
	Route         *entity.Route
	Vehicle       *entity.Vehicle
	DepartureDate time.Time
	Seats         int
	Remaining     int
}

type Availability struct {
	RouteID       uuid.UUID `json:"route_id"`
	DepartureDate time.Time `json:"departure_date"`
	Capacity      int       `json:"capacity"`
	Committed     int       `json:"committed"`
	Remaining     int       `json:"remaining"`
}

// HoldFunc persists the hold for an admitted reservation. It runs inside
// the slot lock, so whatever it writes counts against capacity before the
// next reservation for the same slot is evaluated.
type HoldFunc func(ctx context.Context, tx *repository.Repository, res *Reservation) error

type InventoryService interface {
	TryReserve(ctx context.Context, req ReservationRequest, hold HoldFunc) (*Reservation, error)
	Availability(ctx context.Context, routeID uuid.UUID, departureDate time.Time) (*Availability, error)
}

type inventoryService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func newInventoryService(repo *repository.Repository, now func() time.Time, log *zap.Logger) *inventoryService {
	return &inventoryService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "inventory")),
	}
}

func (s *inventoryService) resolve(ctx context.Context, routeID uuid.UUID) (*entity.Route, *entity.Vehicle, error) {
	route, err := s.repo.Route.FindByID(ctx, routeID)
	if err != nil {
		return nil, nil, infra("find route", err)
	}
	if route == nil {
		return nil, nil, routeNotFound(routeID)
	}
	if !route.IsActive() {
		return nil, nil, ErrRouteInactive
	}

	vehicle, err := s.repo.Vehicle.FindActiveForRoute(ctx, routeID)
	if err != nil {
		return nil, nil, infra("find vehicle for route", err)
	}
	if vehicle == nil {
		return nil, nil, ErrNoVehicleAvailable
	}
	return route, vehicle, nil
}

func (s *inventoryService) TryReserve(ctx context.Context, req ReservationRequest, hold HoldFunc) (res *Reservation, err error) {
	ctx, span := telemetry.StartSpan(ctx, "inventory.TryReserve",
		attribute.String("route_id", req.RouteID.String()),
		attribute.Int("seats", req.Seats),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if req.Seats < 1 {
		return nil, invalid("seat_count", "must be at least 1")
	}

	route, vehicle, err := s.resolve(ctx, req.RouteID)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	start := time.Now()
	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		if err := tx.Inventory.LockSlot(ctx, req.RouteID, req.DepartureDate); err != nil {
			return infra("lock inventory slot", err)
		}

		committed, err := tx.Inventory.CommittedSeats(ctx, req.RouteID, req.DepartureDate, s.now())
		if err != nil {
			return infra("sum committed seats", err)
		}

		remaining := max(vehicle.SeatCapacity-committed, 0)
		if req.Seats > remaining {
			return &CapacityExceededError{Requested: req.Seats, Remaining: remaining}
		}

		res = &Reservation{
			Route:         route,
			Vehicle:       vehicle,
			DepartureDate: req.DepartureDate,
			Seats:         req.Seats,
			Remaining:     remaining - req.Seats,
		}
		if hold == nil {
			return nil
		}
		return hold(ctx, tx, res)
	})
	metrics.ReserveLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.reject(err)
		return nil, classify("reserve seats", err)
	}

	s.log.Info("Seats reserved",
		zap.String("route_id", req.RouteID.String()),
		zap.String("departure_date", req.DepartureDate.Format(time.DateOnly)),
		zap.Int("seats", req.Seats),
		zap.Int("remaining", res.Remaining),
	)
	return res, nil
}

func (s *inventoryService) reject(err error) {
	var capacity *CapacityExceededError
	switch {
	case errors.As(err, &capacity):
		metrics.ReservationsRejected.WithLabelValues("capacity").Inc()
		s.log.Warn("Reservation rejected, capacity exceeded",
			zap.Int("requested", capacity.Requested),
			zap.Int("remaining", capacity.Remaining),
		)
	case errors.Is(err, ErrRouteInactive):
		metrics.ReservationsRejected.WithLabelValues("route_inactive").Inc()
	case errors.Is(err, ErrNoVehicleAvailable):
		metrics.ReservationsRejected.WithLabelValues("no_vehicle").Inc()
	}
}

func (s *inventoryService) Availability(ctx context.Context, routeID uuid.UUID, departureDate time.Time) (*Availability, error) {
	_, vehicle, err := s.resolve(ctx, routeID)
	if err != nil {
		return nil, err
	}

	committed, err := s.repo.Inventory.CommittedSeats(ctx, routeID, departureDate, s.now())
	if err != nil {
		return nil, infra("sum committed seats", err)
	}

	return &Availability{
		RouteID:       routeID,
		DepartureDate: departureDate,
		Capacity:      vehicle.SeatCapacity,
		Committed:     committed,
		Remaining:     max(vehicle.SeatCapacity-committed, 0),
	}, nil
}
