package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TripKind string

const (
	TripKindLongDistance TripKind = "long_distance"
	TripKindShortTrip    TripKind = "short_trip"
)

type RouteStatus string

const (
	RouteStatusActive   RouteStatus = "active"
	RouteStatusInactive RouteStatus = "inactive"
)

type Route struct {
	Base
	CompanyID       uuid.UUID       `db:"company_id"`
	Origin          string          `db:"origin"`
	Destination     string          `db:"destination"`
	TripKind        TripKind        `db:"trip_kind"`
	PricePerSeat    decimal.Decimal `db:"price_per_seat"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	Status          RouteStatus     `db:"status"`
}

func (r *Route) IsActive() bool {
	return r.Status == RouteStatusActive
}
