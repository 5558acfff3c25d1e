package entity

import "github.com/google/uuid"

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusInactive    VehicleStatus = "inactive"
)

type Vehicle struct {
	Base
	CompanyID    uuid.UUID     `db:"company_id"`
	PlateNumber  string        `db:"plate_number"`
	SeatCapacity int           `db:"seat_capacity"`
	Status       VehicleStatus `db:"status"`
}
