package entity

import (
	"time"

	"github.com/google/uuid"
)

type ScanType string

const (
	ScanTypeBoarding ScanType = "boarding"
	ScanTypeCardFare ScanType = "card_fare"
)

type ScanOutcome string

const (
	ScanOutcomeSuccess             ScanOutcome = "success"
	ScanOutcomeAlreadyUsed         ScanOutcome = "already_used"
	ScanOutcomeExpired             ScanOutcome = "expired"
	ScanOutcomeInvalid             ScanOutcome = "invalid"
	ScanOutcomeInsufficientBalance ScanOutcome = "insufficient_balance"
)

// TicketScan is written once per redemption attempt and never updated.
type TicketScan struct {
	BaseSimple
	BookingID *uuid.UUID  `db:"booking_id"`
	CardID    *uuid.UUID  `db:"card_id"`
	ScannerID uuid.UUID   `db:"scanner_id"`
	VehicleID *uuid.UUID  `db:"vehicle_id"`
	RouteID   *uuid.UUID  `db:"route_id"`
	ScanType  ScanType    `db:"scan_type"`
	Outcome   ScanOutcome `db:"outcome"`
	Notes     string      `db:"notes"`
	ScannedAt time.Time   `db:"scanned_at"`
}
