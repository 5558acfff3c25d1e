package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type ScanResponse struct {
	ID        string             `json:"id"`
	BookingID *string            `json:"booking_id,omitempty"`
	CardID    *string            `json:"card_id,omitempty"`
	ScannerID string             `json:"scanner_id"`
	VehicleID *string            `json:"vehicle_id,omitempty"`
	ScanType  entity.ScanType    `json:"scan_type"`
	Outcome   entity.ScanOutcome `json:"outcome"`
	Notes     string             `json:"notes,omitempty"`
	ScannedAt time.Time          `json:"scanned_at"`
}

type RedemptionResponse struct {
	Scan    ScanResponse     `json:"scan"`
	Booking *BookingResponse `json:"booking,omitempty"`
	Fare    string           `json:"fare,omitempty"`
	Balance string           `json:"balance,omitempty"`
}

func ScanToResponse(s *entity.TicketScan) ScanResponse {
	resp := ScanResponse{
		ID:        s.ID.String(),
		ScannerID: s.ScannerID.String(),
		ScanType:  s.ScanType,
		Outcome:   s.Outcome,
		Notes:     s.Notes,
		ScannedAt: s.ScannedAt,
	}
	if s.BookingID != nil {
		id := s.BookingID.String()
		resp.BookingID = &id
	}
	if s.CardID != nil {
		id := s.CardID.String()
		resp.CardID = &id
	}
	if s.VehicleID != nil {
		id := s.VehicleID.String()
		resp.VehicleID = &id
	}
	return resp
}

func ScansToResponse(scans []*entity.TicketScan) []ScanResponse {
	out := make([]ScanResponse, 0, len(scans))
	for _, s := range scans {
		out = append(out, ScanToResponse(s))
	}
	return out
}
