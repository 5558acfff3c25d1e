package request

type ScanRequest struct {
	Credential string `json:"credential" validate:"required,max=4096"`
	VehicleID  string `json:"vehicle_id" validate:"required,uuid"`
	RouteID    string `json:"route_id,omitempty" validate:"omitempty,uuid"`
}

type ScanHistoryRequest struct {
	PaginatedRequest
	VehicleID string `json:"vehicle_id" validate:"omitempty,uuid"`
	ScannerID string `json:"scanner_id" validate:"omitempty,uuid"`
	BookingID string `json:"booking_id" validate:"omitempty,uuid"`
}
