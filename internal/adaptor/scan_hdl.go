package adaptor

import (
	"net/http"

	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ScanHandler struct {
	service usecase.RedemptionService
	log     *zap.Logger
}

func NewScanHandler(service usecase.RedemptionService, log *zap.Logger) *ScanHandler {
	return &ScanHandler{
		service: service,
		log:     log.With(zap.String("handler", "scan")),
	}
}

// Scan handles POST /api/scans (driver)
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	scannerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ScanRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", errs)
		return
	}

	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid vehicle ID", nil)
		return
	}
	in := usecase.RedeemInput{
		Credential: req.Credential,
		ScannerID:  scannerID,
		VehicleID:  vehicleID,
	}
	if req.RouteID != "" {
		routeID, err := uuid.Parse(req.RouteID)
		if err != nil {
			utils.ResponseBadRequest(w, "Invalid route ID", nil)
			return
		}
		in.RouteID = &routeID
	}

	result, err := h.service.Redeem(r.Context(), in)
	if err != nil {
		handleServiceError(w, h.log, err, "redeem ticket")
		return
	}

	resp := response.RedemptionResponse{Scan: response.ScanToResponse(result.Scan)}
	if result.Booking != nil {
		booking := response.BookingToResponse(result.Booking)
		resp.Booking = &booking
	}
	if result.Fare != nil {
		resp.Fare = result.Fare.Total.StringFixed(2)
		resp.Balance = result.Balance.StringFixed(2)
	}
	utils.ResponseSuccess(w, "success", resp)
}

// ScanHistory handles GET /api/admin/scans
func (h *ScanHandler) ScanHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := request.ScanHistoryRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 20),
		},
		VehicleID: query.Get("vehicle_id"),
		ScannerID: query.Get("scanner_id"),
		BookingID: query.Get("booking_id"),
	}

	scans, total, err := h.service.ScanHistory(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "list scans")
		return
	}

	utils.ResponseSuccess(w, "success",
		response.NewPaginatedResponse(response.ScansToResponse(scans), req.Page, req.Limit(), total))
}
