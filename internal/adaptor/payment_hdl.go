package adaptor

import (
	"net/http"

	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// InitiateMomo handles POST /api/payments/momo
func (h *PaymentHandler) InitiateMomo(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.InitiateMomoRequest
	if !decode(w, r, &req) {
		return
	}

	payment, err := h.service.InitiateMobileMoney(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "initiate mobile money payment")
		return
	}

	utils.ResponseJSON(w, http.StatusAccepted, true, "Payment initiated", response.PaymentToResponse(payment), nil)
}

// VerifyMomo handles POST /api/payments/momo/{correlationId}/verify
func (h *PaymentHandler) VerifyMomo(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.service.VerifyMobileMoney(r.Context(), actor, chi.URLParam(r, "correlationId"))
	if err != nil {
		handleServiceError(w, h.log, err, "verify mobile money payment")
		return
	}

	resp := response.VerificationResponse{
		Status:  string(result.Status),
		Payment: response.PaymentToResponse(result.Payment),
	}
	if result.Booking != nil {
		booking := response.BookingToResponse(result.Booking)
		resp.Booking = &booking
	}
	utils.ResponseSuccess(w, "success", resp)
}

// PayWithCard handles POST /api/payments/card
func (h *PaymentHandler) PayWithCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CardPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	booking, err := h.service.PayWithCard(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "pay with card")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	page := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	payments, total, err := h.service.ListForRider(r.Context(), actor, page)
	if err != nil {
		handleServiceError(w, h.log, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success",
		response.NewPaginatedResponse(response.PaymentsToResponse(payments), page.Page, page.Limit(), total))
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	paymentID, ok := pathUUID(r, "id")
	if !ok {
		utils.ResponseBadRequest(w, "Invalid payment ID", nil)
		return
	}

	payment, err := h.service.Get(r.Context(), actor, paymentID)
	if err != nil {
		handleServiceError(w, h.log, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentToResponse(payment))
}
