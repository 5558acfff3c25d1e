package adaptor

import (
	"net/http"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

type CardHandler struct {
	service usecase.CardService
	log     *zap.Logger
}

func NewCardHandler(service usecase.CardService, log *zap.Logger) *CardHandler {
	return &CardHandler{
		service: service,
		log:     log.With(zap.String("handler", "card")),
	}
}

// IssueCard handles POST /api/cards
func (h *CardHandler) IssueCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	issued, err := h.service.Issue(r.Context(), actor)
	if err != nil {
		handleServiceError(w, h.log, err, "issue card")
		return
	}

	utils.ResponseCreated(w, "success", response.IssuedCardResponse{
		Card:       response.CardToResponse(issued.Card),
		Credential: issued.Credential,
	})
}

// ListCards handles GET /api/cards
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	cards, err := h.service.ListForRider(r.Context(), actor)
	if err != nil {
		handleServiceError(w, h.log, err, "list cards")
		return
	}

	utils.ResponseSuccess(w, "success", response.CardsToResponse(cards))
}

// GetCard handles GET /api/cards/{id}
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	cardID, ok := pathUUID(r, "id")
	if !ok {
		utils.ResponseBadRequest(w, "Invalid card ID", nil)
		return
	}

	card, err := h.service.Get(r.Context(), actor, cardID)
	if err != nil {
		handleServiceError(w, h.log, err, "get card")
		return
	}

	utils.ResponseSuccess(w, "success", response.CardToResponse(card))
}

// TopUp handles POST /api/cards/{id}/topup
func (h *CardHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	cardID, ok := pathUUID(r, "id")
	if !ok {
		utils.ResponseBadRequest(w, "Invalid card ID", nil)
		return
	}

	var req request.TopUpRequest
	if !decode(w, r, &req) {
		return
	}

	txn, err := h.service.TopUp(r.Context(), actor, cardID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "top up card")
		return
	}

	utils.ResponseSuccess(w, "success", response.CardTransactionToResponse(txn))
}

// ListTransactions handles GET /api/cards/{id}/transactions
func (h *CardHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	cardID, ok := pathUUID(r, "id")
	if !ok {
		utils.ResponseBadRequest(w, "Invalid card ID", nil)
		return
	}

	query := r.URL.Query()
	page := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 20),
	}

	txns, total, err := h.service.Transactions(r.Context(), actor, cardID, page)
	if err != nil {
		handleServiceError(w, h.log, err, "list card transactions")
		return
	}

	utils.ResponseSuccess(w, "success",
		response.NewPaginatedResponse(response.CardTransactionsToResponse(txns), page.Page, page.Limit(), total))
}

// UpdateStatus handles PUT /api/cards/{id}/status
func (h *CardHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	cardID, ok := pathUUID(r, "id")
	if !ok {
		utils.ResponseBadRequest(w, "Invalid card ID", nil)
		return
	}

	var req request.UpdateCardStatusRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", errs)
		return
	}

	card, err := h.service.SetStatus(r.Context(), actor, cardID, entity.CardStatus(req.Status))
	if err != nil {
		handleServiceError(w, h.log, err, "update card status")
		return
	}

	utils.ResponseSuccess(w, "success", response.CardToResponse(card))
}
