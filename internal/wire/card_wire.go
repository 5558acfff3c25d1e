package wire

import (
	"transit-booking/internal/adaptor"
	"transit-booking/pkg/middleware"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireCard(
	r chi.Router,
	cardHandler *adaptor.CardHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/cards", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT, log))

		r.Get("/", cardHandler.ListCards)
		r.Post("/", cardHandler.IssueCard)
		r.Get("/{id}", cardHandler.GetCard)
		r.Get("/{id}/transactions", cardHandler.ListTransactions)
		r.Put("/{id}/status", cardHandler.UpdateStatus)

		// top-ups are credited by the back office only
		r.With(middleware.RequireRole(log, utils.RoleAdmin)).Post("/{id}/topup", cardHandler.TopUp)
	})
}
