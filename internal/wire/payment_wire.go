package wire

import (
	"transit-booking/internal/adaptor"
	"transit-booking/pkg/middleware"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT, log))

		r.Get("/", paymentHandler.ListPayments)
		r.Get("/{id}", paymentHandler.GetPayment)
		r.Post("/momo", paymentHandler.InitiateMomo)
		r.Post("/momo/{correlationId}/verify", paymentHandler.VerifyMomo)
		r.Post("/card", paymentHandler.PayWithCard)
	})
}
