package wire

import (
	"transit-booking/internal/adaptor"
	"transit-booking/pkg/middleware"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== AUTHENTICATED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT, log))

		r.Post("/api/bookings", bookingHandler.CreateBooking)
		r.Get("/api/bookings", bookingHandler.ListBookings)
		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)
		r.Get("/api/bookings/reference/{reference}", bookingHandler.GetBookingByReference)
		r.Post("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)

		r.Get("/api/routes/{id}/availability", bookingHandler.GetAvailability)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/bookings", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT, log))
		r.Use(middleware.RequireRole(log, utils.RoleAdmin))

		// POST /api/admin/bookings/{id}/confirm - manual payment confirmation
		r.Post("/{id}/confirm", bookingHandler.ConfirmBooking)
	})
}
