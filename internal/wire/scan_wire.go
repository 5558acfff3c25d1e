package wire

import (
	"transit-booking/internal/adaptor"
	"transit-booking/pkg/middleware"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireScan(
	r chi.Router,
	scanHandler *adaptor.ScanHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== DRIVER ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT, log))
		r.Use(middleware.RequireRole(log, utils.RoleDriver))

		r.Post("/api/scans", scanHandler.Scan)
	})

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT, log))
		r.Use(middleware.RequireRole(log, utils.RoleAdmin))

		r.Get("/api/admin/scans", scanHandler.ScanHistory)
	})
}
