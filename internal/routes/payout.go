package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/payout"
)

// RegisterPayoutRoutes wires payout endpoints.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler) {
	r.Post("/payouts", h.Initiate)
	r.Get("/payouts", h.List)
	r.Get("/payouts/:reference", h.Get)
}
