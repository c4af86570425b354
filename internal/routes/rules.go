package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/rules"
)

// RegisterRuleRoutes wires split rule endpoints.
func RegisterRuleRoutes(r fiber.Router, h *rules.Handler) {
	r.Post("/rules", h.Create)
	r.Get("/rules", h.List)
}
