package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/auth"
)

// RegisterAuthRoutes wires registration and token endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, loginLimiter fiber.Handler) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", loginLimiter, h.Login)
	r.Post("/auth/refresh", h.Refresh)
}
