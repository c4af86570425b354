package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/deposit"
)

// RegisterTransactionRoutes wires transaction history endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *deposit.Handler) {
	r.Get("/transactions", h.History)
}
