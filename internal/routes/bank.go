package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/bank"
)

// RegisterBankRoutes wires bank account linking endpoints.
func RegisterBankRoutes(r fiber.Router, h *bank.Handler) {
	r.Post("/bank-accounts", h.Add)
	r.Get("/bank-accounts", h.List)
}
