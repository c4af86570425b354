// Package webhook terminates the Paystack callback endpoint. The signature is
// checked over the raw body once, then events fan out: charges go to the
// deposit service, transfer verdicts to the payout service. Anything else is
// acknowledged and dropped so the provider stops retrying.
package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/deposit"
	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/payout"
	"github.com/flowsplit/flowsplit/internal/paystack"
)

type envelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// Handler dispatches verified provider events.
type Handler struct {
	deposits *deposit.Service
	payouts  *payout.Service
	secret   string
	logger   *slog.Logger
}

func NewHandler(deposits *deposit.Service, payouts *payout.Service, secret string, logger *slog.Logger) *Handler {
	return &Handler{deposits: deposits, payouts: payouts, secret: secret, logger: logger}
}

// Paystack handles POST callbacks from the provider.
func (h *Handler) Paystack(c *fiber.Ctx) error {
	body := c.Body()
	if !paystack.VerifySignature(body, c.Get("x-paystack-signature"), h.secret) {
		return fiber.NewError(http.StatusUnauthorized, "invalid webhook signature")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed webhook payload")
	}

	switch env.Event {
	case "charge.success":
		return h.handleCharge(c, env)
	case "transfer.success":
		return h.handleTransfer(c, env, true)
	case "transfer.failed", "transfer.reversed":
		return h.handleTransfer(c, env, false)
	default:
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ignored"})
	}
}

func (h *Handler) handleCharge(c *fiber.Ctx, env envelope) error {
	_, processed, err := h.deposits.Process(c.UserContext(), deposit.Input{
		Reference: env.Data.Reference,
		Amount:    env.Data.Amount,
		Currency:  env.Data.Currency,
		Email:     env.Data.Customer.Email,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			// Unknown customer email. Acknowledge so the provider stops
			// retrying; the charge stays visible on the provider side.
			h.logger.Warn("charge for unknown email", "reference", env.Data.Reference)
			return c.Status(http.StatusOK).JSON(fiber.Map{"status": "no_matching_user"})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !processed {
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "already_processed"})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "processed"})
}

func (h *Handler) handleTransfer(c *fiber.Ctx, env envelope, succeeded bool) error {
	_, err := h.payouts.Finalize(c.UserContext(), env.Data.Reference, succeeded)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			h.logger.Warn("transfer verdict for unknown payout", "reference", env.Data.Reference)
			return c.Status(http.StatusOK).JSON(fiber.Map{"status": "unknown_payout"})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "processed"})
}
