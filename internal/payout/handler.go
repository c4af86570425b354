package payout

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/middleware"
	"github.com/flowsplit/flowsplit/internal/paystack"
)

// Handler exposes payout initiation and lookup.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	SourceWalletID string `json:"source_wallet_id"`
	BankAccountID  string `json:"bank_account_id"`
	Amount         int64  `json:"amount"`
	Reference      string `json:"reference"`
}

type payoutResponse struct {
	ID                string `json:"id"`
	SourceWalletID    string `json:"source_wallet_id"`
	BankAccountID     string `json:"bank_account_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Reference         string `json:"reference"`
	Status            string `json:"status"`
	ProviderReference string `json:"provider_reference,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// Initiate starts a payout for the authenticated user.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	p, err := h.service.Initiate(c.UserContext(), userID, Input{
		SourceWalletID: req.SourceWalletID,
		BankAccountID:  req.BankAccountID,
		Amount:         req.Amount,
		Reference:      req.Reference,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrUnverifiedAccount), errors.Is(err, ErrInvalidDestination):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrDuplicateReference):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, paystack.ErrProvider):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(p))
}

// Get returns one payout by reference.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	p, err := h.service.Get(c.UserContext(), userID, c.Params("reference"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(p))
}

// List returns the authenticated user's payouts.
func (h *Handler) List(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	payouts, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, toResponse(p))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func toResponse(p ledger.Payout) payoutResponse {
	return payoutResponse{
		ID:                p.ID,
		SourceWalletID:    p.SourceWalletID,
		BankAccountID:     p.DestinationBankID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Reference:         p.Reference,
		Status:            string(p.Status),
		ProviderReference: p.ProviderReference,
		CreatedAt:         p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
