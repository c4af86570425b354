package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service    *Service
	reconciler *ledger.Reconciler
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, reconciler *ledger.Reconciler) *Handler {
	return &Handler{service: service, reconciler: reconciler}
}

type createRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

type walletResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
}

func toResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		Name:      w.Name,
		Type:      string(w.Type),
		Currency:  w.Currency,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create provisions a wallet for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), userID, CreateInput{
		Name:     req.Name,
		Type:     ledger.WalletType(req.Type),
		Currency: req.Currency,
	})
	if errors.Is(err, ErrNameTaken) {
		return fiber.NewError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// List returns the authenticated user's wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	wallets, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toResponse(w))
	}
	return c.JSON(out)
}

// Get returns one wallet the user owns.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), middleware.UserID(c), c.Params("walletId"))
	if errors.Is(err, ledger.ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(toResponse(w))
}

type transferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       int64  `json:"amount"`
}

// Transfer rebalances funds between two of the user's wallets.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	err := h.service.Transfer(c.UserContext(), middleware.UserID(c), TransferInput{
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		Amount:       req.Amount,
	})
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "completed"})
}

// Reconcile reports whether the wallet's cached balance matches its ledger.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	if _, err := h.service.Get(c.UserContext(), middleware.UserID(c), c.Params("walletId")); err != nil {
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	}
	result, err := h.reconciler.CheckBalance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(result)
}
