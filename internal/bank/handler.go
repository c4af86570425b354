package bank

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/middleware"
	"github.com/flowsplit/flowsplit/internal/paystack"
)

// Handler exposes bank account linking.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addRequest struct {
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	Primary       bool   `json:"primary"`
}

type accountResponse struct {
	ID            string `json:"id"`
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	AccountType   string `json:"account_type,omitempty"`
	Verified      bool   `json:"verified"`
	Primary       bool   `json:"primary"`
	CreatedAt     string `json:"created_at"`
}

func toResponse(a ledger.BankAccount) accountResponse {
	return accountResponse{
		ID:            a.ID,
		BankName:      a.BankName,
		BankCode:      a.BankCode,
		AccountNumber: maskAccountNumber(a.AccountNumber),
		AccountName:   a.AccountName,
		AccountType:   a.AccountType,
		Verified:      a.Verified,
		Primary:       a.Primary,
		CreatedAt:     a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// maskAccountNumber keeps the last four digits visible.
func maskAccountNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	masked := make([]byte, len(n))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(n)-4:], n[len(n)-4:])
	return string(masked)
}

// Add verifies and links a bank account for the authenticated user.
func (h *Handler) Add(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Add(c.UserContext(), userID, AddInput{
		BankName:      req.BankName,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountType:   req.AccountType,
		Primary:       req.Primary,
	})
	switch {
	case errors.Is(err, ErrDuplicateAccount):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, paystack.ErrProvider):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	case err != nil:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(account))
}

// List returns the authenticated user's linked accounts.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.Status(http.StatusOK).JSON(out)
}
