package rules

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/middleware"
)

// Handler exposes split rule endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name                string `json:"name"`
	Value               string `json:"value"`
	DestinationWalletID string `json:"destination_wallet_id"`
	Priority            int    `json:"priority"`
}

type ruleResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Value               string `json:"value"`
	DestinationWalletID string `json:"destination_wallet_id"`
	Priority            int    `json:"priority"`
	Active              bool   `json:"active"`
	CreatedAt           string `json:"created_at"`
}

func toResponse(r ledger.SplitRule) ruleResponse {
	return ruleResponse{
		ID:                  r.ID,
		Name:                r.Name,
		Type:                string(r.Type),
		Value:               r.Value.String(),
		DestinationWalletID: r.DestinationWalletID,
		Priority:            r.Priority,
		Active:              r.Active,
		CreatedAt:           r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create adds a percentage rule for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "value must be a decimal percentage")
	}

	rule, err := h.service.Create(c.UserContext(), userID, CreateInput{
		Name:                req.Name,
		Value:               value,
		DestinationWalletID: req.DestinationWalletID,
		Priority:            req.Priority,
	})
	switch {
	case errors.Is(err, ErrPercentageExceeded), errors.Is(err, ErrInvalidValue):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "destination wallet not found")
	case err != nil:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(rule))
}

// List returns the authenticated user's rules.
func (h *Handler) List(c *fiber.Ctx) error {
	all, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]ruleResponse, 0, len(all))
	for _, r := range all {
		out = append(out, toResponse(r))
	}
	return c.Status(http.StatusOK).JSON(out)
}
