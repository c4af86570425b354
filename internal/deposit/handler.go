package deposit

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/middleware"
)

// Handler exposes the user transaction history.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// History lists the authenticated user's transactions.
func (h *Handler) History(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	txs, err := h.service.History(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		Reference:    t.Reference,
		Amount:       t.Amount,
		Currency:     t.Currency,
		Type:         string(t.Type),
		Status:       t.Status,
		SplitApplied: t.SplitApplied,
		Description:  t.Description,
		InitiatedAt:  t.InitiatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
