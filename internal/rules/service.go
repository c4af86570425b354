// Package rules manages user split rules. The one invariant enforced here is
// that a user's active percentage rules never sum past 100; it is checked at
// creation time only.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

var (
	// ErrPercentageExceeded indicates the new rule would push the user's
	// active percentage total past 100.
	ErrPercentageExceeded = errors.New("active rule percentages would exceed 100")

	// ErrInvalidValue rejects percentages outside (0, 100].
	ErrInvalidValue = errors.New("rule value must be greater than 0 and at most 100")
)

var hundred = decimal.NewFromInt(100)

// Service manages split rule creation and listing.
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// NewService builds a rule service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateInput captures a new percentage rule.
type CreateInput struct {
	Name                string
	Value               decimal.Decimal
	DestinationWalletID string
	Priority            int
}

// Create validates and persists a rule. The destination wallet must belong to
// the user, and the sum of active percentages (including this one) must not
// exceed 100.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (ledger.SplitRule, error) {
	if input.Name == "" {
		return ledger.SplitRule{}, fmt.Errorf("rule name is required")
	}
	if input.Value.LessThanOrEqual(decimal.Zero) || input.Value.GreaterThan(hundred) {
		return ledger.SplitRule{}, ErrInvalidValue
	}

	var created ledger.SplitRule
	err := s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		if _, err := tx.WalletOwned(ctx, userID, input.DestinationWalletID); err != nil {
			return err
		}

		active, err := tx.ActiveRules(ctx, userID)
		if err != nil {
			return err
		}
		total := input.Value
		for _, r := range active {
			total = total.Add(r.Value)
		}
		if total.GreaterThan(hundred) {
			return ErrPercentageExceeded
		}

		created = ledger.SplitRule{
			ID:                  uuid.NewString(),
			UserID:              userID,
			Name:                input.Name,
			Type:                ledger.RuleTypePercentage,
			Value:               input.Value,
			DestinationWalletID: input.DestinationWalletID,
			Priority:            input.Priority,
			Active:              true,
			CreatedAt:           time.Now().UTC(),
		}
		return tx.CreateRule(ctx, created)
	})
	if err != nil {
		return ledger.SplitRule{}, err
	}
	s.logger.Info("split rule created",
		"rule_id", created.ID, "user_id", userID, "value", created.Value.String())
	return created, nil
}

// List returns the user's rules ordered by priority.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.SplitRule, error) {
	return s.store.RulesByUser(ctx, userID)
}
