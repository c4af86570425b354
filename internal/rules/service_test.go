package rules_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/rules"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
)

func newService(t *testing.T) (*rules.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := rules.NewService(store, logging.Discard())
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		return tx.CreateWallet(ctx, ledger.Wallet{
			ID:       "w-savings",
			UserID:   "u1",
			Name:     "Savings",
			Type:     ledger.WalletTypeSavings,
			Currency: ledger.DefaultCurrency,
		})
	})
	require.NoError(t, err)
	return svc, store
}

func pct(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRule(t *testing.T) {
	svc, store := newService(t)

	r, err := svc.Create(context.Background(), "u1", rules.CreateInput{
		Name:                "Save 30",
		Value:               pct("30"),
		DestinationWalletID: "w-savings",
		Priority:            1,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.RuleTypePercentage, r.Type)
	require.True(t, r.Active)

	stored, err := store.RulesByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestCreateRuleCapsActivePercentage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", rules.CreateInput{
		Name: "Save 60", Value: pct("60"), DestinationWalletID: "w-savings",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u1", rules.CreateInput{
		Name: "Save 50", Value: pct("50"), DestinationWalletID: "w-savings",
	})
	require.ErrorIs(t, err, rules.ErrPercentageExceeded)

	// Exactly reaching 100 is allowed.
	_, err = svc.Create(ctx, "u1", rules.CreateInput{
		Name: "Save 40", Value: pct("40"), DestinationWalletID: "w-savings",
	})
	require.NoError(t, err)
}

func TestCreateRuleRejectsInvalidValues(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", rules.CreateInput{
		Name: "Zero", Value: pct("0"), DestinationWalletID: "w-savings",
	})
	require.ErrorIs(t, err, rules.ErrInvalidValue)

	_, err = svc.Create(ctx, "u1", rules.CreateInput{
		Name: "Over", Value: pct("100.01"), DestinationWalletID: "w-savings",
	})
	require.ErrorIs(t, err, rules.ErrInvalidValue)
}

func TestCreateRuleForeignWalletHidden(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), "intruder", rules.CreateInput{
		Name: "Steal", Value: pct("10"), DestinationWalletID: "w-savings",
	})
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
