package bank_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/bank"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/paystack"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
)

func newService(t *testing.T) (*bank.Service, *paystack.StaticProvider, *memory.Store) {
	t.Helper()
	store := memory.New()
	provider := &paystack.StaticProvider{}
	return bank.NewService(store, provider, logging.Discard()), provider, store
}

func TestAddVerifiesAndLinks(t *testing.T) {
	svc, _, store := newService(t)

	account, err := svc.Add(context.Background(), "u1", bank.AddInput{
		BankName:      "GTBank",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	require.NoError(t, err)
	require.True(t, account.Verified)
	require.Equal(t, "JOHN DOE", account.AccountName)
	require.NotEmpty(t, account.ProviderRef)

	accounts, err := store.BankAccountsByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestAddDuplicateAccount(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	input := bank.AddInput{BankCode: "058", AccountNumber: "0123456789"}
	_, err := svc.Add(ctx, "u1", input)
	require.NoError(t, err)

	_, err = svc.Add(ctx, "u1", input)
	require.ErrorIs(t, err, bank.ErrDuplicateAccount)
}

func TestAddResolutionFailureStoresNothing(t *testing.T) {
	svc, provider, store := newService(t)
	provider.FailResolve = true

	_, err := svc.Add(context.Background(), "u1", bank.AddInput{
		BankCode: "058", AccountNumber: "0123456789",
	})
	require.ErrorIs(t, err, paystack.ErrProvider)

	accounts, err := store.BankAccountsByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestAddRequiresAccountNumberAndCode(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Add(context.Background(), "u1", bank.AddInput{BankName: "GTBank"})
	require.Error(t, err)
}
