package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/identity"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := identity.NewService(memory.New(), logging.Discard())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ada@Example.com", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.NotEmpty(t, user.ID)

	got, err := svc.Authenticate(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := identity.NewService(memory.New(), logging.Discard())
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := identity.NewService(memory.New(), logging.Discard())
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ada@example.com", "another password")
	require.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := identity.NewService(memory.New(), logging.Discard())
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "correct horse battery")
	require.Error(t, err)

	_, err = svc.Register(ctx, "ada@example.com", "short")
	require.Error(t, err)
}
