package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignHS256(map[string]any{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, secret)
	require.NoError(t, err)

	claims, err := ParseAndVerifyHS256(token, secret)
	require.NoError(t, err)
	require.Equal(t, "u1", claims["sub"])
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := SignHS256(map[string]any{"sub": "u1"}, []byte("right"))
	require.NoError(t, err)

	_, err = ParseAndVerifyHS256(token, []byte("wrong"))
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignHS256(map[string]any{
		"sub": "u1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}, secret)
	require.NoError(t, err)

	_, err = ParseAndVerifyHS256(token, secret)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := ParseAndVerifyHS256("not-a-token", []byte("secret"))
	require.Error(t, err)
}
