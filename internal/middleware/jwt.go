package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/flowsplit/flowsplit/internal/auth"
	"github.com/flowsplit/flowsplit/internal/storage"
)

const userIDLocal = "user_id"

// JWTAuth validates bearer access tokens and confirms the subject still
// exists before letting the request through.
func JWTAuth(secret []byte, store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, secret)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		if _, err := store.UserByID(c.UserContext(), sub); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(userIDLocal, sub)
		return c.Next()
	}
}

// UserID returns the authenticated user id set by JWTAuth, or empty when the
// request is unauthenticated.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
