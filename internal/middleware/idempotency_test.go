package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/logging"
)

type idemApp struct {
	app   *fiber.App
	calls int
}

// newIdemApp wires the middleware behind a stand-in auth layer that stamps
// the user id from a test header, the way JWTAuth does in production.
func newIdemApp(t *testing.T) *idemApp {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	ia := &idemApp{app: fiber.New()}
	ia.app.Use(func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid != "" {
			c.Locals(userIDLocal, uid)
		}
		return c.Next()
	})
	ia.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	ia.app.Post("/payouts", func(c *fiber.Ctx) error {
		ia.calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": ia.calls})
	})
	return ia
}

func (ia *idemApp) post(t *testing.T, user, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/payouts", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", user)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := ia.app.Test(req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		rec.Header()[k] = v
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	_, _ = rec.Body.Write(body)
	return rec
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	ia := newIdemApp(t)
	rec := ia.post(t, "u1", "")
	require.Equal(t, fiber.StatusBadRequest, rec.Code)
	require.Zero(t, ia.calls)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	ia := newIdemApp(t)

	first := ia.post(t, "u1", "key-1")
	require.Equal(t, fiber.StatusCreated, first.Code)
	require.Empty(t, first.Header().Get(idempotencyReplayHeader))

	second := ia.post(t, "u1", "key-1")
	require.Equal(t, fiber.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get(idempotencyReplayHeader))
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, ia.calls, "replay must not re-run the handler")
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	ia := newIdemApp(t)

	require.Equal(t, fiber.StatusCreated, ia.post(t, "u1", "shared-key").Code)
	require.Equal(t, fiber.StatusCreated, ia.post(t, "u2", "shared-key").Code)
	require.Equal(t, 2, ia.calls, "different users must not share replay records")
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	ia := newIdemApp(t)
	ia.app.Get("/payouts", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(fiber.MethodGet, "/payouts", nil)
	resp, err := ia.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
