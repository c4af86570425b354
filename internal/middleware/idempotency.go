package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotency-Replayed"
	idempotencyPrefix       = "flowsplit:idem:"
	idempotencyPending      = "pending"
	redisTimeout            = 2 * time.Second
)

// replayRecord is the cached outcome of a completed request. Only the fields
// needed to replay a JSON API response are kept.
type replayRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency dedupes unsafe requests by the Idempotency-Key header. The key
// is scoped to the authenticated user, so two users may reuse the same key
// without colliding. The first request reserves the key, runs, and stores its
// response; replays within the TTL get the stored response back with an
// Idempotency-Replayed header. A concurrent duplicate gets 409.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idempotencyPrefix + UserID(c) + ":" + key
		attrs := []any{
			slog.String("key", key),
			slog.String("user_id", UserID(c)),
			slog.String("path", c.Path()),
		}

		ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			return replay(c, cached, logger, attrs)
		case err != redis.Nil:
			logger.Error("idempotency lookup failed", append(attrs, slog.Any("error", err))...)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		reserved, err := cache.SetNX(ctx, cacheKey, idempotencyPending, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", append(attrs, slog.Any("error", err))...)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "request with this key already in flight")
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}

		record := replayRecord{
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		payload, err := json.Marshal(record)
		if err != nil {
			logger.Error("idempotency record encode failed", append(attrs, slog.Any("error", err))...)
			release(cache, cacheKey)
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), redisTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Error("idempotency record persist failed", append(attrs, slog.Any("error", err))...)
			release(cache, cacheKey)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, cached string, logger *slog.Logger, attrs []any) error {
	if cached == idempotencyPending {
		return fiber.NewError(fiber.StatusConflict, "request with this key already in flight")
	}
	var record replayRecord
	if err := json.Unmarshal([]byte(cached), &record); err != nil {
		logger.Warn("idempotency record corrupt", append(attrs, slog.Any("error", err))...)
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if ct := strings.TrimSpace(record.ContentType); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	c.Set(idempotencyReplayHeader, "true")
	return c.Status(record.Status).Send(record.Body)
}

// release drops a reservation so the client may retry. Best effort: an
// expired TTL covers the case where redis is unreachable here.
func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}
