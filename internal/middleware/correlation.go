package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalCorrelationID is the fiber local holding the request's correlation id.
const LocalCorrelationID = "correlation_id"

const maxCorrelationIDLength = 64

type correlationIDKey struct{}

// CorrelationID tags each request with an id that follows it through the logs
// and the screen stream. Ids sent by the caller are kept only when they are
// short and made of token characters.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := acceptedCorrelationID(c.Get("X-Correlation-ID"))
		if id == "" {
			id = acceptedCorrelationID(c.Get("X-Request-ID"))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(LocalCorrelationID, id)
		c.Set("X-Correlation-ID", id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationIDKey{}, id))

		return c.Next()
	}
}

func acceptedCorrelationID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxCorrelationIDLength {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return ""
		}
	}
	return id
}

// CorrelationIDFromContext returns the id stored by CorrelationID or ContextWithCorrelation.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation id of the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(LocalCorrelationID).(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation carries the id into work that outlives the fiber
// context, such as the websocket screen stream.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id := strings.TrimSpace(correlationID)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelatedLogger returns base tagged with the request's correlation id and,
// once the session guard ran, its user id.
func CorrelatedLogger(c *fiber.Ctx, base zerolog.Logger) zerolog.Logger {
	if c == nil {
		return base
	}
	logCtx := base.With()
	if id := GetCorrelationID(c); id != "" {
		logCtx = logCtx.Str(LocalCorrelationID, id)
	}
	if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
		logCtx = logCtx.Str(LocalUserID, uid)
	}
	return logCtx.Logger()
}
