package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// Locals keys populated by SessionProtected.
const (
	LocalUserID      = "user_id"
	LocalSessionID   = "session_id"
	LocalLoginMethod = "login_method"
)

// SessionVerifier validates a session token.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Claims, error)
}

// SessionProtected returns a middleware that requires a live session token.
// Browsers cannot set headers on websocket upgrades, so the token query
// parameter is accepted as well.
func SessionProtected(verifier SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims, err := verifier.Verify(c.UserContext(), tokenString)
		switch {
		case errors.Is(err, identity.ErrSessionRevoked):
			return utils.SendError(c, fiber.StatusUnauthorized, "session signed out")
		case err != nil:
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalUserID, claims.UID())
		c.Locals(LocalSessionID, claims.SessionID)
		c.Locals(LocalLoginMethod, string(claims.Method))

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			return token, nil
		}
		return "", errors.New("authorization header missing")
	}

	const bearer = "Bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization header")
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return "", errors.New("invalid token")
	}
	return tokenString, nil
}
