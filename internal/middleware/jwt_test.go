package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
)

type stubVerifier struct {
	claims *identity.Claims
	err    error
	tokens []string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*identity.Claims, error) {
	s.tokens = append(s.tokens, token)
	return s.claims, s.err
}

func sessionApp(verifier middleware.SessionVerifier) *fiber.App {
	app := fiber.New()
	app.Use(middleware.SessionProtected(verifier))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"uid":    c.Locals(middleware.LocalUserID),
			"sid":    c.Locals(middleware.LocalSessionID),
			"method": c.Locals(middleware.LocalLoginMethod),
		})
	})
	return app
}

func TestSessionProtectedSetsLocals(t *testing.T) {
	verifier := &stubVerifier{claims: &identity.Claims{
		SessionID:        "s-1",
		Method:           identity.MethodGoogle,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}}
	app := sessionApp(verifier)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"abc"}, verifier.tokens)
}

func TestSessionProtectedAcceptsQueryToken(t *testing.T) {
	verifier := &stubVerifier{claims: &identity.Claims{SessionID: "s-1", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}}
	app := sessionApp(verifier)

	req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"from-query"}, verifier.tokens)
}

func TestSessionProtectedRejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "revoked", header: "Bearer abc", err: identity.ErrSessionRevoked},
		{name: "invalid", header: "Bearer abc", err: identity.ErrInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := sessionApp(&stubVerifier{err: tc.err})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
