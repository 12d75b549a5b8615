package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-survey-api/internal/config"
	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/flow"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/service"
)

type mockScreenService struct {
	service.ScreenService
	resolved string
	screen   dto.ScreenResponse
	err      error
}

func (m *mockScreenService) Resolve(_ context.Context, uid string) (dto.ScreenResponse, error) {
	m.resolved = uid
	return m.screen, m.err
}

type noopSessions struct{}

func (noopSessions) Subscribe(string) (<-chan identity.SessionEvent, func()) {
	return make(chan identity.SessionEvent), func() {}
}

func TestSessionHandler_ScreenResolvesCaller(t *testing.T) {
	screens := &mockScreenService{screen: dto.ScreenResponse{State: string(flow.StateNeedsProfile)}}
	app := fiber.New()
	handler.NewSessionHandler(screens, noopSessions{}, zerolog.New(io.Discard)).Register(app.Group("/api/v1/session", withActor("uid-5", "sid-5", "google")))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/session/screen", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "uid-5", screens.resolved)

	var body struct {
		Data dto.ScreenResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, string(flow.StateNeedsProfile), body.Data.State)
}

func TestSessionHandler_StreamRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	handler.NewSessionHandler(&mockScreenService{}, noopSessions{}, zerolog.New(io.Discard)).Register(app.Group("/api/v1/session", withActor("uid-5", "sid-5", "google")))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/session/ws", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealthCheck_ReportsMissingIdentitySettings(t *testing.T) {
	cfg := config.Config{AppName: "survey", AppEnv: "test", StoreDriver: config.StoreDriverSQLite, DatabaseURL: "file::memory:"}
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(cfg))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data handler.HealthResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "degraded", body.Data.Status)
	require.False(t, body.Data.Identity.GoogleConfigured)
	require.Contains(t, body.Data.Identity.Missing, "SURVEY_GOOGLE_CLIENT_ID")
}
