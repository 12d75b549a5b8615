package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/flow"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// SessionSubscriber streams sign-in and sign-out events for a user.
type SessionSubscriber interface {
	Subscribe(uid string) (<-chan identity.SessionEvent, func())
}

type streamMessage struct {
	Type   string              `json:"type"`
	Screen *dto.ScreenResponse `json:"screen,omitempty"`
}

// SessionHandler serves the current screen and the websocket that pushes
// screen changes to every open tab of a user.
type SessionHandler struct {
	screens  service.ScreenService
	sessions SessionSubscriber
	logger   zerolog.Logger
}

// NewSessionHandler constructs the session handler.
func NewSessionHandler(screens service.ScreenService, sessions SessionSubscriber, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		screens:  screens,
		sessions: sessions,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds session routes. The router must already verify the session.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/screen", h.Screen)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := middleware.ContextWithCorrelation(userContext(c), middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

// Screen resolves the screen the caller should be looking at.
func (h *SessionHandler) Screen(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	screen, err := h.screens.Resolve(userContext(c), actor.UID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve screen")
	}
	return utils.SendSuccess(c, "current screen", screen)
}

func (h *SessionHandler) handleConnection(conn *websocket.Conn) {
	uid, _ := conn.Locals(middleware.LocalUserID).(string)
	sessionID, _ := conn.Locals(middleware.LocalSessionID).(string)
	if uid == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	logger := h.logger.With().
		Str("user_id", uid).
		Str("session_id", sessionID).
		Str(middleware.LocalCorrelationID, middleware.CorrelationIDFromContext(baseCtx)).
		Logger()
	logger.Info().Msg("screen stream connected")
	defer logger.Info().Msg("screen stream disconnected")

	changes, stopScreens := h.screens.Watch(uid)
	defer stopScreens()
	events, stopSessions := h.sessions.Subscribe(uid)
	defer stopSessions()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.pushScreen(ctx, conn, logger, uid) {
		return
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case _, ok := <-changes:
			if !ok || !h.pushScreen(ctx, conn, logger, uid) {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == identity.SessionSignedOut && ev.SessionID == sessionID {
				anonymous := dto.ScreenResponse{State: string(flow.StateAnonymous)}
				_ = h.write(conn, streamMessage{Type: "signed_out", Screen: &anonymous})
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"))
				return
			}
		}
	}
}

func (h *SessionHandler) pushScreen(ctx context.Context, conn *websocket.Conn, logger zerolog.Logger, uid string) bool {
	screen, err := h.screens.Resolve(ctx, uid)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve screen for stream")
		return ctx.Err() == nil
	}
	if err := h.write(conn, streamMessage{Type: "screen", Screen: &screen}); err != nil {
		logger.Debug().Err(err).Msg("screen stream write failed")
		return false
	}
	return true
}

func (h *SessionHandler) write(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(msg)
}
