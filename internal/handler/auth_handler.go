package handler

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

const (
	authStateCookie   = "survey_auth_state"
	authStateParam    = "auth_state"
	popupMessageType  = "survey-auth"
	authStateLifetime = 10 * time.Minute
)

var popupTemplate = template.Must(template.New("popup").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<script>
(function () {
  var message = {type: {{.Type}}, payload: {{.Payload}}, error: {{.Error}}};
  if (window.opener) {
    window.opener.postMessage(message, {{.Origin}});
    window.close();
  } else {
    window.location.replace({{.Fallback}});
  }
})();
</script>
</body></html>
`))

type popupPage struct {
	Type     string
	Payload  interface{}
	Error    interface{}
	Origin   string
	Fallback string
}

// AuthHandler exposes the sign-in endpoints.
type AuthHandler struct {
	service service.AuthService
	appURL  string
	logger  zerolog.Logger
}

// NewAuthHandler constructs the auth handler. appURL is the page the
// redirect flow returns to and the origin popup results are posted to.
func NewAuthHandler(service service.AuthService, appURL string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		appURL:  strings.TrimRight(appURL, "/"),
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds auth routes. protect guards the routes that need a session.
func (h *AuthHandler) Register(router fiber.Router, protect ...fiber.Handler) {
	router.Get("/capabilities", h.Capabilities)
	router.Post("/manual", h.ManualSignIn)
	router.Get("/google/start", h.BeginGoogle)
	router.Get("/google/callback", h.GoogleCallback)
	router.Post("/google/fallback", h.Fallback)
	router.Get("/redirect-result", h.RedirectResult)
	router.Post("/signout", append(protect, h.SignOut)...)
}

// Capabilities reports whether the calling browser can host the Google popup.
func (h *AuthHandler) Capabilities(c *fiber.Ctx) error {
	caps := h.service.Capabilities(c.Get(fiber.HeaderUserAgent), pageURL(c))
	return utils.SendSuccess(c, "sign-in capabilities", caps)
}

// ManualSignIn signs in with a typed student id and name.
func (h *AuthHandler) ManualSignIn(c *fiber.Ctx) error {
	var req dto.ManualSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.ManualSignIn(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to sign in")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "signed in", resp)
}

// BeginGoogle opens a consent flow in popup (default) or redirect mode.
func (h *AuthHandler) BeginGoogle(c *fiber.Ctx) error {
	mode := identity.ParseMode(c.Query("mode"))
	consent, err := h.service.BeginGoogle(c.UserContext(), mode, c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return respondError(c, h.logger, err, "failed to start google sign-in")
	}
	if consent.Mode == string(identity.ModeRedirect) {
		h.setStateCookie(c, consent.State)
	}
	return utils.SendSuccess(c, "google consent", consent)
}

// GoogleCallback receives Google's redirect. Popup flows answer with a page
// that posts the result to the opener; redirect flows park the result and
// send the browser back to the app.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	var req dto.GoogleCallbackRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid callback query")
	}

	result, err := h.service.GoogleCallback(c.UserContext(), req)
	if result.Mode == identity.ModeRedirect {
		if err != nil {
			requestLogger(h.logger, c).Warn().Err(err).Msg("google redirect sign-in failed")
		}
		h.setStateCookie(c, result.State)
		return c.Redirect(h.returnURL(result.State), fiber.StatusFound)
	}

	page := popupPage{Type: popupMessageType, Origin: h.origin(), Fallback: h.appURL + "/"}
	switch {
	case err == nil && result.SignIn != nil:
		page.Payload = result.SignIn
	case err != nil:
		code := identity.ErrorCode(err)
		if code == "" {
			requestLogger(h.logger, c).Error().Err(err).Msg("google popup sign-in failed")
			code = "auth/internal"
		}
		page.Error = dto.CancelledResponse{Cancelled: identity.IsBenignCancellation(code), Code: code}
	}
	return h.renderPopup(c, page)
}

// Fallback moves a popup flow that could not open over to redirect mode.
func (h *AuthHandler) Fallback(c *fiber.Ctx) error {
	var req dto.GoogleFallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	consent, err := h.service.Fallback(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to switch to redirect sign-in")
	}
	h.setStateCookie(c, consent.State)
	return utils.SendSuccess(c, "google consent", consent)
}

// RedirectResult hands out a parked redirect sign-in once. Pages call it on
// every load; an empty result is not an error.
func (h *AuthHandler) RedirectResult(c *fiber.Ctx) error {
	state := strings.TrimSpace(c.Query("state"))
	if state == "" {
		state = c.Cookies(authStateCookie)
	}
	if state == "" {
		return utils.SendSuccess(c, "no pending redirect result", nil)
	}

	resp, err := h.service.RedirectResult(c.UserContext(), state)
	h.clearStateCookie(c)
	if errors.Is(err, identity.ErrNoRedirectResult) {
		return utils.SendSuccess(c, "no pending redirect result", nil)
	}
	if err != nil {
		return respondError(c, h.logger, err, "failed to complete google sign-in")
	}

	return utils.SendSuccess(c, "signed in", resp)
}

// SignOut revokes the calling session.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	ctx := middleware.ContextWithCorrelation(userContext(c), middleware.GetCorrelationID(c))
	if err := h.service.SignOut(ctx, actor); err != nil {
		return respondError(c, h.logger, err, "failed to sign out")
	}
	return utils.SendSuccess(c, "signed out", nil)
}

func (h *AuthHandler) renderPopup(c *fiber.Ctx, page popupPage) error {
	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, page); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to render popup page")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to render sign-in result")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *AuthHandler) setStateCookie(c *fiber.Ctx, state string) {
	if state == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     authStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(authStateLifetime),
		HTTPOnly: true,
		Secure:   strings.HasPrefix(h.appURL, "https://"),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearStateCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authStateCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) returnURL(state string) string {
	target := h.appURL + "/"
	if state == "" {
		return target
	}
	return target + "?" + authStateParam + "=" + url.QueryEscape(state)
}

func (h *AuthHandler) origin() string {
	parsed, err := url.Parse(h.appURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "*"
	}
	return parsed.Scheme + "://" + parsed.Host
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
