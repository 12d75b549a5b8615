package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/flow"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/survey"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

func actorFromContext(c *fiber.Ctx) service.Actor {
	uid, _ := c.Locals(middleware.LocalUserID).(string)
	sid, _ := c.Locals(middleware.LocalSessionID).(string)
	method, _ := c.Locals(middleware.LocalLoginMethod).(string)
	return service.Actor{
		UID:       strings.TrimSpace(uid),
		SessionID: sid,
		Method:    identity.Method(method),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.CorrelatedLogger(c, base)
	return &logger
}

// respondError maps service errors onto the response envelope. fallback is
// the message used for unexpected failures.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var fields survey.FieldErrors
	if errors.As(err, &fields) {
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", fields)
	}

	var providerErr *identity.ProviderError
	if errors.As(err, &providerErr) {
		return respondProviderError(c, logger, providerErr)
	}

	var writeErr *service.ProfileWriteError
	if errors.As(err, &writeErr) {
		requestLogger(logger, c).Error().Err(err).Msg("initial profile write failed")
		return utils.SendError(c, fiber.StatusInternalServerError, writeErr.Error())
	}

	switch {
	case errors.Is(err, service.ErrBusy):
		return utils.SendError(c, fiber.StatusConflict, "request already in progress")
	case errors.Is(err, flow.ErrInvalidTransition):
		return utils.SendError(c, fiber.StatusConflict, "action not available on the current screen")
	case errors.Is(err, service.ErrNothingToEdit), errors.Is(err, repository.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, identity.ErrSessionRevoked), errors.Is(err, identity.ErrInvalidToken):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid session")
	}

	requestLogger(logger, c).Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}

func respondProviderError(c *fiber.Ctx, logger zerolog.Logger, err *identity.ProviderError) error {
	if identity.IsBenignCancellation(err.Code) {
		requestLogger(logger, c).Info().Str("code", err.Code).Msg("sign-in cancelled by user")
		return utils.SendSuccess(c, "sign-in cancelled", dto.CancelledResponse{Cancelled: true, Code: err.Code})
	}

	details := fiber.Map{"code": err.Code}
	status := fiber.StatusUnauthorized
	switch err.Code {
	case identity.CodeInAppBrowser:
		status = fiber.StatusForbidden
		details["external"] = identity.ExternalBrowserHint(c.Get(fiber.HeaderUserAgent), pageURL(c))
	case identity.CodeNotConfigured:
		status = fiber.StatusServiceUnavailable
	case identity.CodeExchangeFailed, identity.CodeUserInfoFailed:
		status = fiber.StatusBadGateway
	}

	requestLogger(logger, c).Warn().Str("code", err.Code).Msg(err.Message)
	return utils.Fail(c, status, err.Error(), details)
}

func pageURL(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Query("url")); value != "" {
		return value
	}
	return c.Get(fiber.HeaderReferer)
}
