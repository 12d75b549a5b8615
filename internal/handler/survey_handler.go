package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// SurveyHandler serves the question catalog and takes submissions.
type SurveyHandler struct {
	service service.SurveyService
	logger  zerolog.Logger
}

// NewSurveyHandler constructs the survey handler.
func NewSurveyHandler(service service.SurveyService, logger zerolog.Logger) *SurveyHandler {
	return &SurveyHandler{
		service: service,
		logger:  logger.With().Str("component", "survey_handler").Logger(),
	}
}

// Register binds survey routes.
func (h *SurveyHandler) Register(router fiber.Router) {
	router.Get("/catalog", h.Catalog)
	router.Post("/", h.Submit)
	router.Post("/edit", h.Edit)
	router.Post("/restart", h.StartOver)
}

func (h *SurveyHandler) Catalog(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "survey catalog", h.service.Catalog())
}

// Submit scores a complete matrix and stores it.
func (h *SurveyHandler) Submit(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req dto.SurveySubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Submit(userContext(c), actor, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit survey")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "survey submitted", resp)
}

// Edit reopens the stored answers.
func (h *SurveyHandler) Edit(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	screen, err := h.service.Edit(userContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err, "failed to reopen survey")
	}
	return utils.SendSuccess(c, "survey reopened", screen)
}

// StartOver returns a completed user to an empty survey.
func (h *SurveyHandler) StartOver(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	screen, err := h.service.StartOver(userContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err, "failed to restart survey")
	}
	return utils.SendSuccess(c, "survey restarted", screen)
}
