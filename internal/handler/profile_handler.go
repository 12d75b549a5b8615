package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

type profileSavedResponse struct {
	Profile dto.ProfileResponse `json:"profile"`
	Screen  dto.ScreenResponse  `json:"screen"`
}

// ProfileHandler reads and completes the caller's profile.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler constructs the profile handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register binds profile routes.
func (h *ProfileHandler) Register(router fiber.Router) {
	router.Get("/", h.Get)
	router.Put("/", h.Complete)
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	profile, err := h.service.Get(userContext(c), actor.UID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile", profile)
}

// Complete saves the profile form and returns the screen that follows it.
func (h *ProfileHandler) Complete(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.UID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req dto.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, screen, err := h.service.Complete(userContext(c), actor, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to save profile")
	}
	return utils.SendSuccess(c, "profile saved", profileSavedResponse{Profile: profile, Screen: screen})
}
