package dto

import (
	"time"

	"github.com/noah-isme/gema-survey-api/internal/survey"
)

// SurveySubmitRequest posts the filled matrix. StudentID and DisplayName are
// only present when the profile fields are collected inline with the survey.
type SurveySubmitRequest struct {
	Answers     map[string]string `json:"answers" validate:"required"`
	StudentID   *string           `json:"student_id,omitempty" validate:"omitempty,max=32"`
	DisplayName *string           `json:"display_name,omitempty" validate:"omitempty,max=64"`
}

// SurveySubmitResponse reports the computed score and the next screen.
type SurveySubmitResponse struct {
	Score       survey.Result  `json:"score"`
	CompletedAt time.Time      `json:"completed_at"`
	Screen      ScreenResponse `json:"screen"`
}

// ScreenResponse tells the client which screen to render and with what data.
type ScreenResponse struct {
	State          string                   `json:"state"`
	Profile        *ProfileResponse         `json:"profile,omitempty"`
	Pending        *PendingIdentityResponse `json:"pending,omitempty"`
	Prefill        map[string]string        `json:"prefill,omitempty"`
	Score          *survey.Result           `json:"score,omitempty"`
	CatalogVersion string                   `json:"catalog_version"`
}
