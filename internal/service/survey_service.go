package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/flow"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

// SurveyService scores, stores and reopens survey responses.
type SurveyService interface {
	Catalog() *survey.Catalog
	Submit(ctx context.Context, actor Actor, req dto.SurveySubmitRequest) (dto.SurveySubmitResponse, error)
	Edit(ctx context.Context, actor Actor) (dto.ScreenResponse, error)
	StartOver(ctx context.Context, actor Actor) (dto.ScreenResponse, error)
}

type surveyService struct {
	responses repository.SurveyRepository
	profiles  repository.ProfileRepository
	screens   ScreenService
	catalog   *survey.Catalog
	lock      busyLock
	validator *validator.Validate
	text      plainText
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSurveyService constructs the survey service.
func NewSurveyService(responses repository.SurveyRepository, profiles repository.ProfileRepository, screens ScreenService, catalog *survey.Catalog, redisClient *redis.Client, busyTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) SurveyService {
	if busyTTL <= 0 {
		busyTTL = 30 * time.Second
	}
	return &surveyService{
		responses: responses,
		profiles:  profiles,
		screens:   screens,
		catalog:   catalog,
		lock:      busyLock{redis: redisClient, ttl: busyTTL},
		validator: validate,
		text:      newPlainText(),
		logger:    logger.With().Str("component", "survey_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/survey"),
		now:       time.Now,
	}
}

func (s *surveyService) Catalog() *survey.Catalog {
	return s.catalog
}

// Submit validates the whole form before touching the store, so a rejected
// submission never writes.
func (s *surveyService) Submit(ctx context.Context, actor Actor, req dto.SurveySubmitRequest) (dto.SurveySubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "survey.submit", trace.WithAttributes(attribute.String("survey.user_id", actor.UID)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.SurveySubmitResponse{}, fieldErrorsFromValidator(err)
	}

	form := survey.NewForm(s.catalog, nil)
	form.SetAnswers(req.Answers)
	if req.StudentID != nil || req.DisplayName != nil {
		form.CollectStudentInfo = true
		form.SetStudentID(s.clean(req.StudentID))
		form.SetDisplayName(s.clean(req.DisplayName))
	}
	if err := form.Validate(); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.SurveySubmitResponse{}, err
	}

	release, err := s.lock.acquire(ctx, actor.UID)
	if err != nil {
		return dto.SurveySubmitResponse{}, err
	}
	defer release()

	if err := s.screens.Check(ctx, actor.UID, flow.On(flow.EventSurveySubmitted)); err != nil {
		return dto.SurveySubmitResponse{}, err
	}

	if form.CollectStudentInfo {
		if err := s.saveInlineProfile(ctx, actor, form.StudentID, form.DisplayName); err != nil {
			span.RecordError(err)
			return dto.SurveySubmitResponse{}, err
		}
	}

	answers := form.Answers()
	result := survey.Score(s.catalog, answers)
	span.SetAttributes(attribute.Int("survey.score_total", result.Total), attribute.String("survey.grade", string(result.Grade)))

	completedAt := s.now().UTC()
	doc := &models.SurveyResponse{
		UserID:         actor.UID,
		ScoreTotal:     result.Total,
		ScoreGrade:     string(result.Grade),
		CatalogVersion: s.catalog.Version,
		CompletedAt:    completedAt,
	}
	doc.SetAnswers(answers)

	if err := s.responses.Put(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.SurveySubmitResponse{}, err
	}

	if _, err := s.screens.Apply(ctx, actor.UID, flow.On(flow.EventSurveySubmitted), ClearSurveyState(), WithScore(result)); err != nil {
		return dto.SurveySubmitResponse{}, err
	}
	screen, err := s.screens.Resolve(ctx, actor.UID)
	if err != nil {
		return dto.SurveySubmitResponse{}, err
	}

	observability.SurveySubmissions().WithLabelValues(string(result.Grade)).Inc()
	s.logger.Info().Str("uid", actor.UID).Int("total", result.Total).Str("grade", string(result.Grade)).Msg("survey submitted")

	return dto.SurveySubmitResponse{Score: result, CompletedAt: completedAt, Screen: screen}, nil
}

// Edit reopens the stored answers as the prefill of the survey screen.
func (s *surveyService) Edit(ctx context.Context, actor Actor) (dto.ScreenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "survey.edit", trace.WithAttributes(attribute.String("survey.user_id", actor.UID)))
	defer span.End()

	if err := s.screens.Check(ctx, actor.UID, flow.On(flow.EventEditRequested)); err != nil {
		return dto.ScreenResponse{}, err
	}

	stored, err := s.responses.Get(ctx, actor.UID)
	if errors.Is(err, repository.ErrNotFound) {
		return dto.ScreenResponse{}, ErrNothingToEdit
	}
	if err != nil {
		span.RecordError(err)
		return dto.ScreenResponse{}, err
	}

	prefill := survey.Answers{}
	for row, value := range stored.AnswerValues() {
		if s.catalog.HasRow(row) {
			prefill[row] = value
		}
	}

	if _, err := s.screens.Apply(ctx, actor.UID, flow.On(flow.EventEditRequested), ClearSurveyState(), WithPrefill(prefill)); err != nil {
		return dto.ScreenResponse{}, err
	}
	return s.screens.Resolve(ctx, actor.UID)
}

func (s *surveyService) StartOver(ctx context.Context, actor Actor) (dto.ScreenResponse, error) {
	if _, err := s.screens.Apply(ctx, actor.UID, flow.On(flow.EventStartOver), ClearSurveyState()); err != nil {
		return dto.ScreenResponse{}, err
	}
	return s.screens.Resolve(ctx, actor.UID)
}

func (s *surveyService) saveInlineProfile(ctx context.Context, actor Actor, studentID, displayName string) error {
	fields := map[string]interface{}{
		"student_id":   studentID,
		"display_name": displayName,
	}
	err := s.profiles.Update(ctx, actor.UID, fields)
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	method := string(actor.Method)
	if !models.ValidLoginMethod(method) {
		method = models.LoginMethodManual
	}
	if err := s.profiles.Put(ctx, &models.UserProfile{
		UserID:      actor.UID,
		DisplayName: displayName,
		StudentID:   studentID,
		LoginMethod: method,
	}); err != nil {
		return fmt.Errorf("save inline profile: %w", err)
	}
	return nil
}

func (s *surveyService) clean(value *string) string {
	if value == nil {
		return ""
	}
	return s.text.clean(*value)
}
