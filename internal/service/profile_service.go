package service

import (
	"context"
	"errors"
	"strings"
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
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

const msgUnknownCourse = "목록에 있는 과목을 선택해 주세요."

// PendingStore reads and clears staged Google identities.
type PendingStore interface {
	PendingReader
	ClearPending(ctx context.Context, uid string) error
}

// ProfileService reads and completes user profiles.
type ProfileService interface {
	Get(ctx context.Context, uid string) (dto.ProfileResponse, error)
	Complete(ctx context.Context, actor Actor, req dto.ProfileRequest) (dto.ProfileResponse, dto.ScreenResponse, error)
}

type profileService struct {
	profiles         repository.ProfileRepository
	pending          PendingStore
	screens          ScreenService
	catalog          *survey.Catalog
	lock             busyLock
	validator        *validator.Validate
	text             plainText
	requireStudentID bool
	logger           zerolog.Logger
	tracer           trace.Tracer
}

// NewProfileService constructs the profile service.
func NewProfileService(profiles repository.ProfileRepository, pending PendingStore, screens ScreenService, catalog *survey.Catalog, redisClient *redis.Client, busyTTL time.Duration, validate *validator.Validate, requireStudentID bool, logger zerolog.Logger) ProfileService {
	if busyTTL <= 0 {
		busyTTL = 30 * time.Second
	}
	return &profileService{
		profiles:         profiles,
		pending:          pending,
		screens:          screens,
		catalog:          catalog,
		lock:             busyLock{redis: redisClient, ttl: busyTTL},
		validator:        validate,
		text:             newPlainText(),
		requireStudentID: requireStudentID,
		logger:           logger.With().Str("component", "profile_service").Logger(),
		tracer:           otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/profile"),
	}
}

func (s *profileService) Get(ctx context.Context, uid string) (dto.ProfileResponse, error) {
	profile, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return toProfileResponse(*profile, s.requireStudentID), nil
}

// Complete validates and stores the profile form. A user waiting on the
// profile screen moves on to the survey.
func (s *profileService) Complete(ctx context.Context, actor Actor, req dto.ProfileRequest) (dto.ProfileResponse, dto.ScreenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "profile.complete", trace.WithAttributes(attribute.String("survey.user_id", actor.UID)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProfileResponse{}, dto.ScreenResponse{}, fieldErrorsFromValidator(err)
	}

	displayName := s.text.clean(req.DisplayName)
	studentID := s.text.clean(req.StudentID)
	course := strings.TrimSpace(req.Course)

	if err := survey.ValidateIdentity(studentID, displayName, s.requireStudentID); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProfileResponse{}, dto.ScreenResponse{}, err
	}
	if !s.catalog.HasCourse(course) {
		return dto.ProfileResponse{}, dto.ScreenResponse{}, survey.FieldErrors{"course": msgUnknownCourse}
	}

	release, err := s.lock.acquire(ctx, actor.UID)
	if err != nil {
		return dto.ProfileResponse{}, dto.ScreenResponse{}, err
	}
	defer release()

	profile, err := s.save(ctx, actor, displayName, studentID, course)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile write failed")
		return dto.ProfileResponse{}, dto.ScreenResponse{}, err
	}

	if err := s.pending.ClearPending(ctx, actor.UID); err != nil {
		s.logger.Warn().Err(err).Str("uid", actor.UID).Msg("failed to clear pending identity")
	}

	current, err := s.screens.Current(ctx, actor.UID)
	if err != nil {
		return dto.ProfileResponse{}, dto.ScreenResponse{}, err
	}
	if current.State == flow.StateNeedsProfile && profile.IsComplete(s.requireStudentID) {
		if _, err := s.screens.Apply(ctx, actor.UID, flow.On(flow.EventProfileSaved)); err != nil {
			return dto.ProfileResponse{}, dto.ScreenResponse{}, err
		}
	}

	screen, err := s.screens.Resolve(ctx, actor.UID)
	if err != nil {
		return dto.ProfileResponse{}, dto.ScreenResponse{}, err
	}

	s.logger.Info().Str("uid", actor.UID).Msg("profile saved")
	return toProfileResponse(*profile, s.requireStudentID), screen, nil
}

// save writes the whole document when none exists, merging staged Google
// hints, and otherwise updates only the form fields that carry a value.
func (s *profileService) save(ctx context.Context, actor Actor, displayName, studentID, course string) (*models.UserProfile, error) {
	existing, err := s.profiles.Get(ctx, actor.UID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		profile := &models.UserProfile{
			UserID:      actor.UID,
			DisplayName: displayName,
			StudentID:   studentID,
			Course:      course,
			LoginMethod: string(actor.Method),
		}
		if !models.ValidLoginMethod(profile.LoginMethod) {
			profile.LoginMethod = string(identity.MethodManual)
		}
		if staged, ok, err := s.pending.Pending(ctx, actor.UID); err == nil && ok {
			profile.Email = staged.Email
			profile.PhotoURL = staged.PhotoURL
			profile.LoginMethod = string(staged.Method)
		}
		if err := s.profiles.Put(ctx, profile); err != nil {
			return nil, err
		}
		return profile, nil
	case err != nil:
		return nil, err
	}

	// Blank optional fields keep their stored values.
	fields := map[string]interface{}{"display_name": displayName}
	existing.DisplayName = displayName
	if studentID != "" {
		fields["student_id"] = studentID
		existing.StudentID = studentID
	}
	if course != "" {
		fields["course"] = course
		existing.Course = course
	}
	if err := s.profiles.Update(ctx, actor.UID, fields); err != nil {
		return nil, err
	}
	return existing, nil
}
