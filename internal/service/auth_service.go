package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/flow"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

// GoogleCallbackResult is the outcome of the OAuth callback. SignIn is only
// set for popup mode; redirect mode parks the result for RedirectResult.
type GoogleCallbackResult struct {
	Mode   identity.Mode
	State  string
	SignIn *dto.SignInResponse
}

// AuthService drives every sign-in path and sign-out.
type AuthService interface {
	Capabilities(userAgent, pageURL string) identity.Capabilities
	ManualSignIn(ctx context.Context, req dto.ManualSignInRequest) (dto.SignInResponse, error)
	BeginGoogle(ctx context.Context, mode identity.Mode, userAgent string) (dto.ConsentResponse, error)
	GoogleCallback(ctx context.Context, req dto.GoogleCallbackRequest) (GoogleCallbackResult, error)
	Fallback(ctx context.Context, req dto.GoogleFallbackRequest) (dto.ConsentResponse, error)
	RedirectResult(ctx context.Context, state string) (dto.SignInResponse, error)
	SignOut(ctx context.Context, actor Actor) error
}

type authService struct {
	provider         identity.Provider
	profiles         repository.ProfileRepository
	screens          ScreenService
	validator        *validator.Validate
	text             plainText
	requireStudentID bool
	logger           zerolog.Logger
	tracer           trace.Tracer
}

// NewAuthService constructs the sign-in service.
func NewAuthService(provider identity.Provider, profiles repository.ProfileRepository, screens ScreenService, validate *validator.Validate, requireStudentID bool, logger zerolog.Logger) AuthService {
	return &authService{
		provider:         provider,
		profiles:         profiles,
		screens:          screens,
		validator:        validate,
		text:             newPlainText(),
		requireStudentID: requireStudentID,
		logger:           logger.With().Str("component", "auth_service").Logger(),
		tracer:           otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/auth"),
	}
}

func (s *authService) Capabilities(userAgent, pageURL string) identity.Capabilities {
	return identity.DetectCapabilities(userAgent, pageURL)
}

func (s *authService) ManualSignIn(ctx context.Context, req dto.ManualSignInRequest) (dto.SignInResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.manual_sign_in")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.SignInResponse{}, fieldErrorsFromValidator(err)
	}

	studentID := s.text.clean(req.StudentID)
	displayName := s.text.clean(req.DisplayName)
	if err := survey.ValidateIdentity(studentID, displayName, true); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		observability.SignIns().WithLabelValues(string(identity.MethodManual), "invalid").Inc()
		return dto.SignInResponse{}, err
	}

	id, err := s.provider.SignInAnonymously(ctx)
	if err != nil {
		span.RecordError(err)
		observability.SignIns().WithLabelValues(string(identity.MethodManual), "error").Inc()
		return dto.SignInResponse{}, err
	}
	span.SetAttributes(attribute.String("survey.user_id", id.UID))

	profile := &models.UserProfile{
		UserID:      id.UID,
		DisplayName: displayName,
		StudentID:   studentID,
		LoginMethod: models.LoginMethodManual,
	}
	if err := s.profiles.Put(ctx, profile); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile write failed")
		observability.SignIns().WithLabelValues(string(identity.MethodManual), "error").Inc()
		return dto.SignInResponse{}, &ProfileWriteError{Err: err}
	}

	resp, err := s.openSession(ctx, id, profile.IsComplete(s.requireStudentID))
	if err != nil {
		span.RecordError(err)
		observability.SignIns().WithLabelValues(string(identity.MethodManual), "error").Inc()
		return dto.SignInResponse{}, err
	}

	observability.SignIns().WithLabelValues(string(identity.MethodManual), "success").Inc()
	s.logger.Info().Str("uid", id.UID).Msg("manual sign-in completed")
	return resp, nil
}

func (s *authService) BeginGoogle(ctx context.Context, mode identity.Mode, userAgent string) (dto.ConsentResponse, error) {
	consent, err := s.provider.BeginGoogle(ctx, mode, userAgent)
	if err != nil {
		observability.SignIns().WithLabelValues(string(identity.MethodGoogle), outcomeFor(err)).Inc()
		return dto.ConsentResponse{}, err
	}
	return toConsentResponse(consent), nil
}

func (s *authService) GoogleCallback(ctx context.Context, req dto.GoogleCallbackRequest) (GoogleCallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.google_callback")
	defer span.End()

	if req.Error != "" {
		code := identity.CodeAccessDenied
		if req.Error != "access_denied" {
			code = "auth/" + strings.ReplaceAll(req.Error, "_", "-")
		}
		mode, err := s.provider.FailGoogle(ctx, req.State, code, req.ErrorDescription)
		observability.SignIns().WithLabelValues(string(identity.MethodGoogle), outcomeFor(err)).Inc()
		return GoogleCallbackResult{Mode: mode, State: req.State}, err
	}

	id, mode, err := s.provider.CompleteGoogle(ctx, req.State, req.Code)
	result := GoogleCallbackResult{Mode: mode, State: req.State}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "google exchange failed")
		observability.SignIns().WithLabelValues(string(identity.MethodGoogle), outcomeFor(err)).Inc()
		return result, err
	}
	if mode == identity.ModeRedirect {
		return result, nil
	}

	resp, err := s.completeGoogle(ctx, id)
	if err != nil {
		span.RecordError(err)
		return result, err
	}
	result.SignIn = &resp
	return result, nil
}

func (s *authService) Fallback(ctx context.Context, req dto.GoogleFallbackRequest) (dto.ConsentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ConsentResponse{}, fieldErrorsFromValidator(err)
	}

	consent, err := s.provider.FallbackToRedirect(ctx, req.State, req.Code)
	if err != nil {
		return dto.ConsentResponse{}, err
	}
	return toConsentResponse(consent), nil
}

func (s *authService) RedirectResult(ctx context.Context, state string) (dto.SignInResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.redirect_result")
	defer span.End()

	id, err := s.provider.RedirectResult(ctx, state)
	if err != nil {
		if !errors.Is(err, identity.ErrNoRedirectResult) {
			span.RecordError(err)
			observability.SignIns().WithLabelValues(string(identity.MethodGoogle), outcomeFor(err)).Inc()
		}
		return dto.SignInResponse{}, err
	}

	return s.completeGoogle(ctx, id)
}

func (s *authService) SignOut(ctx context.Context, actor Actor) error {
	if err := s.provider.SignOut(ctx, actor.SessionID, actor.UID); err != nil {
		return err
	}
	if _, err := s.screens.Apply(ctx, actor.UID, flow.On(flow.EventSignedOut), ClearSurveyState()); err != nil {
		return err
	}
	s.logger.Info().Str("uid", actor.UID).Str("session_id", actor.SessionID).Msg("signed out")
	return nil
}

// completeGoogle records the Google profile hints and opens a session. In the
// profile-required variant a user without a complete profile is only staged;
// the document is written once the student id is confirmed.
func (s *authService) completeGoogle(ctx context.Context, id identity.Identity) (dto.SignInResponse, error) {
	existing, err := s.profiles.Get(ctx, id.UID)
	if errors.Is(err, repository.ErrNotFound) {
		existing = nil
	} else if err != nil {
		observability.SignIns().WithLabelValues(string(identity.MethodGoogle), "error").Inc()
		return dto.SignInResponse{}, &ProfileWriteError{Err: err}
	}

	complete := existing != nil && existing.IsComplete(s.requireStudentID)

	switch {
	case s.requireStudentID && !complete:
		if err := s.provider.StagePending(ctx, id); err != nil {
			observability.SignIns().WithLabelValues(string(identity.MethodGoogle), "error").Inc()
			return dto.SignInResponse{}, err
		}
	case existing == nil:
		profile := &models.UserProfile{
			UserID:      id.UID,
			DisplayName: s.text.clean(id.DisplayName),
			Email:       id.Email,
			PhotoURL:    id.PhotoURL,
			LoginMethod: models.LoginMethodGoogle,
		}
		if err := s.profiles.Put(ctx, profile); err != nil {
			observability.SignIns().WithLabelValues(string(identity.MethodGoogle), "error").Inc()
			return dto.SignInResponse{}, &ProfileWriteError{Err: err}
		}
		complete = profile.IsComplete(s.requireStudentID)
	default:
		fields := map[string]interface{}{
			"email":        id.Email,
			"photo_url":    id.PhotoURL,
			"login_method": models.LoginMethodGoogle,
		}
		if strings.TrimSpace(existing.DisplayName) == "" && id.DisplayName != "" {
			fields["display_name"] = s.text.clean(id.DisplayName)
			existing.DisplayName = fields["display_name"].(string)
		}
		if err := s.profiles.Update(ctx, id.UID, fields); err != nil {
			observability.SignIns().WithLabelValues(string(identity.MethodGoogle), "error").Inc()
			return dto.SignInResponse{}, &ProfileWriteError{Err: err}
		}
		complete = existing.IsComplete(s.requireStudentID)
	}

	resp, err := s.openSession(ctx, id, complete)
	if err != nil {
		observability.SignIns().WithLabelValues(string(identity.MethodGoogle), "error").Inc()
		return dto.SignInResponse{}, err
	}

	observability.SignIns().WithLabelValues(string(identity.MethodGoogle), "success").Inc()
	s.logger.Info().Str("uid", id.UID).Bool("profile_complete", complete).Msg("google sign-in completed")
	return resp, nil
}

func (s *authService) openSession(ctx context.Context, id identity.Identity, profileComplete bool) (dto.SignInResponse, error) {
	session, err := s.provider.IssueSession(ctx, id)
	if err != nil {
		return dto.SignInResponse{}, err
	}
	if _, err := s.screens.Enter(ctx, id.UID, profileComplete); err != nil {
		return dto.SignInResponse{}, err
	}
	screen, err := s.screens.Resolve(ctx, id.UID)
	if err != nil {
		return dto.SignInResponse{}, err
	}

	return dto.SignInResponse{
		Session: dto.SessionResponse{
			Token:     session.Token,
			SessionID: session.ID,
			UserID:    session.UID,
			Method:    string(session.Method),
			ExpiresAt: session.ExpiresAt,
		},
		Screen: screen,
	}, nil
}

func toConsentResponse(consent identity.Consent) dto.ConsentResponse {
	return dto.ConsentResponse{State: consent.State, URL: consent.URL, Mode: string(consent.Mode)}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "success"
	case identity.IsBenignCancellation(identity.ErrorCode(err)):
		return "cancelled"
	case identity.ErrorCode(err) == identity.CodeInAppBrowser:
		return "in_app_browser"
	default:
		return "error"
	}
}
