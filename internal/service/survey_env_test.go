package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

type stubGoogle struct {
	user identity.GoogleUser
}

func (g stubGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (g stubGoogle) Exchange(context.Context, string) (identity.GoogleUser, error) {
	return g.user, nil
}

// countingProvider records anonymous sign-ins made through the real provider.
type countingProvider struct {
	identity.Provider
	anonymous int
}

func (p *countingProvider) SignInAnonymously(ctx context.Context) (identity.Identity, error) {
	p.anonymous++
	return p.Provider.SignInAnonymously(ctx)
}

type surveyTestEnv struct {
	mini      *miniredis.Miniredis
	redis     *redis.Client
	provider  *countingProvider
	profiles  repository.ProfileRepository
	responses repository.SurveyRepository
	screens   ScreenService
	auth      AuthService
	profile   ProfileService
	survey    SurveyService
}

func newSurveyTestEnv(t *testing.T, requireStudentID bool) *surveyTestEnv {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.SurveyResponse{}))

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	google := stubGoogle{user: identity.GoogleUser{Subject: "g-1", Email: "student@example.com", Name: "Kim Minji", Picture: "https://img.example.com/k.png"}}
	base, err := identity.NewProvider(google, client, nil, identity.Config{TokenSecret: "test-secret", SessionTTL: time.Hour}, logger)
	require.NoError(t, err)
	provider := &countingProvider{Provider: base}

	profiles, err := repository.NewProfileRepository(db, survey.AIAttitude)
	require.NoError(t, err)
	responses, err := repository.NewSurveyRepository(db, survey.AIAttitude)
	require.NoError(t, err)

	validate := NewValidator()
	screens := NewScreenService(profiles, provider, client, survey.AIAttitude, requireStudentID, time.Hour, logger)

	return &surveyTestEnv{
		mini:      mini,
		redis:     client,
		provider:  provider,
		profiles:  profiles,
		responses: responses,
		screens:   screens,
		auth:      NewAuthService(provider, profiles, screens, validate, requireStudentID, logger),
		profile:   NewProfileService(profiles, provider, screens, survey.AIAttitude, client, 30*time.Second, validate, requireStudentID, logger),
		survey:    NewSurveyService(responses, profiles, screens, survey.AIAttitude, client, 30*time.Second, validate, logger),
	}
}

func sessionActor(resp dto.SignInResponse) Actor {
	return Actor{UID: resp.Session.UserID, SessionID: resp.Session.SessionID, Method: identity.Method(resp.Session.Method)}
}

func answersAll(value string) map[string]string {
	answers := make(map[string]string)
	for _, id := range survey.AIAttitude.RowIDs() {
		answers[id] = value
	}
	return answers
}

// answersSumming45 mixes 4s, 3s and 2s so the 15 rows add up to 45.
func answersSumming45() map[string]string {
	values := []string{"4", "3", "2"}
	answers := make(map[string]string)
	for i, id := range survey.AIAttitude.RowIDs() {
		answers[id] = values[i%len(values)]
	}
	return answers
}
