package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.SurveyResponse{}))
	return db
}

func fullAnswers(value string) map[string]string {
	answers := make(map[string]string)
	for _, id := range survey.AIAttitude.RowIDs() {
		answers[id] = value
	}
	return answers
}

func TestProfileRepositoryGetMissingReturnsNotFound(t *testing.T) {
	repo, err := NewProfileRepository(setupStoreTestDB(t), survey.AIAttitude)
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProfileRepositoryPutOverwritesAndUpdateMerges(t *testing.T) {
	repo, err := NewProfileRepository(setupStoreTestDB(t), survey.AIAttitude)
	require.NoError(t, err)
	ctx := context.Background()

	profile := &models.UserProfile{UserID: "u-1", DisplayName: "Kim", StudentID: "20240001", LoginMethod: models.LoginMethodManual}
	require.NoError(t, repo.Put(ctx, profile))
	created := profile.CreatedAt

	overwrite := &models.UserProfile{UserID: "u-1", DisplayName: "Kim Minji", LoginMethod: models.LoginMethodManual}
	require.NoError(t, repo.Put(ctx, overwrite))

	loaded, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "Kim Minji", loaded.DisplayName)
	require.Empty(t, loaded.StudentID, "put replaces the whole document")
	require.WithinDuration(t, created, loaded.CreatedAt, time.Second)

	require.NoError(t, repo.Update(ctx, "u-1", map[string]interface{}{"course": "ai-literacy"}))
	loaded, err = repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "ai-literacy", loaded.Course)
	require.Equal(t, "Kim Minji", loaded.DisplayName)

	require.ErrorIs(t, repo.Update(ctx, "u-404", map[string]interface{}{"course": "x"}), ErrNotFound)
}

func TestProfileRepositoryPutKeepsCreatedAt(t *testing.T) {
	repo, err := NewProfileRepository(setupStoreTestDB(t), survey.AIAttitude)
	require.NoError(t, err)
	ctx := context.Background()

	clock := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	repo.(*profileRepository).now = func() time.Time { return clock }
	require.NoError(t, repo.Put(ctx, &models.UserProfile{UserID: "u-1", DisplayName: "Kim", LoginMethod: models.LoginMethodGoogle}))

	clock = clock.Add(48 * time.Hour)
	require.NoError(t, repo.Put(ctx, &models.UserProfile{UserID: "u-1", DisplayName: "Kim Minji", LoginMethod: models.LoginMethodManual}))

	loaded, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "Kim Minji", loaded.DisplayName)
	require.Equal(t, models.LoginMethodManual, loaded.LoginMethod)
	require.True(t, loaded.CreatedAt.Equal(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)), "created_at rewritten to %s", loaded.CreatedAt)
	require.True(t, loaded.UpdatedAt.Equal(clock))
}

func TestProfileRepositoryRejectsUnknownLoginMethod(t *testing.T) {
	db := setupStoreTestDB(t)
	repo, err := NewProfileRepository(db, survey.AIAttitude)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.UserProfile{UserID: "u-2", DisplayName: "Lee", LoginMethod: "facebook"}).Error)

	_, err = repo.Get(context.Background(), "u-2")
	require.ErrorIs(t, err, ErrDecode)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestSurveyRepositoryLastWriteWins(t *testing.T) {
	repo, err := NewSurveyRepository(setupStoreTestDB(t), survey.AIAttitude)
	require.NoError(t, err)
	ctx := context.Background()

	first := &models.SurveyResponse{UserID: "u-1", ScoreTotal: 60, ScoreGrade: string(survey.GradeHigh)}
	first.SetAnswers(fullAnswers("4"))
	require.NoError(t, repo.Put(ctx, first))

	second := &models.SurveyResponse{UserID: "u-1", ScoreTotal: 15, ScoreGrade: string(survey.GradeLow)}
	second.SetAnswers(fullAnswers("1"))
	require.NoError(t, repo.Put(ctx, second))

	loaded, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 15, loaded.ScoreTotal)
	require.Equal(t, fullAnswers("1"), loaded.AnswerValues())
	require.False(t, loaded.CompletedAt.IsZero())

	_, err = repo.Get(ctx, "u-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSurveyRepositoryCorruptAnswersAreDecodeErrors(t *testing.T) {
	db := setupStoreTestDB(t)
	repo, err := NewSurveyRepository(db, survey.AIAttitude)
	require.NoError(t, err)

	bad := fullAnswers("4")
	bad["q3"] = "9"
	corrupt := &models.SurveyResponse{UserID: "u-3", ScoreTotal: 60, ScoreGrade: string(survey.GradeHigh), CompletedAt: time.Now()}
	corrupt.SetAnswers(bad)
	require.NoError(t, db.Create(corrupt).Error)

	_, err = repo.Get(context.Background(), "u-3")
	require.ErrorIs(t, err, ErrDecode)

	missing := &models.SurveyResponse{UserID: "u-4", ScoreTotal: 4, ScoreGrade: string(survey.GradeLow), CompletedAt: time.Now()}
	missing.SetAnswers(map[string]string{"q1": "4"})
	require.NoError(t, db.Create(missing).Error)

	_, err = repo.Get(context.Background(), "u-4")
	require.ErrorIs(t, err, ErrDecode)

	wrongGrade := &models.SurveyResponse{UserID: "u-5", ScoreTotal: 60, ScoreGrade: "excellent", CompletedAt: time.Now()}
	wrongGrade.SetAnswers(fullAnswers("4"))
	require.NoError(t, db.Create(wrongGrade).Error)

	_, err = repo.Get(context.Background(), "u-5")
	require.ErrorIs(t, err, ErrDecode)
}
