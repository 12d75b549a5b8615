package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SURVEY_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, 30*time.Second, cfg.BusyTTL)
	require.False(t, cfg.RequireStudentID)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("SURVEY_JWT_SECRET", "secret")
	t.Setenv("SURVEY_STORE_DRIVER", "SQLite")
	t.Setenv("SURVEY_DATABASE_URL", "file:survey.db")
	t.Setenv("SURVEY_PROFILE_REQUIRE_STUDENT_ID", "true")
	t.Setenv("SURVEY_SESSION_TTL", "2h")
	t.Setenv("SURVEY_APP_URL", "https://survey.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	require.True(t, cfg.RequireStudentID)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, "https://survey.example.com", cfg.AppURL)
}

func TestLoadRejectsMissingSecretAndUnknownDriver(t *testing.T) {
	t.Setenv("SURVEY_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SURVEY_JWT_SECRET", "secret")
	t.Setenv("SURVEY_STORE_DRIVER", "dynamodb")
	_, err = Load()
	require.Error(t, err)
}

func TestIdentityStatusListsMissingSettings(t *testing.T) {
	cfg := Config{StoreDriver: StoreDriverMongo, MongoDatabase: "survey", GoogleClientID: "id"}

	status := cfg.IdentityStatus()
	require.False(t, status.GoogleConfigured)
	require.False(t, status.StoreConfigured)
	require.ElementsMatch(t, []string{
		"SURVEY_GOOGLE_CLIENT_SECRET",
		"SURVEY_GOOGLE_REDIRECT_URL",
		"SURVEY_MONGO_URI",
	}, status.Missing)

	cfg = Config{
		StoreDriver:        StoreDriverPostgres,
		DatabaseURL:        "postgres://localhost/survey",
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		GoogleRedirectURL:  "https://api.example.com/api/v1/auth/google/callback",
	}
	status = cfg.IdentityStatus()
	require.True(t, status.GoogleConfigured)
	require.True(t, status.StoreConfigured)
	require.Empty(t, status.Missing)
}
