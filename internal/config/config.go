package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by store.driver.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMongo    = "mongo"
)

// Config holds runtime configuration values for the survey API.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	AppURL             string
	AllowedOrigins     string
	StoreDriver        string
	DatabaseURL        string
	MongoURI           string
	MongoDatabase      string
	RedisURL           string
	NATSURL            string
	SessionSubject     string
	JWTSecret          string
	SessionTTL         time.Duration
	BusyTTL            time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	RequireStudentID   bool
	RateLimitMax       int
}

// IdentityStatus reports which identity and store settings are present.
type IdentityStatus struct {
	GoogleConfigured bool     `json:"google_configured"`
	StoreConfigured  bool     `json:"store_configured"`
	StoreDriver      string   `json:"store_driver"`
	Missing          []string `json:"missing,omitempty"`
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// GoogleConfigured reports whether Google OAuth credentials are complete.
func (c Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// IdentityStatus lists the missing settings by environment variable name.
func (c Config) IdentityStatus() IdentityStatus {
	status := IdentityStatus{StoreDriver: c.StoreDriver, GoogleConfigured: c.GoogleConfigured()}

	if c.GoogleClientID == "" {
		status.Missing = append(status.Missing, "SURVEY_GOOGLE_CLIENT_ID")
	}
	if c.GoogleClientSecret == "" {
		status.Missing = append(status.Missing, "SURVEY_GOOGLE_CLIENT_SECRET")
	}
	if c.GoogleRedirectURL == "" {
		status.Missing = append(status.Missing, "SURVEY_GOOGLE_REDIRECT_URL")
	}

	switch c.StoreDriver {
	case StoreDriverMongo:
		status.StoreConfigured = c.MongoURI != "" && c.MongoDatabase != ""
		if c.MongoURI == "" {
			status.Missing = append(status.Missing, "SURVEY_MONGO_URI")
		}
		if c.MongoDatabase == "" {
			status.Missing = append(status.Missing, "SURVEY_MONGO_DATABASE")
		}
	default:
		status.StoreConfigured = c.DatabaseURL != ""
		if c.DatabaseURL == "" {
			status.Missing = append(status.Missing, "SURVEY_DATABASE_URL")
		}
	}

	return status
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SURVEY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Survey API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.url", "http://localhost:5173")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("mongo.database", "survey")
	v.SetDefault("nats.subject", "survey.sessions")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("busy.ttl", "30s")
	v.SetDefault("profile.require_student_id", false)
	v.SetDefault("rate_limit.max", 60)

	sessionTTL, err := time.ParseDuration(v.GetString("session.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}
	busyTTL, err := time.ParseDuration(v.GetString("busy.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid busy ttl: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		AppURL:             strings.TrimRight(v.GetString("app.url"), "/"),
		AllowedOrigins:     v.GetString("allowed_origins"),
		StoreDriver:        strings.ToLower(v.GetString("store.driver")),
		DatabaseURL:        v.GetString("database.url"),
		MongoURI:           v.GetString("mongo.uri"),
		MongoDatabase:      v.GetString("mongo.database"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		SessionSubject:     v.GetString("nats.subject"),
		JWTSecret:          v.GetString("jwt.secret"),
		SessionTTL:         sessionTTL,
		BusyTTL:            busyTTL,
		GoogleClientID:     v.GetString("google.client_id"),
		GoogleClientSecret: v.GetString("google.client_secret"),
		GoogleRedirectURL:  v.GetString("google.redirect_url"),
		RequireStudentID:   v.GetBool("profile.require_student_id"),
		RateLimitMax:       v.GetInt("rate_limit.max"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMongo:
	default:
		return Config{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BusyTTL <= 0 {
		cfg.BusyTTL = 30 * time.Second
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 60
	}

	return cfg, nil
}
