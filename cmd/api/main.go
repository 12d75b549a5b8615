package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/config"
	"github.com/noah-isme/gema-survey-api/internal/database"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/router"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if status := cfg.IdentityStatus(); len(status.Missing) > 0 {
		logger.Warn().Strs("missing", status.Missing).Msg("identity settings incomplete; affected sign-in paths are disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := survey.AIAttitude
	profiles, responses, closeStore := connectStore(ctx, cfg, catalog)
	defer closeStore()

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var google identity.GoogleClient
	if cfg.GoogleConfigured() {
		google, err = identity.NewGoogleClient(identity.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		if err != nil {
			log.Fatalf("failed to create google client: %v", err)
		}
	}

	provider, err := identity.NewProvider(google, redisClient, natsConn, identity.Config{
		TokenSecret:  cfg.JWTSecret,
		TokenIssuer:  cfg.AppName,
		SessionTTL:   cfg.SessionTTL,
		EventSubject: cfg.SessionSubject,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create identity provider: %v", err)
	}

	validate := service.NewValidator()

	screenService := service.NewScreenService(profiles, provider, redisClient, catalog, cfg.RequireStudentID, cfg.SessionTTL, logger)
	authService := service.NewAuthService(provider, profiles, screenService, validate, cfg.RequireStudentID, logger)
	profileService := service.NewProfileService(profiles, provider, screenService, catalog, redisClient, cfg.BusyTTL, validate, cfg.RequireStudentID, logger)
	surveyService := service.NewSurveyService(responses, profiles, screenService, catalog, redisClient, cfg.BusyTTL, validate, logger)

	provider.Start(ctx)
	screenService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.AllowedOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(authService, cfg.AppURL, logger),
		SessionHandler: handler.NewSessionHandler(screenService, provider, logger),
		ProfileHandler: handler.NewProfileHandler(profileService, logger),
		SurveyHandler:  handler.NewSurveyHandler(surveyService, logger),
		SessionGuard:   middleware.SessionProtected(provider),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// connectStore opens the configured document store and returns its
// repositories together with a close func.
func connectStore(ctx context.Context, cfg config.Config, catalog *survey.Catalog) (repository.ProfileRepository, repository.SurveyRepository, func()) {
	if cfg.StoreDriver == config.StoreDriverMongo {
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		profiles, err := repository.NewMongoProfileRepository(db, catalog)
		if err != nil {
			log.Fatalf("failed to create profile repository: %v", err)
		}
		responses, err := repository.NewMongoSurveyRepository(db, catalog)
		if err != nil {
			log.Fatalf("failed to create survey repository: %v", err)
		}
		return profiles, responses, func() { _ = client.Disconnect(context.Background()) }
	}

	var (
		db  *gorm.DB
		err error
	)
	if cfg.StoreDriver == config.StoreDriverSQLite {
		db, err = database.ConnectSQLite(cfg.DatabaseURL)
	} else {
		db, err = database.ConnectPostgres(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.UserProfile{}, &models.SurveyResponse{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	profiles, err := repository.NewProfileRepository(db, catalog)
	if err != nil {
		log.Fatalf("failed to create profile repository: %v", err)
	}
	responses, err := repository.NewSurveyRepository(db, catalog)
	if err != nil {
		log.Fatalf("failed to create survey repository: %v", err)
	}

	return profiles, responses, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
