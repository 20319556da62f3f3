package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/noah-isme/gradingstudents-api/internal/config"
	"github.com/noah-isme/gradingstudents-api/internal/database"
	"github.com/noah-isme/gradingstudents-api/internal/handler"
	"github.com/noah-isme/gradingstudents-api/internal/middleware"
	"github.com/noah-isme/gradingstudents-api/internal/repository"
	"github.com/noah-isme/gradingstudents-api/internal/router"
	"github.com/noah-isme/gradingstudents-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, database.DefaultRedisTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	reportRepo := repository.NewGradingReportRepository(db)
	questionEngine := repository.NewQuestionEngine(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	events := service.NewGradingEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger)
	gradingService := service.NewGradingStudentsService(reportRepo, questionEngine, validate, activityService, events, logger)

	gradingHandler := handler.NewGradingStudentsHandler(gradingService, handler.ViewerPolicy{
		NameRoles:     cfg.NameRoles,
		IdentityRoles: cfg.IdentityRoles,
		ReviewRoles:   cfg.ReviewRoles,
	}, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		GradingStudentsHandler: gradingHandler,
		ActivityHandler:        activityHandler,
		JWTMiddleware:          middleware.JWTProtected(cfg.JWTSecret),
		SubmitRateLimiter:      middleware.RateLimit("grading-submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow),
		HealthChecks:           healthChecks(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func healthChecks(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) []handler.DependencyCheck {
	checks := []handler.DependencyCheck{
		{Name: "database", Required: true, Ping: database.PingDatabase(db)},
	}
	if redisClient != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: database.PingRedis(redisClient)})
	}
	if natsConn != nil {
		checks = append(checks, handler.DependencyCheck{Name: "nats", Ping: database.PingNATS(natsConn)})
	}
	return checks
}

func newLogger(cfg config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
