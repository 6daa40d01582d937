package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoring-api/api/swagger"
	"github.com/noah-isme/tutoring-api/internal/handler"
	"github.com/noah-isme/tutoring-api/internal/notification"
	"github.com/noah-isme/tutoring-api/internal/repository"
	"github.com/noah-isme/tutoring-api/internal/router"
	"github.com/noah-isme/tutoring-api/internal/scheduler"
	"github.com/noah-isme/tutoring-api/internal/service"
	"github.com/noah-isme/tutoring-api/migrations"
	"github.com/noah-isme/tutoring-api/pkg/cache"
	"github.com/noah-isme/tutoring-api/pkg/config"
	"github.com/noah-isme/tutoring-api/pkg/database"
	"github.com/noah-isme/tutoring-api/pkg/jobs"
	"github.com/noah-isme/tutoring-api/pkg/logger"
)

// @title Tutoring API
// @version 1.0.0
// @description Teacher availability and settlement ledger
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db.DB, migrations.FS, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	metrics := service.NewMetricsService()
	readiness := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Availability.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			redisRepo := repository.NewCacheRepository(client, logr)
			cacheRepo = redisRepo
			readiness["redis"] = handler.PingFunc(redisRepo.Ping)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Availability.CacheTTL, logr, cacheRepo != nil)

	teachers := repository.NewTeacherRepository(db)
	bookings := repository.NewBookingRepository(db)
	validate := validator.New()

	dispatcher, err := newDispatcher(cfg.Notify, teachers, logr)
	if err != nil {
		return err
	}
	notifyQueue := jobs.NewQueue("notifications", dispatcher.Handle, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	dispatcher.Bind(notifyQueue)
	notifyQueue.Start(ctx)
	defer notifyQueue.Stop()

	availabilitySvc := service.NewAvailabilityService(
		repository.NewAvailabilityRepository(db), teachers, bookings, cacheSvc, metrics, validate, logr,
		service.AvailabilityConfig{
			DefaultTimezone: cfg.Availability.DefaultTimezone,
			CacheTTL:        cfg.Availability.CacheTTL,
			MaxRangeDays:    cfg.Availability.MaxRangeDays,
		})
	settlementSvc := service.NewSettlementService(
		repository.NewSettlementRepository(db), bookings, teachers, dispatcher, metrics, validate, logr,
		service.SettlementConfig{HoldDays: cfg.Settlement.HoldDays, BatchSize: cfg.Settlement.BatchSize})

	if cfg.Settlement.SchedulerEnabled {
		go scheduler.NewPayoutScheduler(settlementSvc, cfg.Settlement.SchedulerEvery, logr).Start(ctx)
	}

	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Auth:           auth,
		Availability:   handler.NewAvailabilityHandler(availabilitySvc),
		Settlement:     handler.NewSettlementHandler(settlementSvc),
		Observability:  handler.NewMetricsHandler(metrics, readiness),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "notify_channels", dispatcher.Channels())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newDispatcher(cfg config.NotifyConfig, teachers *repository.TeacherRepository, logr *zap.Logger) (*notification.Dispatcher, error) {
	var channels []notification.Channel
	if cfg.TelegramBotToken != "" {
		telegram, err := notification.NewTelegramChannel(cfg.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		channels = append(channels, telegram)
	}
	if cfg.SendgridAPIKey != "" {
		channels = append(channels, notification.NewEmailChannel(cfg.SendgridAPIKey, "", cfg.MailFromName, cfg.MailFromAddress))
	}
	return notification.NewDispatcher(teachers, logr, channels...), nil
}
