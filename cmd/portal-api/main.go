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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentor-portal-api/api/swagger"
	"github.com/noah-isme/mentor-portal-api/internal/handler"
	"github.com/noah-isme/mentor-portal-api/internal/repository"
	"github.com/noah-isme/mentor-portal-api/internal/service"
	"github.com/noah-isme/mentor-portal-api/migrations"
	"github.com/noah-isme/mentor-portal-api/pkg/cache"
	"github.com/noah-isme/mentor-portal-api/pkg/config"
	"github.com/noah-isme/mentor-portal-api/pkg/database"
	"github.com/noah-isme/mentor-portal-api/pkg/docstore"
	"github.com/noah-isme/mentor-portal-api/pkg/jobs"
	"github.com/noah-isme/mentor-portal-api/pkg/logger"
	"github.com/noah-isme/mentor-portal-api/pkg/middleware/ratelimit"
)

// @title Mentor Portal API
// @version 1.0.0
// @description Attendance, user directory and chat for admins, mentors and students
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
		err := migrations.Up(migrateCtx, db)
		cancelMigrate()
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("database schema up to date")
	}

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, using in-process drafts, chat fan-out and rate limiting", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	draftRepo := repository.NewDraftRepository(redisClient, cfg.Attendance.DraftTTL)
	chatBroker := repository.NewChatBroker(redisClient, logr)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metricsSvc, cfg.Attendance.CacheTTL, logr, cfg.Attendance.CacheEnabled && redisClient != nil)

	store, windows, closeStore, err := attendanceBackends(ctx, cfg, db)
	if err != nil {
		logr.Fatal("failed to initialise attendance store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "mentor-portal-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr, cacheSvc)
	attendanceSvc := service.NewAttendanceService(store, windows, userRepo, draftRepo, userRepo, cacheSvc, metricsSvc, validate, logr, service.AttendanceConfig{
		Location:           cfg.Attendance.Location(),
		CacheTTL:           cfg.Attendance.CacheTTL,
		AttentionThreshold: cfg.Attendance.AttentionThreshold,
	})
	messageSvc := service.NewMessageService(messageRepo, chatBroker, userRepo, metricsSvc, logr, cfg.Chat.MaxMessageLength)

	chatQueue := jobs.NewQueue("chat-publish", messageSvc.PublishJob, jobs.QueueConfig{
		Workers:    cfg.Chat.PublishWorkers,
		MaxRetries: cfg.Chat.PublishRetries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logr,
	})
	chatQueue.Start(ctx)
	defer chatQueue.Stop()
	messageSvc.SetQueue(chatQueue)
	metricsSvc.TrackQueue("chat-publish", chatQueue.Pending)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	if err := userSvc.EnsureAdmin(seedCtx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.DisplayName); err != nil {
		logr.Error("failed to seed administrator", zap.Error(err))
	}
	cancelSeed()

	var limiter ratelimit.Limiter = ratelimit.NewTokenBucket(cfg.RateLimit.Burst, cfg.RateLimit.AuthPerMinute)
	if redisClient != nil {
		limiter = ratelimit.NewRedisWindow(redisClient, cfg.RateLimit.AuthPerMinute, "ratelimit:auth")
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(cacheSvc.Ping)
	}

	r := newRouter(cfg, logr, routerDeps{
		auth:        handler.NewAuthHandler(authSvc),
		users:       handler.NewUserHandler(userSvc),
		attendance:  handler.NewAttendanceHandler(attendanceSvc),
		messages:    handler.NewMessageHandler(messageSvc, cfg.Chat.AllowedOrigins, logr),
		metrics:     handler.NewMetricsHandler(metricsSvc, checks, logr),
		metricsSvc:  metricsSvc,
		tokens:      authSvc,
		audit:       userRepo,
		authLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// attendanceBackends selects where attendance records and the window live.
// The returned func releases the backend.
func attendanceBackends(ctx context.Context, cfg *config.Config, db *sqlx.DB) (service.AttendanceStore, service.WindowStore, func(), error) {
	if cfg.Store.Driver != config.StoreDriverFirestore {
		return repository.NewAttendanceRepository(db), repository.NewConfigurationRepository(db), func() {}, nil
	}

	client, err := docstore.NewFirestore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, nil, err
	}
	repo := repository.NewFirestoreAttendanceRepository(client, cfg.Store.FirestoreCollection, cfg.Attendance.Location())
	return repo, repo, func() { _ = client.Close() }, nil
}
