package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meetpoint/service-meeting/internal/application"
	"github.com/meetpoint/service-meeting/internal/config"
	"github.com/meetpoint/service-meeting/internal/events"
	"github.com/meetpoint/service-meeting/internal/handler"
	"github.com/meetpoint/service-meeting/internal/platform/auth"
	"github.com/meetpoint/service-meeting/internal/platform/database"
	"github.com/meetpoint/service-meeting/internal/platform/health"
	"github.com/meetpoint/service-meeting/internal/platform/kafka"
	"github.com/meetpoint/service-meeting/internal/platform/logger"
	"github.com/meetpoint/service-meeting/internal/platform/middleware"
	"github.com/meetpoint/service-meeting/internal/repository"
	"github.com/meetpoint/service-meeting/pkg/geocoder"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "service-meeting"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}
	defer func() { _ = sqlDB.Close() }()

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.MeetingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTTL,
		cfg.JWTConfig.RefreshTTL,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize application service
	meetingRepo := repository.NewGormMeetingRepository(db)
	meetingService := application.NewMeetingService(meetingRepo, kafkaProducer, log)

	// Initialize geocoder client
	geocoderClient := geocoder.NewClient(geocoder.Config{
		BaseURL:       cfg.GeocoderConfig.BaseURL,
		APIKey:        cfg.GeocoderConfig.APIKey,
		Results:       cfg.GeocoderConfig.Results,
		RatePerSecond: cfg.GeocoderConfig.RatePerSecond,
		Timeout:       cfg.GeocoderConfig.Timeout,
	}, log.Named("geocoder"))

	// Initialize user event consumer
	groupID := cfg.KafkaConfig.GroupPrefix + "meeting-service"
	userConsumer := events.NewUserEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		meetingService,
		log,
	)
	defer func() { _ = userConsumer.Close() }()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Register health check routes
	health.NewHandler(sqlDB, serviceName).RegisterRoutes(router)

	// Register routes
	handler.NewMeetingHandler(meetingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewGeocodeHandler(geocoderClient, log).RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting user event consumer", zap.String("group_id", groupID))
		if err := userConsumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("user event consumer: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down " + serviceName + "...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server forced shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(serviceName+" stopped with error", zap.Error(err))
		return
	}

	log.Info(serviceName + " stopped")
}
