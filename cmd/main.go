package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"github.com/MauriceOS/snaktox-dispatch/internal/broadcast"
	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/geo"
	v1 "github.com/MauriceOS/snaktox-dispatch/internal/handler/http/v1"
	"github.com/MauriceOS/snaktox-dispatch/internal/notify"
	"github.com/MauriceOS/snaktox-dispatch/internal/repository"
	"github.com/MauriceOS/snaktox-dispatch/internal/service"
	"github.com/MauriceOS/snaktox-dispatch/pkg/logger"
	"github.com/MauriceOS/snaktox-dispatch/pkg/postgres"
	redisclient "github.com/MauriceOS/snaktox-dispatch/pkg/redis"

	_ "github.com/MauriceOS/snaktox-dispatch/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title SnakTox Dispatch API
// @version 1.0
// @description Emergency snakebite dispatch and notification fan-out service.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel)

	// Root context for graceful shutdown of background workers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Realtime layer: local hub fed by the Redis fan-out bridge so every
	// instance sees every published event.
	hub := broadcast.NewHub(log)
	broadcaster := broadcast.NewRedisBroadcaster(hub, redisClient, log)
	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			log.WithError(err).Error("Broadcast bridge stopped")
		}
	}()

	// Notification audit trail is buffered through Redis and drained
	// into PostgreSQL by a background worker.
	auditRepo := repository.NewAuditRepository(dbpool)
	auditQueue := notify.NewRedisAuditQueue(redisClient)
	auditWorker := notify.NewAuditWorker(redisClient, auditRepo, log)
	auditWorker.Start(ctx)

	incidentRepo := repository.NewIncidentRepository(dbpool, redisClient)
	hospitalRepo := repository.NewHospitalRepository(dbpool)
	resolver := geo.NewResolver(hospitalRepo, log)

	smsNotifier := notify.NewSMSClassNotifier(cfg, log)
	emailNotifier := notify.NewEmailAdapter(cfg, log)
	router := notify.NewRouter(smsNotifier, emailNotifier, auditQueue, log, cfg)

	dispatchService := service.NewDispatchService(incidentRepo, hospitalRepo, resolver, router, broadcaster, log, cfg)

	handler := v1.NewHandler(dispatchService, hub, log, cfg)

	engine := gin.Default()
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-API-Key")
	engine.Use(cors.New(corsCfg))

	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: engine,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
