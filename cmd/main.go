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

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shenikar/hazard_fusion_engine/internal/alerting"
	"github.com/shenikar/hazard_fusion_engine/internal/broadcast"
	"github.com/shenikar/hazard_fusion_engine/internal/cache"
	"github.com/shenikar/hazard_fusion_engine/internal/cluster"
	"github.com/shenikar/hazard_fusion_engine/internal/config"
	"github.com/shenikar/hazard_fusion_engine/internal/confidence"
	"github.com/shenikar/hazard_fusion_engine/internal/geoindex"
	v1 "github.com/shenikar/hazard_fusion_engine/internal/handler/http/v1"
	"github.com/shenikar/hazard_fusion_engine/internal/metrics"
	"github.com/shenikar/hazard_fusion_engine/internal/repository"
	"github.com/shenikar/hazard_fusion_engine/internal/service"
	"github.com/shenikar/hazard_fusion_engine/internal/webhook"
	"github.com/shenikar/hazard_fusion_engine/pkg/logger"
	"github.com/shenikar/hazard_fusion_engine/pkg/postgres"
	redisclient "github.com/shenikar/hazard_fusion_engine/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/hazard_fusion_engine/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Hazard Fusion Engine API
// @version 1.0
// @description Coastal hazard fusion and alerting engine API server.
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
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Регистрация метрик движка
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Инициализация издателя событий и воркера вебхуков
	eventPublisher := webhook.NewRedisPublisher(redisClient)
	webhookWorker := webhook.NewWorker(redisClient, log, cfg)
	webhookWorker.Start(ctx)

	// Гео-временной индекс и периодическая чистка устаревших сообщений
	index := geoindex.New(nil)
	index.StartRetention(ctx.Done(), cfg.IndexRetention, time.Hour)

	// Ядро движка: кластеризация, уверенность, оповещения, кэш, рассылка
	clusterer := cluster.New(index, nil, cfg.ClusterRadiusMeters, cfg.ClusterWindow, log)
	aggregator := confidence.New(confidence.PolicyFromConfig(cfg))
	alertManager := alerting.NewManager(alerting.Thresholds{
		Activation:            cfg.ActivationThreshold,
		MinReports:            cfg.MinReports,
		MinSourceDiversity:    cfg.MinSourceDiversity,
		HighSeverityDiversity: cfg.HighSeverityDiversity,
	}, nil, log)
	broadcaster := broadcast.New()
	defer broadcaster.Close()

	engine := service.NewEngine(service.Deps{
		Store:       repository.NewStore(dbpool),
		Index:       index,
		Clusterer:   clusterer,
		Aggregator:  aggregator,
		Alerts:      alertManager,
		Cache:       cache.NewRedisCache(redisClient, cfg.CacheTTL),
		Broadcaster: broadcaster,
		Publisher:   eventPublisher,
		Logger:      log,
		Config:      cfg,
	})

	// Восстановление состояния после рестарта
	if err := engine.Restore(ctx); err != nil {
		log.Fatalf("Failed to restore engine state: %v", err)
	}
	engine.Start(ctx)

	// Инициализация хэндлеров
	handler := v1.NewHandler(engine, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Маршруты метрик и Swagger UI
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
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
