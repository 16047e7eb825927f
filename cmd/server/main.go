package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/marketplace-backend/internal/cache"
	"github.com/ignatzorin/marketplace-backend/internal/config"
	"github.com/ignatzorin/marketplace-backend/internal/db"
	httpHandlers "github.com/ignatzorin/marketplace-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/marketplace-backend/internal/http/router"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/queue"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
	"github.com/ignatzorin/marketplace-backend/internal/service"
	"github.com/ignatzorin/marketplace-backend/internal/storage"
	"github.com/ignatzorin/marketplace-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка загрузки конфигурации")
	}

	if cfg.IsProduction() {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}
	log := logger.WithComponent("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	migrations, err := db.MigrationsFS(cfg.MigrationsPath)
	if err != nil {
		log.WithError(err).Fatal("не удалось открыть каталог миграций")
	}
	if err := db.RunMigrations(ctx, dbConn, migrations); err != nil {
		log.WithError(err).Fatal("ошибка миграций")
	}

	// Кэш: Redis, если задан REDIS_URL, иначе в памяти процесса.
	var (
		store       cache.Cache
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("не удалось подключиться к redis")
		}
		defer redisClient.Close()
		store = cache.NewRedisCache(redisClient)
	} else {
		memory := cache.NewMemoryCache(time.Minute)
		defer memory.Close()
		store = memory
	}

	imageStorage, err := storage.NewImageStorage(cfg.MediaStoragePath, cfg.MediaBaseURL, cfg.MaxUploadSizeMB)
	if err != nil {
		log.WithError(err).Fatal("не удалось подготовить файловое хранилище")
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	serviceRepo := repository.NewServiceRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	categoryService := service.NewCategoryService(categoryRepo, serviceRepo, store, cfg.CacheTTL)
	catalogService := service.NewCatalogService(serviceRepo, categoryRepo, userRepo, reviewRepo, store, cfg.CacheTTL)

	// Уведомления об отзывах: через очередь asynq при наличии Redis, иначе напрямую.
	var notifier service.ReviewNotifier = notificationService
	if cfg.RedisURL != "" {
		queueClient, err := queue.NewClient(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("не удалось создать клиент очереди")
		}
		defer queueClient.Close()
		notifier = queue.NewNotifier(queueClient)

		worker, err := queue.NewWorker(cfg.RedisURL, notificationService)
		if err != nil {
			log.WithError(err).Fatal("не удалось создать обработчик очереди")
		}
		if err := worker.Start(); err != nil {
			log.WithError(err).Fatal("не удалось запустить обработчик очереди")
		}
		defer worker.Shutdown()
	}
	reviewService := service.NewReviewService(reviewRepo, userRepo, serviceRepo, notifier, store, cfg.CacheTTL, cfg.NotifyTimeout)

	// HTTP хэндлеры.
	checks := map[string]httpHandlers.HealthCheck{"database": dbConn.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService),
		Categories:    httpHandlers.NewCategoryHandler(categoryService),
		Services:      httpHandlers.NewServiceHandler(catalogService),
		Media:         httpHandlers.NewMediaHandler(imageStorage, catalogService),
		Reviews:       httpHandlers.NewReviewHandler(reviewService),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		WS:            httpHandlers.NewWSHandler(hub, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(checks),
		Seed:          httpHandlers.NewSeedHandler(service.NewSeedService(userRepo, categoryService, catalogService)),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	log.WithField("port", cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("сервер завершился с ошибкой")
	}
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
