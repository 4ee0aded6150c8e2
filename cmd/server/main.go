package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job_board/internal/config"
	"job_board/internal/domain"
	"job_board/internal/handler"
	"job_board/internal/middleware"
	"job_board/internal/publisher"
	"job_board/internal/repository"
	"job_board/internal/service"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var (
	authRateLimit    = domain.RateLimitRule{Scope: domain.RateLimitScopeAuth, Limit: 100, Window: time.Minute}
	messageRateLimit = domain.RateLimitRule{Scope: domain.RateLimitScopeMessage, Limit: 100, Window: time.Minute}
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)
	defer appLogger.Sync()

	// Подключение к PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to parse database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	// Проверка подключения к БД
	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Проверка подключения к Redis
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Publish Bridge: публикация в relay не блокирует ответ API
	var relayPublisher publisher.Publisher = publisher.NopPublisher{}
	var asyncPublisher *publisher.AsyncPublisher
	if cfg.Relay.URL != "" {
		httpPublisher := publisher.NewHTTPPublisher(cfg.Relay.URL, cfg.Relay.IngestToken, cfg.Relay.PublishTimeout)
		asyncPublisher = publisher.NewAsyncPublisher(httpPublisher, cfg.Relay.PublishTimeout, appLogger.With("component", "publisher"))
		relayPublisher = asyncPublisher
		appLogger.Info("Relay publisher configured", "relay_url", cfg.Relay.URL)
	} else {
		appLogger.Warn("RELAY_URL is empty, live updates disabled")
	}

	// Инициализация репозиториев
	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, relayPublisher, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, cfg, appLogger)

	// Настройка роутера
	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Дожидаемся начатых публикаций в relay
	if asyncPublisher != nil {
		if err := asyncPublisher.Close(ctx); err != nil {
			appLogger.Warn("Pending relay publishes abandoned", "error", err)
		}
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	// Health check
	router.GET("/health", handlers.Health.Check)

	// Адрес relay для клиентов
	router.GET("/server-info", handlers.Health.ServerInfo)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Публичные endpoints
		public := v1.Group("/auth")
		public.Use(rateLimitMiddleware.Limit(authRateLimit, false))
		{
			public.POST("/register", handlers.Auth.Register)
			public.POST("/login", handlers.Auth.Login)
		}

		// Защищенные endpoints
		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.GET("/users/me", handlers.User.GetMe)

			// Переписки
			protected.POST("/conversations", handlers.Conversation.Create)
			protected.GET("/conversations", handlers.Conversation.List)

			// Сообщения: Redis недоступен - лимит не применяется
			protected.GET("/messages", handlers.Message.GetMessages)
			protected.POST("/messages", rateLimitMiddleware.Limit(messageRateLimit, true), handlers.Message.SendMessage)

			// Уведомления
			protected.GET("/notifications", handlers.Notification.List)
			protected.PUT("/notifications/:id/read", handlers.Notification.MarkRead)
		}
	}

	return router
}
