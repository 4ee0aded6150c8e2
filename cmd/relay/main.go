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
	"job_board/internal/handler"
	"job_board/internal/middleware"
	"job_board/internal/realtime"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Relay не использует БД и JWT
	cfg, err := config.LoadRelay()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level).With("service", "relay")
	defer appLogger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := realtime.NewHub(appLogger)
	go hub.Run(ctx)

	relayHandler := handler.NewRelayHandler(hub, cfg.Relay.IngestToken, appLogger)
	router := setupRouter(relayHandler, cfg, appLogger)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Relay.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		appLogger.Info("Relay listening", "port", cfg.Relay.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start relay", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down relay...")

	// Сначала закрываем websocket-соединения: Shutdown не ждет hijacked-соединения
	stop()
	<-hub.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Relay forced to shutdown", "error", err)
	}

	appLogger.Info("Relay exited")
}

func setupRouter(relay *handler.RelayHandler, cfg *config.Config, log logger.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", relay.Health)
	router.POST("/emit-message", relay.Emit)
	router.GET("/ws", relay.HandleSocket)

	return router
}
