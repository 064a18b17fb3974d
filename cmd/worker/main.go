package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"criteria-analyzer/internal/adapter/clickhouse"
	"criteria-analyzer/internal/di"
	"criteria-analyzer/internal/handler"
	"criteria-analyzer/internal/infra"
	"criteria-analyzer/internal/infra/config"
	"criteria-analyzer/internal/infra/logger"
	otelinfra "criteria-analyzer/internal/infra/otel"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize OTel (no-op unless enabled)
	otelCfg := otelinfra.ConfigFromEnv()
	otelCfg.Enabled = cfg.OTelEnabled
	otelShutdown, err := otelinfra.InitProvider(context.Background(), otelCfg)
	if err != nil {
		slog.Error("failed to init otel provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown failed", "error", err)
		}
	}()

	// 3. Initialize Logger
	log := logger.NewWithOTel(cfg.LogLevel, cfg.OTelEnabled)
	slog.SetDefault(log)

	// 4. Initialize Postgres
	dbPool, err := infra.NewPostgresDB(context.Background(), cfg.PostgresDSN())
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 5. Initialize ClickHouse
	events, err := clickhouse.New(context.Background(), clickhouse.Config{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	})
	if err != nil {
		log.Error("failed to connect to clickhouse", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	// 6. Initialize Redis
	redisClient, err := infra.NewRedisClient(context.Background(), cfg.Redis.URL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// 7. Wire components
	components := di.NewApplicationComponents(cfg, dbPool, events, redisClient, log)

	// 8. Start Worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	components.Worker.Start(workerCtx)
	defer func() {
		log.Info("Stopping worker...")
		workerCancel()
		components.Worker.Stop()
	}()

	// 9. Health server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	healthHandler := handler.NewHealthHandler(dbPool, events, redisClient, components.LLM)
	healthHandler.Register(e)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("Starting health server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("health server stopped", "error", err)
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", "error", err)
	}
}
