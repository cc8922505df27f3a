// Package main is the entry point for the majifix API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"majifix/internal/core/locale"
	"majifix/internal/domain/service"
	v1 "majifix/internal/infrastructure/http/v1"
	"majifix/internal/infrastructure/storage/postgres"
	"majifix/internal/infrastructure/storage/postgres/reference_repo"
	"majifix/internal/infrastructure/storage/postgres/service_repo"
	"majifix/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting majifix server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	tm := postgres.NewTxManager(pool)

	// --- Locales ---
	supported := strings.Split(getEnv("LOCALES", locale.DefaultLocale), ",")
	for i := range supported {
		supported[i] = strings.TrimSpace(supported[i])
	}
	locales := locale.Config{
		Default:   getEnv("DEFAULT_LOCALE", locale.DefaultLocale),
		Supported: supported,
	}

	if getEnv("AUTO_MIGRATE", "true") == "true" {
		if err := postgres.Migrate(ctx, tm, locales); err != nil {
			log.Fatalw("failed to migrate schema", "error", err)
		}
	}

	// --- Services ---
	manager := service.NewManager(service.Config{
		Repo:       service_repo.New(tm),
		References: reference_repo.New(tm),
		Locales:    locales,
		Logger:     log,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Services: manager,
		Pool:     pool.Pool,
		Logger:   log,
		Locales:  locales,
	})

	// --- HTTP server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
