package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/linkfinder-service/internal/adapter/httpprobe"
	"github.com/user/linkfinder-service/internal/adapter/postgres"
	redis_adapter "github.com/user/linkfinder-service/internal/adapter/redis"
	"github.com/user/linkfinder-service/internal/classifier"
	"github.com/user/linkfinder-service/internal/delivery/http/handler"
	"github.com/user/linkfinder-service/internal/delivery/http/router"
	"github.com/user/linkfinder-service/internal/selfping"
	"github.com/user/linkfinder-service/internal/usecase"
	"github.com/user/linkfinder-service/pkg/config"
	"github.com/user/linkfinder-service/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	zapLogger := logger.NewZap(os.Stdout, logLevel)
	defer zapLogger.Sync()
	slog.Info("Logger initialized", "level", logLevel.String())

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database Connections ---
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	documentRepo := postgres.NewDocumentRepo(dbpool)
	if err := documentRepo.Migrate(ctx); err != nil {
		slog.Error("Unable to migrate documents table", "error", err)
		os.Exit(1)
	}
	runRepo := redis_adapter.NewAuditRunRepo(rdb, cfg.RunTTL)

	// --- Use Cases ---
	cl, err := classifier.New(cfg.SiteURL, cfg.AdminPath)
	if err != nil {
		slog.Error("Invalid site configuration", "error", err)
		os.Exit(1)
	}
	normalizer, err := selfping.New(cfg.SiteURL)
	if err != nil {
		slog.Error("Invalid site configuration", "error", err)
		os.Exit(1)
	}
	proxies, err := httpprobe.NewProxyRotator(cfg.Proxies())
	if err != nil {
		slog.Error("Invalid PROBE_PROXIES", "error", err)
		os.Exit(1)
	}
	prober := httpprobe.NewHTTPProber(httpprobe.Config{
		UserAgent:    cfg.UserAgent,
		Referer:      cl.SiteURL(),
		Timeout:      cfg.ProbeTimeout,
		MaxRedirects: cfg.MaxRedirects,
		Proxies:      proxies,
	})
	audit := usecase.NewAuditUseCase(cl, prober, usecase.AuditConfig{
		MaxConcurrency: cfg.MaxConcurrency,
		RatePerSecond:  cfg.ProbeRatePerSecond,
	}, zapLogger.Named("audit"))
	auditService := usecase.NewAuditService(audit, documentRepo, runRepo, zapLogger.Named("runs"))
	rewrite := usecase.NewRewriteUseCase(documentRepo, normalizer, zapLogger.Named("rewrite"))

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(auditService, rewrite, map[string]handler.PingFunc{
		"postgres": dbpool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort, "site", cl.SiteURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := auditService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Audit runs did not finish persisting", "error", err)
	}
}
