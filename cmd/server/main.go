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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/meniumate/internal/auth"
	"github.com/mmynk/meniumate/internal/config"
	"github.com/mmynk/meniumate/internal/handler"
	"github.com/mmynk/meniumate/internal/metrics"
	"github.com/mmynk/meniumate/internal/middleware"
	"github.com/mmynk/meniumate/internal/service"
	"github.com/mmynk/meniumate/internal/storage/sqlite"
	"github.com/mmynk/meniumate/pkg/logging"
)

func main() {
	logger := logging.Setup()

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.UsesDevSecret() {
		slog.Warn("JWT_SECRET not set, using development secret")
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     cfg.GeneralRate,
		GeneralBurst:    cfg.GeneralBurst,
		AuthRate:        cfg.AuthRate,
		AuthBurst:       cfg.AuthBurst,
		CleanupInterval: 5 * time.Minute,
	})
	defer limiter.Stop()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	router := handler.NewRouter(&handler.RouterDeps{
		AuthService: service.NewAuthService(
			auth.NewPasswordAuthenticator(store, cfg.AdminUsernames...),
			jwtManager, store, store, cfg.RefreshTokenTTL, logger,
		),
		GroupService:      service.NewGroupService(store, logger),
		CatalogService:    service.NewCatalogService(store, logger),
		JWTManager:        jwtManager,
		RateLimiter:       limiter,
		Metrics:           metrics.NewCollector(reg),
		Gatherer:          reg,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server starting", "address", cfg.Addr, "admins", len(cfg.AdminUsernames))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
