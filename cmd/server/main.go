package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/agri-advisor/pkg/advisor"
	"github.com/tendant/agri-advisor/pkg/advisor/api"
	"github.com/tendant/agri-advisor/pkg/advisor/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := api.NewMetrics()

	svc, closeAuditLog, err := cfg.BuildService(ctx, logger, advisor.WithObserver(metrics))
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer closeAuditLog()

	for _, st := range svc.Models() {
		if !st.Available {
			logger.Warn("Model unavailable, requests will receive an error body", "domain", st.Domain, "error", st.Error)
		}
	}

	routerCfg := api.RouterConfig{
		Logger:         logger,
		Metrics:        metrics,
		RateLimit:      rate.Limit(cfg.RateLimit),
		RateLimitBurst: cfg.RateLimitBurst,
		EnableCORS:     cfg.IsDevelopment(),
	}
	if cfg.LogsJWTSecret != "" {
		routerCfg.LogsAuth = jwtauth.New("HS256", []byte(cfg.LogsJWTSecret), nil)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(api.NewHandler(svc, logger), routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Agri advisor server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database", cfg.DatabaseType,
			"model_source", cfg.Models.Type,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server exiting")
	return nil
}
