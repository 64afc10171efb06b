// Package main is the entry point for the kitanda API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kitanda/internal/bootstrap"
	"kitanda/internal/config"
	"kitanda/internal/domain/auth"
	v1 "kitanda/internal/infrastructure/http/v1"
	"kitanda/internal/infrastructure/http/v1/handlers"
	"kitanda/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer log.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting kitanda server", "version", version, "storage", cfg.Storage.Driver)

	deps, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}
	defer deps.Close()

	cfg.WatchRates(func(rates map[string]decimal.Decimal) {
		for code, rate := range rates {
			if err := deps.Converter.SetRate(code, rate); err != nil {
				log.Warnw("exchange rate rejected", "currency", code, "error", err)
			}
		}
		log.Infow("exchange rates reloaded", "count", len(rates))
	}, func(err error) {
		log.Errorw("invalid exchange rates in config", "error", err)
	})

	checks := map[string]handlers.Pinger{}
	if deps.TxManager != nil {
		checks["database"] = deps.TxManager
	}

	var validator *auth.JWTService
	if !cfg.Auth.Disabled {
		jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
		jwtCfg.Issuer = cfg.Auth.Issuer
		validator = auth.NewJWTService(jwtCfg)
	} else {
		log.Warn("authentication disabled; every request runs as local admin")
	}

	routerCfg := v1.RouterConfig{
		Logger:       log,
		AuthDisabled: cfg.Auth.Disabled,
		Documents:    deps.Documents,
		Series:       deps.Series,
		Allocator:    deps.Allocator,
		Converter:    deps.Converter,
		Model7:       deps.Model7,
		History:      deps.History,
		Requests:     deps.Metrics,
		HealthChecks: checks,
		Version:      version,
	}
	if validator != nil {
		routerCfg.JWTValidator = validator
	}
	router := v1.NewRouter(routerCfg)

	go newOverdueJob(deps.Documents, cfg.Storage.OverdueInterval, log).Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("HTTP server listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	deps.LogPoolStats(shutdownCtx)

	log.Info("server stopped")
}
