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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/handlers"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/SscSPs/erp_ledger/internal/platform/bootstrap"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

const (
	spoolReplayInterval = time.Minute
	shutdownTimeout     = 15 * time.Second
)

// @title ERP Ledger API
// @version 1.0
// @description Journal posting, fiscal period and currency policy core of the ERP ledger.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key

// @security BearerAuth
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, cfg, logger, bootstrap.Options{Migrate: true, WithSpool: true, WithAnalytics: true})
	if err != nil {
		logger.Error("Failed to start ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rt.Close()

	go rt.ReplaySpoolEvery(ctx, spoolReplayInterval)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader, "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, rt.Services, authz.NewPolicy(authz.DefaultModuleMap),
		[]gin.HandlerFunc{
			middleware.APITokenAuth(rt.Services.APIToken),
			middleware.AuthMiddleware(cfg.JWTSecret),
		},
		middleware.RateLimit(limiter),
		middleware.PosthogMiddleware(rt.Analytics),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}
