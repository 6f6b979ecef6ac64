package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/biblioteca-api/api/swagger"
	"github.com/noah-isme/biblioteca-api/internal/handler"
	"github.com/noah-isme/biblioteca-api/internal/middleware"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	"github.com/noah-isme/biblioteca-api/internal/service"
	"github.com/noah-isme/biblioteca-api/pkg/config"
	"github.com/noah-isme/biblioteca-api/pkg/database"
	"github.com/noah-isme/biblioteca-api/pkg/export"
	"github.com/noah-isme/biblioteca-api/pkg/logger"
	"github.com/noah-isme/biblioteca-api/pkg/ratelimit"
)

// @title Biblioteca API
// @version 1.0.0
// @description Loan requests, overdue reports and authentication for the school library.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	loanRepo := repository.NewLoanRequestRepository(db)
	bookRepo := repository.NewBookRepository(db)
	logRepo := repository.NewLogRepository(db)

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	audit := service.NewAuditTrail(logRepo, logr, service.AuditTrailConfig{
		Workers:    cfg.Loans.AuditWorkers,
		BufferSize: cfg.Loans.AuditBuffer,
	})
	audit.Start(ctx)
	defer audit.Stop()

	verifier := service.NewCredentialVerifier(service.CredentialPolicy{
		LegacyCredentialFallback: cfg.Auth.LegacyCredentialFallback,
		AllowPlaintextPasswords:  cfg.Auth.AllowPlaintextPasswords,
	})
	authSvc := service.NewAuthService(userRepo, verifier, audit, validator.New(), logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	guard := service.NewAccessGuard(nil, logr)
	if cfg.Auth.ResolveRolesFromStore {
		guard = service.NewAccessGuard(userRepo, logr)
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled || cfg.Cache.Enabled {
		redisClient, err = ratelimit.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
	}

	books := service.NewBookCatalog(bookRepo, nil, cfg.Cache.TTL, metrics, logr)
	if cfg.Cache.Enabled {
		cache := repository.NewCacheRepository(redisClient, cfg.Cache.Prefix)
		books = service.NewBookCatalog(bookRepo, cache, cfg.Cache.TTL, metrics, logr)
	}

	loanSvc := service.NewLoanRequestService(loanRepo, books, audit, metrics, logr)
	overdueSvc := service.NewOverdueService(loanRepo, books, cfg.Loans.Location(), logr,
		export.NewCSVExporter(), export.NewPDFExporter())

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		fixed, err := ratelimit.NewFixedWindowLimiter(redisClient, cfg.RateLimit.Prefix, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			logr.Fatal("rate limiter init failed", zap.Error(err))
		}
		limiter = fixed
	}

	var metricsHTTP http.Handler
	if metrics != nil {
		metricsHTTP = metrics.Handler()
	}

	r := newRouter(routerDeps{
		cfg:     cfg,
		logger:  logr,
		auth:    handler.NewAuthHandler(authSvc, metrics),
		loans:   handler.NewLoanRequestHandler(loanSvc, overdueSvc),
		health:  handler.NewMetricsHandler(metricsHTTP, db),
		jwt:     middleware.JWT(authSvc),
		admin:   middleware.RequireRoles(guard, "admin"),
		limit:   middleware.RateLimit(limiter, cfg.RateLimit.Window, metrics),
		metrics: metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "roleResolution", guard.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
