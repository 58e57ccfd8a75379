package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "muhtaref/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"muhtaref/internal/audit"
	"muhtaref/internal/auth"
	"muhtaref/internal/cache"
	"muhtaref/internal/config"
	"muhtaref/internal/db"
	"muhtaref/internal/handler"
	"muhtaref/internal/logging"
	"muhtaref/internal/mail"
	"muhtaref/internal/repository"
	"muhtaref/internal/router"
	"muhtaref/internal/service"
)

// @title Muhtaref Accounts API
// @version 1.0
// @description Registration, authentication, role approval and password recovery for the quantity surveying app.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	e := echo.New()
	e.HideBanner = true

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	defer func() { _ = db.Close(gormDB) }()

	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.DropAll(gormDB); err != nil {
			logger.Fatal("drop tables", zap.Error(err))
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	settingsRepo := repository.NewSettingsRepository(gormDB)
	auditRepo := repository.NewAuditLogRepository(gormDB)

	// Initialize auth components
	hasher := auth.NewBcryptHasher(auth.BcryptCost)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	recorder := audit.NewRecorder(auditRepo, logger)

	mailer, err := mail.NewSender(cfg, logger)
	if err != nil {
		logger.Fatal("mail transport", zap.Error(err))
	}
	if closer, ok := mailer.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	// Initialize services
	authService := service.NewAuthService(service.AuthDeps{
		Users:       userRepo,
		Settings:    settingsRepo,
		Hasher:      hasher,
		JWT:         jwtService,
		Sessions:    tokenStore,
		ResetTokens: tokenStore,
		Mailer:      mailer,
		Audit:       recorder,
		Logger:      logger,
		AppBaseURL:  cfg.AppBaseURL,
	})
	userService := service.NewUserService(userRepo, cacheClient, recorder)
	adminService := service.NewAdminService(userRepo, auditRepo, hasher, cacheClient, tokenStore, recorder, logger)
	settingsService := service.NewSettingsService(userRepo, settingsRepo, recorder, logger)

	limiterStore, err := sredis.NewStoreWithOptions(cacheClient.Redis(), limiter.StoreOptions{
		Prefix:   "rate_limit",
		MaxRetry: 3,
	})
	if err != nil {
		logger.Fatal("rate limiter store", zap.Error(err))
	}

	// Register routes
	err = router.Register(e, cfg, router.Deps{
		Logger:       logger,
		JWT:          jwtService,
		Sessions:     tokenStore,
		LimiterStore: limiterStore,
		HealthChecks: map[string]func(ctx context.Context) error{
			"mysql": func(ctx context.Context) error {
				sqlDB, err := gormDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": cacheClient.Ping,
		},
		Auth:  handler.NewAuthHandler(authService),
		User:  handler.NewUserHandler(userService),
		Admin: handler.NewAdminHandler(adminService, settingsService),
	})
	if err != nil {
		logger.Fatal("register routes", zap.Error(err))
	}

	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg.SwaggerHost, cfg.ServerPort)))

	go func() {
		addr := ":" + cfg.ServerPort
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
	if err := authService.Drain(ctx); err != nil {
		logger.Error("pending password reset mail", zap.Error(err))
	}
}

// swaggerURL accepts SWAGGER_HOST with or without a scheme.
func swaggerURL(host, port string) string {
	if host == "" {
		return "http://localhost:" + port + "/swagger/index.html"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/") + "/swagger/index.html"
}
