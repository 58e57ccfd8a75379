package router

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"muhtaref/internal/auth"
	"muhtaref/internal/config"
	"muhtaref/internal/handler"
	"muhtaref/internal/model"
)

// Deps carries everything the router wires together.
type Deps struct {
	Logger       *zap.Logger
	JWT          *auth.JWTService
	Sessions     auth.TokenStoreInterface
	LimiterStore limiter.Store
	HealthChecks map[string]func(ctx context.Context) error

	Auth  *handler.AuthHandler
	User  *handler.UserHandler
	Admin *handler.AdminHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, d Deps) error {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logger.Named("http")))
	e.Use(middleware.Recover())

	e.Validator = handler.NewValidator()

	e.GET("/healthz", Health(d.HealthChecks))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	store := d.LimiterStore
	if store == nil {
		store = memory.NewStore()
	}
	throttle, err := RateLimit(store, cfg.RateLimit)
	if err != nil {
		return err
	}
	requireJWT := JWT(d.JWT, d.Sessions)

	api := e.Group("/api")

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.Auth.Register, throttle)
	authGroup.POST("/login", d.Auth.Login, throttle)
	authGroup.POST("/refresh", d.Auth.Refresh)
	authGroup.POST("/forgot-password", d.Auth.ForgotPassword, throttle)
	authGroup.POST("/reset-password", d.Auth.ResetPassword, throttle)
	authGroup.POST("/logout", d.Auth.Logout, requireJWT)

	// Secured routes (require JWT authentication)
	secured := api.Group("", requireJWT)
	secured.GET("/me", d.User.GetMe)
	secured.PUT("/me", d.User.UpdateMe)

	admin := api.Group("/admin", requireJWT, RequireRole(model.RoleAdmin))
	admin.GET("/users", d.Admin.ListUsers)
	admin.POST("/users/:id/approve", d.Admin.Approve)
	admin.POST("/users/:id/toggle-suspension", d.Admin.ToggleSuspension)
	admin.DELETE("/users/:id", d.Admin.Delete)
	admin.POST("/users/:id/password", d.Admin.ResetPassword)
	admin.PUT("/users/:id/role", d.Admin.ChangeRole)
	admin.GET("/settings", d.Admin.GetSettings)
	admin.PUT("/settings", d.Admin.UpdateSettings)
	admin.GET("/logs", d.Admin.ListLogs)

	return nil
}
