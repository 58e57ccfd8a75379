package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"muhtaref/internal/auth"
	"muhtaref/internal/cache"
	"muhtaref/internal/config"
	"muhtaref/internal/handler"
	"muhtaref/internal/model"
)

func setupAuth(t *testing.T) (*auth.JWTService, *auth.TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return auth.NewJWTService("test-secret"), auth.NewTokenStore(c)
}

func tokenFor(t *testing.T, svc *auth.JWTService, role model.Role) (string, *auth.Claims) {
	t.Helper()
	token, err := svc.GenerateAccessToken(&model.User{ID: uuid.New(), Email: "u@example.com", Role: role})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	return token, claims
}

func newTestServer(t *testing.T, jwtSvc *auth.JWTService, sessions auth.TokenStoreInterface, rate string) *echo.Echo {
	t.Helper()
	e := echo.New()
	err := Register(e, &config.Config{RateLimit: rate}, Deps{
		JWT:          jwtSvc,
		Sessions:     sessions,
		LimiterStore: memory.NewStore(),
		HealthChecks: map[string]func(context.Context) error{
			"mysql": func(context.Context) error { return nil },
		},
		Auth:  handler.NewAuthHandler(nil),
		User:  handler.NewUserHandler(nil),
		Admin: handler.NewAdminHandler(nil, nil),
	})
	require.NoError(t, err)
	return e
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	jwtSvc, store := setupAuth(t)
	e := echo.New()
	e.GET("/private", func(c echo.Context) error {
		claims := c.Get(handler.ClaimsContextKey).(*auth.Claims)
		return c.String(http.StatusOK, claims.UserID)
	}, JWT(jwtSvc, store))

	token, claims := tokenFor(t, jwtSvc, model.RoleOwner)
	rec := serve(e, http.MethodGet, "/private", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, claims.UserID, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/private", "garbage").Code)

	_, refresh, err := jwtSvc.GenerateRefreshToken(&model.User{ID: uuid.New(), Role: model.RoleOwner})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/private", refresh).Code)

	require.NoError(t, store.BlacklistAccessToken(context.Background(), claims.ID, time.Minute))
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/private", token).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/admin", ok, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(handler.ClaimsContextKey, &auth.Claims{Role: model.Role(c.QueryParam("role"))})
			return next(c)
		}
	}, RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/admin?role=ADMIN", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin?role=ENGINEER", "").Code)
}

func TestRateLimit(t *testing.T) {
	mw, err := RateLimit(memory.NewStore(), "2-M")
	require.NoError(t, err)

	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login", "").Code)
	rec := serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	_, err = RateLimit(memory.NewStore(), "lots")
	assert.Error(t, err)
}

func TestRegister_RouteGuards(t *testing.T) {
	jwtSvc, store := setupAuth(t)
	e := newTestServer(t, jwtSvc, store, "100-M")

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/api/admin/users", "").Code)

	owner, _ := tokenFor(t, jwtSvc, model.RoleOwner)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/api/admin/users", owner).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPut, "/api/admin/settings", owner).Code)
}

func TestRegister_InvalidRate(t *testing.T) {
	err := Register(echo.New(), &config.Config{RateLimit: "fast"}, Deps{})
	assert.Error(t, err)
}

func TestHealth_ReportsFailures(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health(map[string]func(context.Context) error{
		"mysql": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	}))

	rec := serve(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"mysql":"ok","redis":"down"}`, rec.Body.String())
}
