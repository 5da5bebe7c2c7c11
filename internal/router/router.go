package router // package router wires handlers and middleware onto echo routes

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/ezhigval/wedding-bot/internal/config"
    "github.com/ezhigval/wedding-bot/internal/handler"
    "github.com/ezhigval/wedding-bot/internal/metrics"
    "github.com/ezhigval/wedding-bot/internal/middleware"
    "github.com/ezhigval/wedding-bot/internal/utils"
)

// RegisterRoutes registers the unauthenticated probes: /healthz and the
// Prometheus /metrics endpoint.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers POST /v1/auth/login.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
    g := e.Group("/v1/auth")
    g.POST("/login", a.Login)
}

// RegisterAdmin registers the seating operations under /v1/admin/seating.
// Every route requires a valid access token with the ADMIN role.
func RegisterAdmin(e *echo.Echo, s *handler.SeatingHandler, jwtSecret string) {
    g := e.Group("/v1/admin/seating", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin))
    g.POST("/header/rebuild", s.RebuildHeader)
    g.POST("/sync/guests", s.SyncGuests)
    g.POST("/sync/seating", s.SyncSeating)
    g.POST("/reconcile", s.Reconcile)
    g.POST("/lock", s.Lock)
    g.GET("/lock", s.LockStatus)
    g.GET("/guests", s.ListGuests)
    g.GET("/runs", s.ListRuns)
}

// RegisterHooks registers the edit webhook behind the shared secret and
// the Redis token bucket.
func RegisterHooks(e *echo.Echo, w *handler.WebhookHandler, secret string, rl config.RateLimitConfig, rdb *redis.Client) {
    e.POST("/v1/hooks/edit", w.Edit, middleware.WebhookSecret(secret), middleware.NewTokenBucket(rl, rdb))
}

// RegisterViews registers the cached read-only seating views.
func RegisterViews(e *echo.Echo, v *handler.ViewHandler, cc config.CacheConfig, rdb *redis.Client) {
    g := e.Group("/v1/seating", middleware.NewRedisCache(cc, rdb))
    g.GET("/tables", v.GetTables)
    g.GET("/chart", v.GetChart)
}
