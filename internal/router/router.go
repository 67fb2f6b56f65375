// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/taller-ot/productos-api/internal/config"
	"github.com/taller-ot/productos-api/internal/handler"
	"github.com/taller-ot/productos-api/internal/middleware"
)

// Register wires every route. Rate limiting covers the whole surface; the
// redis response cache covers the read-heavy product listings and
// statistics; everything under /productos plus the profile endpoint requires
// a Bearer access token.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	ah *handler.AuthHandler, ph *handler.ProductoHandler, hh *handler.HealthHandler) {

	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Liveness endpoints are open: monitors have no credentials.
	e.GET("/health/", hh.Check)
	e.GET("/ping/", hh.Ping)

	auth := e.Group("/auth")
	auth.POST("/login/", ah.Login)
	auth.POST("/register/", ah.Register)
	auth.POST("/refresh/", ah.Refresh)
	auth.POST("/logout/", ah.Logout)
	auth.GET("/profile/", ah.Profile, middleware.JWTAuth(cfg.JWTSecret))

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	p := e.Group("/productos", middleware.JWTAuth(cfg.JWTSecret))
	p.GET("/", ph.List, cache)
	p.POST("/", ph.Create)
	p.GET("/estadisticas/", ph.Estadisticas, cache)
	p.GET("/:id/", ph.Get)
	p.PUT("/:id/", ph.Update)
	p.PATCH("/:id/", ph.Update)
	p.DELETE("/:id/", ph.Delete)
	p.GET("/:id/descargar-ot/", ph.DescargarOT)
	p.POST("/:id/reducir-stock/", ph.ReducirStock)
	p.POST("/:id/aumentar-stock/", ph.AumentarStock)
}
