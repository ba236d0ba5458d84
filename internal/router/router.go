// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/stock-reservation/internal/config"
	"github.com/iliyamo/stock-reservation/internal/handler"
	"github.com/iliyamo/stock-reservation/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: the health check for
// load balancers and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterReservations registers the reservation lifecycle and availability
// endpoints. JWT validation runs first so authenticated shoppers resolve to
// user owners; anonymous shoppers fall back to their session id. Creation is
// additionally rate limited per owner.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, s *handler.StockHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	// Availability is public: the product page shows it to every visitor.
	e.GET("/v1/stock/:product_id", s.Get)

	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireOwner)

	g.POST("", r.Create, middleware.NewTokenBucket(rl, rdb))
	g.GET("", r.List)
	g.POST("/:id/confirm", r.Confirm)
	g.DELETE("/:id", r.Release)
}
