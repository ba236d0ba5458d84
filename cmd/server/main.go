package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/config"
	"github.com/iliyamo/stock-reservation/internal/database"
	"github.com/iliyamo/stock-reservation/internal/handler"
	"github.com/iliyamo/stock-reservation/internal/inventory"
	"github.com/iliyamo/stock-reservation/internal/metrics"
	"github.com/iliyamo/stock-reservation/internal/queue"
	"github.com/iliyamo/stock-reservation/internal/repository"
	"github.com/iliyamo/stock-reservation/internal/router"
	"github.com/iliyamo/stock-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()
	metrics.Register()

	// Inventory database is read-only for us: the authoritative stock count
	// lives there, we only broker holds against it.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("inventory database connection failed")
	}

	// Redis holds every reservation record and counter. Unlike a cache it
	// is not optional; without it the engine must refuse to run.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Fatal("redis connection failed; reservation store is mandatory")
	}

	clk := clock.NewSystem()
	store := repository.NewRedisStore(rdb)
	source := inventory.NewMySQLSource(db)
	calc := service.NewAvailability(store, source)
	guard := service.NewAbuseGuard(store, clk, cfg.MaxReservationsPerUser)
	manager := service.NewManager(store, calc, guard, clk,
		service.WithReservationTTL(cfg.ReservationTTL),
		service.WithAuditTTL(cfg.AuditRetentionTTL),
	)

	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartConfirmedConsumer(); err != nil {
				logrus.WithError(err).Error("reservation consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterReservations(e,
		handler.NewReservationHandler(manager, cfg.ConsumerEnabled),
		handler.NewStockHandler(calc),
		cfg.JWTSecret,
		config.LoadRateLimitConfig(),
		rdb,
	)

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{
		"addr":            addr,
		"env":             cfg.Env,
		"reservation_ttl": cfg.ReservationTTL,
	}).Info("listening")

	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
