// The sweeper binary removes logically expired reservations as a backstop to
// native TTL eviction. It is meant to run on an external schedule: invoked
// by cron it performs one pass and exits; with SWEEP_INTERVAL set it loops
// on a timer instead.
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/stock-reservation/internal/clock"
	"github.com/iliyamo/stock-reservation/internal/config"
	"github.com/iliyamo/stock-reservation/internal/metrics"
	"github.com/iliyamo/stock-reservation/internal/repository"
	"github.com/iliyamo/stock-reservation/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	metrics.Register()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Fatal("redis connection failed; nothing to sweep")
	}

	sweeper := service.NewSweeper(repository.NewRedisStore(rdb), clock.NewSystem())

	if cfg.SweepInterval <= 0 {
		sweep(sweeper)
		return
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	logrus.WithField("interval", cfg.SweepInterval).Info("sweeper loop started")
	for range ticker.C {
		sweep(sweeper)
	}
}

func sweep(s *service.Sweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	removed, err := s.CleanupExpired(ctx)
	if err != nil {
		logrus.WithError(err).Error("sweep failed")
		return
	}
	logrus.WithFields(logrus.Fields{
		"removed":  removed,
		"duration": time.Since(start),
	}).Info("sweep complete")
}
