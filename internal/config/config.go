// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Durations are parsed with time.ParseDuration.
type Config struct {
	Env                    string        // application environment (e.g. "dev", "prod")
	Port                   string        // HTTP port to listen on
	DBUser                 string        // inventory database username
	DBPass                 string        // inventory database password (optional)
	DBHost                 string        // inventory database host address
	DBPort                 string        // inventory database port number
	DBName                 string        // inventory database name
	JWTSecret              string        // secret used to verify access tokens
	ReservationTTL         time.Duration // how long a new hold stays valid
	AuditRetentionTTL      time.Duration // how long confirmed holds stay readable
	MaxReservationsPerUser int           // cap on concurrent active holds per owner
	SweepInterval          time.Duration // sweeper loop interval; 0 runs a single pass
	ConsumerEnabled        bool          // start the reservation.confirmed consumer
}

// Load reads configuration from the environment. Required variables are
// enforced by must(); missing values exit with a fatal log message.
// Defaulted values fall back when unset or unparsable.
func Load() Config {
	return Config{
		Env:                    must("APP_ENV"),
		Port:                   must("APP_PORT"),
		DBUser:                 must("DB_USER"),
		DBPass:                 os.Getenv("DB_PASS"),
		DBHost:                 must("DB_HOST"),
		DBPort:                 must("DB_PORT"),
		DBName:                 must("DB_NAME"),
		JWTSecret:              must("JWT_SECRET"),
		ReservationTTL:         parseDur(getenv("RESERVATION_TTL", "15m")),
		AuditRetentionTTL:      parseDur(getenv("AUDIT_RETENTION_TTL", "24h")),
		MaxReservationsPerUser: atoi(getenv("MAX_RESERVATIONS_PER_USER", "10")),
		SweepInterval:          parseDur(getenv("SWEEP_INTERVAL", "0s")),
		ConsumerEnabled:        getenv("CONSUMER_ENABLED", "true") == "true",
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
