// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures server and engine configuration.
type Config struct {
	Addr          string
	DBPath        string
	JWTSigningKey string
	JWTTokenTTL   time.Duration

	// JanitorInterval is how often the orphan sweep runs; zero disables
	// the in-process scheduler.
	JanitorInterval time.Duration
	// JanitorPageSize bounds one page of the friend-table scan.
	JanitorPageSize int
	// JanitorMaxDeletes caps hard deletions per run to bound the blast
	// radius of a single scheduled invocation.
	JanitorMaxDeletes int

	// AliasFullScanFallback enables the legacy equivalence-class path
	// that scans the whole alias table instead of the canonical index.
	// Keep off unless an index backfill is in flight.
	AliasFullScanFallback bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:                  getEnv("PAYBACK_ADDR", ":8080"),
		DBPath:                getEnv("DB_PATH", "./data/payback.db"),
		JWTSigningKey:         getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTTokenTTL:           getDuration("JWT_TOKEN_TTL", 24*time.Hour),
		JanitorInterval:       getDuration("JANITOR_INTERVAL", time.Hour),
		JanitorPageSize:       getInt("JANITOR_PAGE_SIZE", 100),
		JanitorMaxDeletes:     getInt("JANITOR_MAX_DELETES", 5),
		AliasFullScanFallback: os.Getenv("ALIAS_FULL_SCAN_FALLBACK") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
