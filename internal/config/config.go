package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/combat-engine/pkg/combat"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL      string
	StorageDriver string // "redis" or "sqlite"
	SQLitePath    string
	DataDir       string
	ResolutionTTL time.Duration

	OutcomeProfiles string
	FallbackPolicy  combat.FallbackPolicy
	RNGSeed         uint64

	WorkerID string
}

func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "redis")),
		SQLitePath:      getEnv("SQLITE_PATH", filepath.Join(dataDir, "combat.db")),
		DataDir:         dataDir,
		OutcomeProfiles: getEnv("OUTCOME_PROFILES", filepath.Join(dataDir, "outcomes.yaml")),
		WorkerID:        os.Getenv("WORKER_ID"),
	}

	switch cfg.StorageDriver {
	case "redis", "sqlite":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q (supported: redis, sqlite)", cfg.StorageDriver)
	}

	policy, err := combat.ParseFallbackPolicy(strings.ToLower(getEnv("FALLBACK_POLICY", "miss")))
	if err != nil {
		return nil, fmt.Errorf("invalid FALLBACK_POLICY: %w", err)
	}
	cfg.FallbackPolicy = policy

	seed, err := strconv.ParseUint(getEnv("RNG_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RNG_SEED: %w", err)
	}
	cfg.RNGSeed = seed

	ttl, err := time.ParseDuration(getEnv("RESOLUTION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESOLUTION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("RESOLUTION_TTL must be positive")
	}
	cfg.ResolutionTTL = ttl

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
