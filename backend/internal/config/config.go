// Package config loads the process-level configuration the tensiond binary
// needs to wire itself up: where to listen for health checks, how to reach
// Redis, how to reach the job queue broker, and at what level to log. Domain
// configuration (decay rates, event impacts, conflict triggers) lives in
// tenconfig, not here -- this package only covers ambient process settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all ambient process configuration for tensiond.
type Config struct {
	Server ServerConfig
	Cache  CacheConfig
	Jobs   JobsConfig
	Log    LogConfig
	Domain DomainConfig
}

// DomainConfig points at the on-disk overrides for tenconfig's YAML
// repository. A missing directory or missing files within it are not
// errors -- tenconfig falls back to its built-in defaults file by file.
type DomainConfig struct {
	DataDir string
}

// ServerConfig holds the health/metrics listener configuration.
type ServerConfig struct {
	Port        string
	Environment string
}

// CacheConfig holds Redis connection configuration, used by the
// coordinator's comprehensive-analysis cache. Backend picks between
// "memory" (the coordinator's default, no external dependency) and "redis"
// (shared across tensiond instances); anything else falls back to memory.
type CacheConfig struct {
	Backend  string
	Host     string
	Port     int
	Password string
	DB       int
}

// JobsConfig holds the asynq broker configuration backing the periodic
// tension/faction decay ticks.
type JobsConfig struct {
	RedisHost        string
	RedisPort        int
	RedisPassword    string
	RedisDB          int
	Concurrency      int
	DecayInterval    time.Duration
	FactionDecayInterval time.Duration
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load loads configuration from environment variables, falling back to
// development-friendly defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.Environment = getEnv("ENV", "development")

	cfg.Cache.Backend = getEnv("CACHE_BACKEND", "memory")
	cfg.Cache.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Cache.Port = getEnvAsInt("REDIS_PORT", 6379)
	cfg.Cache.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Cache.DB = getEnvAsInt("REDIS_DB", 0)

	cfg.Jobs.RedisHost = getEnv("JOBS_REDIS_HOST", cfg.Cache.Host)
	cfg.Jobs.RedisPort = getEnvAsInt("JOBS_REDIS_PORT", cfg.Cache.Port)
	cfg.Jobs.RedisPassword = getEnv("JOBS_REDIS_PASSWORD", cfg.Cache.Password)
	cfg.Jobs.RedisDB = getEnvAsInt("JOBS_REDIS_DB", 1)
	cfg.Jobs.Concurrency = getEnvAsInt("JOBS_CONCURRENCY", 5)
	cfg.Jobs.DecayInterval = getEnvAsDuration("TENSION_DECAY_INTERVAL", time.Hour)
	cfg.Jobs.FactionDecayInterval = getEnvAsDuration("FACTION_DECAY_INTERVAL", 6*time.Hour)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Pretty = getEnvAsBool("LOG_PRETTY", false)

	cfg.Domain.DataDir = getEnv("TENSION_CONFIG_DIR", "configs/tension")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(strValue)
	if err != nil {
		return defaultValue
	}
	return duration
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Cache.Host == "" {
		return fmt.Errorf("cache host is required")
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs concurrency must be positive")
	}
	if c.Jobs.DecayInterval <= 0 {
		return fmt.Errorf("tension decay interval must be positive")
	}
	if c.Jobs.FactionDecayInterval <= 0 {
		return fmt.Errorf("faction decay interval must be positive")
	}
	return nil
}
