package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	originalEnv := make(map[string]string)
	envVars := []string{
		"PORT", "ENV",
		"CACHE_BACKEND", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
		"JOBS_REDIS_HOST", "JOBS_REDIS_PORT", "JOBS_REDIS_PASSWORD", "JOBS_REDIS_DB",
		"JOBS_CONCURRENCY", "TENSION_DECAY_INTERVAL", "FACTION_DECAY_INTERVAL",
		"LOG_LEVEL", "LOG_PRETTY", "TENSION_CONFIG_DIR",
	}
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		require.NoError(t, os.Unsetenv(key))
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				require.NoError(t, os.Setenv(key, value))
			} else {
				require.NoError(t, os.Unsetenv(key))
			}
		}
	}()

	t.Run("loads default configuration", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "development", cfg.Server.Environment)

		assert.Equal(t, "memory", cfg.Cache.Backend)
		assert.Equal(t, "localhost", cfg.Cache.Host)
		assert.Equal(t, 6379, cfg.Cache.Port)
		assert.Equal(t, "", cfg.Cache.Password)
		assert.Equal(t, 0, cfg.Cache.DB)

		assert.Equal(t, "localhost", cfg.Jobs.RedisHost)
		assert.Equal(t, 6379, cfg.Jobs.RedisPort)
		assert.Equal(t, 1, cfg.Jobs.RedisDB)
		assert.Equal(t, 5, cfg.Jobs.Concurrency)
		assert.Equal(t, time.Hour, cfg.Jobs.DecayInterval)
		assert.Equal(t, 6*time.Hour, cfg.Jobs.FactionDecayInterval)

		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Pretty)

		assert.Equal(t, "configs/tension", cfg.Domain.DataDir)
	})

	t.Run("loads from environment variables", func(t *testing.T) {
		require.NoError(t, os.Setenv("PORT", "3000"))
		require.NoError(t, os.Setenv("ENV", "production"))
		require.NoError(t, os.Setenv("CACHE_BACKEND", "redis"))
		require.NoError(t, os.Setenv("REDIS_HOST", "redis-host"))
		require.NoError(t, os.Setenv("REDIS_PORT", "6380"))
		require.NoError(t, os.Setenv("REDIS_PASSWORD", "redis-pass"))
		require.NoError(t, os.Setenv("REDIS_DB", "2"))
		require.NoError(t, os.Setenv("JOBS_CONCURRENCY", "10"))
		require.NoError(t, os.Setenv("TENSION_DECAY_INTERVAL", "30m"))
		require.NoError(t, os.Setenv("FACTION_DECAY_INTERVAL", "3h"))
		require.NoError(t, os.Setenv("LOG_LEVEL", "debug"))
		require.NoError(t, os.Setenv("LOG_PRETTY", "true"))
		require.NoError(t, os.Setenv("TENSION_CONFIG_DIR", "/etc/tensiond/config"))

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, "redis", cfg.Cache.Backend)
		assert.Equal(t, "redis-host", cfg.Cache.Host)
		assert.Equal(t, 6380, cfg.Cache.Port)
		assert.Equal(t, "redis-pass", cfg.Cache.Password)
		assert.Equal(t, 2, cfg.Cache.DB)
		assert.Equal(t, "redis-host", cfg.Jobs.RedisHost)
		assert.Equal(t, 6380, cfg.Jobs.RedisPort)
		assert.Equal(t, 10, cfg.Jobs.Concurrency)
		assert.Equal(t, 30*time.Minute, cfg.Jobs.DecayInterval)
		assert.Equal(t, 3*time.Hour, cfg.Jobs.FactionDecayInterval)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Pretty)
		assert.Equal(t, "/etc/tensiond/config", cfg.Domain.DataDir)
	})

	t.Run("handles invalid port", func(t *testing.T) {
		require.NoError(t, os.Setenv("REDIS_PORT", "invalid"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 6379, cfg.Cache.Port)
	})

	t.Run("handles invalid duration", func(t *testing.T) {
		require.NoError(t, os.Setenv("TENSION_DECAY_INTERVAL", "invalid"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.Jobs.DecayInterval)
	})

	t.Run("handles invalid bool", func(t *testing.T) {
		require.NoError(t, os.Setenv("LOG_PRETTY", "invalid"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Log.Pretty)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", Environment: "development"},
			Cache:  CacheConfig{Host: "localhost", Port: 6379},
			Jobs: JobsConfig{
				Concurrency:          5,
				DecayInterval:        time.Hour,
				FactionDecayInterval: 6 * time.Hour,
			},
			Log: LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid configuration",
			modify: func(c *Config) {},
		},
		{
			name:    "missing server port",
			modify:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "missing cache host",
			modify:  func(c *Config) { c.Cache.Host = "" },
			wantErr: "cache host is required",
		},
		{
			name:    "non-positive jobs concurrency",
			modify:  func(c *Config) { c.Jobs.Concurrency = 0 },
			wantErr: "jobs concurrency must be positive",
		},
		{
			name:    "non-positive decay interval",
			modify:  func(c *Config) { c.Jobs.DecayInterval = 0 },
			wantErr: "tension decay interval must be positive",
		},
		{
			name:    "non-positive faction decay interval",
			modify:  func(c *Config) { c.Jobs.FactionDecayInterval = 0 },
			wantErr: "faction decay interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
