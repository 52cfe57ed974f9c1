package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, filepath.Join("data", "advisor.db"), cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.AdminEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.Deploy.StepInterval)
	assert.Equal(t, 4, cfg.Deploy.MaxConcurrent)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, metadata.DefaultAPIVersion, cfg.Salesforce.APIVersion)
	assert.Equal(t, 2*time.Second, cfg.Salesforce.ConnectDelay)
	assert.Equal(t, 3*time.Second, cfg.Salesforce.DeployDelay)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 60s
  shutdown_timeout: 15s

database:
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "text"

auth:
  jwt_secret: "file-secret"
  admin_password_hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"
  token_ttl: 2h

deploy:
  step_interval: 250ms
  max_concurrent: 8

cache:
  redis_addr: "localhost:6379"
  redis_db: 2
  ttl: 10m

salesforce:
  api_version: "60.0"
  deploy_delay: 0s
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Auth.AdminEnabled())
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Deploy.StepInterval)
	assert.Equal(t, 8, cfg.Deploy.MaxConcurrent)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 2, cfg.Cache.RedisDB)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "60.0", cfg.Salesforce.APIVersion)
	assert.Zero(t, cfg.Salesforce.DeployDelay)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("ADVISOR_SERVER_HOST", "192.168.1.1")
	t.Setenv("ADVISOR_SERVER_PORT", "3000")
	t.Setenv("ADVISOR_DATABASE_DSN", "/custom/path.db")
	t.Setenv("ADVISOR_LOG_LEVEL", "warn")
	t.Setenv("ADVISOR_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("ADVISOR_CACHE_REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
}

func TestLoadConfig_DataDirDerivesDSN(t *testing.T) {
	clearEnv(t)

	t.Setenv("ADVISOR_DATA_DIR", "/var/lib/advisor")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/advisor/advisor.db", cfg.Database.DSN)
}

func TestLoadConfig_ExplicitDSNOverridesDataDir(t *testing.T) {
	clearEnv(t)

	t.Setenv("ADVISOR_DATA_DIR", "/var/lib/advisor")
	t.Setenv("ADVISOR_DATABASE_DSN", "/custom/path.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "ADVISOR_SERVER_PORT", "70000"},
		{"negative concurrency", "ADVISOR_DEPLOY_MAX_CONCURRENT", "-1"},
		{"bad api version", "ADVISOR_SALESFORCE_API_VERSION", "v58"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		for _, level := range []string{"debug", "info", "warn", "error", "invalid"} {
			cfg := &Config{Log: LogConfig{Level: level, Format: format}}
			assert.NotNil(t, SetupLogger(cfg), "%s/%s", format, level)
		}
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "localhost", Port: 8080}}
	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"ADVISOR_SERVER_HOST",
		"ADVISOR_SERVER_PORT",
		"ADVISOR_DATABASE_DSN",
		"ADVISOR_DATA_DIR",
		"ADVISOR_LOG_LEVEL",
		"ADVISOR_LOG_FORMAT",
		"ADVISOR_AUTH_JWT_SECRET",
		"ADVISOR_AUTH_ADMIN_PASSWORD_HASH",
		"ADVISOR_DEPLOY_MAX_CONCURRENT",
		"ADVISOR_CACHE_REDIS_ADDR",
		"ADVISOR_SALESFORCE_API_VERSION",
	}
	for _, v := range envVars {
		// t.Setenv restores the previous value when the test ends.
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
