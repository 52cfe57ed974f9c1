package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Deploy     DeployConfig     `mapstructure:"deploy"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Salesforce SalesforceConfig `mapstructure:"salesforce"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds admin authentication configuration.
// The admin API is disabled unless both JWTSecret and AdminPasswordHash are set.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"` // argon2id, see "advisor admin hash-password"
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

// AdminEnabled reports whether admin login can succeed.
func (c AuthConfig) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

// DeployConfig holds deployment runner configuration.
type DeployConfig struct {
	StepInterval  time.Duration `mapstructure:"step_interval"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	CycleTimeout  time.Duration `mapstructure:"cycle_timeout"`
}

// CacheConfig holds package bundle cache configuration.
// An empty RedisAddr selects the in-process cache.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
}

// SalesforceConfig holds the simulated org settings.
type SalesforceConfig struct {
	APIVersion   string        `mapstructure:"api_version"`
	ConnectDelay time.Duration `mapstructure:"connect_delay"`
	TestDelay    time.Duration `mapstructure:"test_delay"`
	DeployDelay  time.Duration `mapstructure:"deploy_delay"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("deploy.step_interval", "500ms")
	v.SetDefault("deploy.max_concurrent", 4)
	v.SetDefault("deploy.cycle_timeout", "1m")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("salesforce.api_version", metadata.DefaultAPIVersion)
	v.SetDefault("salesforce.connect_delay", "2s")
	v.SetDefault("salesforce.test_delay", "1s")
	v.SetDefault("salesforce.deploy_delay", "3s")
	v.SetDefault("data_dir", "data")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var parseErr viper.ConfigParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// Missing file falls back to defaults.
		}
	}

	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(v.GetString("data_dir"), "advisor.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Deploy.MaxConcurrent < 0 {
		return fmt.Errorf("deploy.max_concurrent must not be negative")
	}
	if c.Salesforce.APIVersion != "" && !metadata.ValidAPIVersion(c.Salesforce.APIVersion) {
		return fmt.Errorf("salesforce.api_version %q is not a valid API version", c.Salesforce.APIVersion)
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
