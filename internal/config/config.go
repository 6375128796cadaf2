// Package config loads runtime configuration from the environment, with an
// optional YAML override file for deployments that prefer files over
// variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `env:"SERVER_HOST,default=0.0.0.0" yaml:"host"`
	Port int    `env:"SERVER_PORT,default=8000" yaml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format     string `env:"LOG_FORMAT,default=json" yaml:"format"`
	Output     string `env:"LOG_OUTPUT,default=stdout" yaml:"output"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=coverage_layer" yaml:"file_prefix"`
}

// AuthConfig controls session token issuance.
type AuthConfig struct {
	Secret      string `env:"SECRET_KEY,default=mock-secret-key" yaml:"secret"`
	ExpiryHours int    `env:"JWT_EXPIRY,default=24" yaml:"expiry_hours"`
}

// CORSConfig lists allowed origins; "*" allows all.
type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*" yaml:"allowed_origins"`
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=50" yaml:"requests_per_second"`
	Burst             int `env:"RATE_LIMIT_BURST,default=100" yaml:"burst"`
}

// SweepConfig controls the background policy expiry sweeper. A zero interval
// disables the sweeper; lazy read-side expiry still applies.
type SweepConfig struct {
	Interval time.Duration `env:"POLICY_SWEEP_INTERVAL,default=1m" yaml:"interval"`
}

// AuditConfig controls the request audit trail. An empty path keeps the
// in-memory ring buffer only.
type AuditConfig struct {
	LogPath    string `env:"AUDIT_LOG_PATH,default=" yaml:"log_path"`
	MaxEntries int    `env:"AUDIT_MAX_ENTRIES,default=200" yaml:"max_entries"`
}

// Config is the full runtime configuration.
type Config struct {
	Environment string          `env:"ENVIRONMENT,default=development" yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Logging     LoggingConfig   `yaml:"logging"`
	Auth        AuthConfig      `yaml:"auth"`
	CORS        CORSConfig      `yaml:"cors"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Sweep       SweepConfig     `yaml:"sweep"`
	Audit       AuditConfig     `yaml:"audit"`
}

// Load reads .env if present, decodes the environment, then applies the YAML
// file named by CONFIG_FILE when set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Auth.ExpiryHours <= 0 {
		return nil, fmt.Errorf("token expiry must be positive, got %d", cfg.Auth.ExpiryHours)
	}

	return &cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// TokenExpiry returns the configured session lifetime.
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.Auth.ExpiryHours) * time.Hour
}
