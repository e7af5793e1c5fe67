// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrCloudNameRequired is returned when CLOUD_NAME is not set.
	ErrCloudNameRequired = errors.New("config: CLOUD_NAME is required")
	// ErrAPIKeyRequired is returned when API_KEY is not set.
	ErrAPIKeyRequired = errors.New("config: API_KEY is required")
	// ErrAPISecretRequired is returned when API_SECRET is not set.
	ErrAPISecretRequired = errors.New("config: API_SECRET is required")
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidUploadLimits is returned when MAX_UPLOAD_MB, MAX_FILES or
	// UPLOAD_CONCURRENCY is not positive.
	ErrInvalidUploadLimits = errors.New("config: upload limits must be positive")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Cloudinary credentials
	CloudName string `env:"CLOUD_NAME, required" json:"cloud_name"`
	APIKey    string `env:"API_KEY, required" json:"-"`    // Masked in JSON
	APISecret string `env:"API_SECRET, required" json:"-"` // Masked in JSON

	// Upload settings
	TempDir           string `env:"TEMP_DIR, default=/tmp/videojoin" json:"temp_dir"`
	MaxUploadMB       int64  `env:"MAX_UPLOAD_MB, default=200" json:"max_upload_mb"`
	MaxFiles          int    `env:"MAX_FILES, default=10" json:"max_files"`
	UploadConcurrency int    `env:"UPLOAD_CONCURRENCY, default=3" json:"upload_concurrency"`
	CleanupClips      bool   `env:"CLEANUP_CLIPS, default=true" json:"cleanup_clips"`

	// Optional S3 staging
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 staging is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MaxUploadBytes returns the per-request upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Load reads configuration from environment variables using go-envconfig.
// Variables from a .env file in the working directory are applied first
// without overriding ones already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		msg := err.Error()
		switch {
		case strings.Contains(msg, "CLOUD_NAME"):
			return nil, ErrCloudNameRequired
		case strings.Contains(msg, "API_SECRET"):
			return nil, ErrAPISecretRequired
		case strings.Contains(msg, "API_KEY"):
			return nil, ErrAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and that the
// numeric settings are usable.
func (c *Config) Validate() error {
	if c.CloudName == "" {
		return ErrCloudNameRequired
	}
	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.APISecret == "" {
		return ErrAPISecretRequired
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxUploadMB <= 0 || c.MaxFiles <= 0 || c.UploadConcurrency <= 0 {
		return ErrInvalidUploadLimits
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, CloudName: %s, TempDir: %s, MaxUploadMB: %d, MaxFiles: %d, UploadConcurrency: %d, CleanupClips: %t, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.CloudName,
		c.TempDir,
		c.MaxUploadMB,
		c.MaxFiles,
		c.UploadConcurrency,
		c.CleanupClips,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
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
