package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the engagement engine.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	HTTP       HTTPConfig       `mapstructure:"http" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis" validate:"required"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Email      EmailConfig      `mapstructure:"email"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

// HTTPConfig configures the public HTTP listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`

	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}

// RedisConfig configures the Redis connection used for the OTP store,
// rate limiting and job queueing.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// LoggerConfig controls log level, format and file rotation.
type LoggerConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables rotated file output alongside stdout.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig enables error reporting to Sentry.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// EmailConfig configures the transactional email provider used for
// re-engagement notices.
type EmailConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIBase    string `mapstructure:"api_base"`
	APIKey     string `mapstructure:"api_key"`
	Sender     string `mapstructure:"sender"`
	SenderName string `mapstructure:"sender_name"`
	// LoginURL is the call-to-action target embedded in notices.
	LoginURL string `mapstructure:"login_url"`
}

// EngagementConfig tunes the sweep schedule and retention.
type EngagementConfig struct {
	// SweepCron is the cron expression for the daily inactivity sweep.
	SweepCron string `mapstructure:"sweep_cron"`
	// MessageRetentionDays bounds chat history kept by the cleanup
	// job.
	MessageRetentionDays int `mapstructure:"message_retention_days"`
	// OTPTTL bounds how long a one-time code stays redeemable.
	OTPTTL time.Duration `mapstructure:"otp_ttl"`
}

// RateLimitRule is one limit/window pair.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig holds the per-endpoint rules.
type RateLimitConfig struct {
	Login  RateLimitRule `mapstructure:"login"`
	Signup RateLimitRule `mapstructure:"signup"`
}

// AdminConfig guards the admin console endpoints.
type AdminConfig struct {
	// Token is the opaque bearer credential required on admin routes.
	Token string `mapstructure:"token"`
}
