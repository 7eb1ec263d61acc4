// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the RateSpy bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	DB        DBConfig        `mapstructure:"db" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Quote     QuoteConfig     `mapstructure:"quote"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Dialog    DialogConfig    `mapstructure:"dialog"`
	I18n      I18nConfig      `mapstructure:"i18n"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LoggerConfig controls the slog handler setup.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DBConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// QuoteConfig configures the Coinbase spot-price client.
type QuoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ForecastConfig configures the history window and chart artifact output.
type ForecastConfig struct {
	DaysBack     int    `mapstructure:"days_back"`
	HorizonDays  int    `mapstructure:"horizon_days"`
	ArtifactsDir string `mapstructure:"artifacts_dir"`
}

// NotifyConfig drives the periodic rate-refresh and alert job.
type NotifyConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CronSpec          string `mapstructure:"cron_spec"`
	WorkerConcurrency int    `mapstructure:"worker_concurrency"`
}

type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// DialogConfig bounds how long an abandoned dialog survives in Redis.
type DialogConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type I18nConfig struct {
	Dir         string `mapstructure:"dir"`
	DefaultLang string `mapstructure:"default_lang"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GetDBConnectionString returns a PostgreSQL DSN based on config values.
func (c *Config) GetDBConnectionString() string {
	sslMode := c.DB.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		sslMode,
	)
}
