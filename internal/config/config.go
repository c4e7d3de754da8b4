package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Email    EmailConfig    `mapstructure:"email"`
	Notifier NotifierConfig `mapstructure:"notifier"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT"`
	User     string `mapstructure:"user" envconfig:"DB_USER"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// AuthConfig holds what is needed to verify access tokens issued by the
// identity provider. Session issuance itself happens elsewhere.
type AuthConfig struct {
	TokenSecret string `mapstructure:"token_secret" envconfig:"AUTH_TOKEN_SECRET"`
}

type ChatConfig struct {
	BotToken string `mapstructure:"bot_token" envconfig:"CHAT_BOT_TOKEN"`
}

// EmailConfig is the static fallback; the settings table overrides it
// per dispatcher run.
type EmailConfig struct {
	Provider string         `mapstructure:"provider" envconfig:"EMAIL_PROVIDER"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	API      EmailAPIConfig `mapstructure:"api"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" json:"host,omitempty" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" json:"port,omitempty" envconfig:"SMTP_PORT"`
	User     string `mapstructure:"user" json:"user,omitempty" envconfig:"SMTP_USER"`
	Password string `mapstructure:"password" json:"password,omitempty" envconfig:"SMTP_PASSWORD"`
	FromName string `mapstructure:"from_name" json:"from_name,omitempty" envconfig:"SMTP_FROM_NAME"`
}

type EmailAPIConfig struct {
	URL       string `mapstructure:"url" json:"url,omitempty" envconfig:"EMAIL_API_URL"`
	Key       string `mapstructure:"key" json:"key,omitempty" envconfig:"EMAIL_API_KEY"`
	FromEmail string `mapstructure:"from_email" json:"from_email,omitempty" envconfig:"EMAIL_API_FROM"`
}

type NotifierConfig struct {
	// Timezone is the single authority for "today": it drives both the
	// days-left calculation and the daily dedup boundary.
	Timezone    string        `mapstructure:"timezone" envconfig:"NOTIFIER_TIMEZONE"`
	DailyAt     string        `mapstructure:"daily_at" envconfig:"NOTIFIER_DAILY_AT"`
	Workers     int           `mapstructure:"workers"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	HealthPort  int           `mapstructure:"health_port"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app/config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment overrides for deployment secrets
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.rate_limit_rps", 50.0)
	viper.SetDefault("server.rate_limit_burst", 100)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("email.provider", "smtp")
	viper.SetDefault("email.smtp.host", "smtp.gmail.com")
	viper.SetDefault("email.smtp.port", 587)
	viper.SetDefault("email.smtp.from_name", "Smart Doc Tracker")
	viper.SetDefault("notifier.timezone", "Local")
	viper.SetDefault("notifier.daily_at", "09:00")
	viper.SetDefault("notifier.workers", 4)
	viper.SetDefault("notifier.send_timeout", 10*time.Second)
	viper.SetDefault("notifier.health_port", 8081)
}

// Location resolves the notifier timezone.
func (c NotifierConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// DailyTime parses DailyAt into hour and minute.
func (c NotifierConfig) DailyTime() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(c.DailyAt, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid daily_at %q: %w", c.DailyAt, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid daily_at %q", c.DailyAt)
	}
	return hour, minute, nil
}
