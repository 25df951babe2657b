package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Profile  ProfileConfig
	Support  SupportConfig
	Telegram TelegramConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
	Timezone              string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CacheTTLSeconds int
}

// NATSConfig enables the NATS event dispatcher when URL is set.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	// QueueGroup is shared by all replicas so each event is handled once.
	QueueGroup    string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session and admin authentication parameters.
type AuthConfig struct {
	SessionSecret     string
	SessionTTLMinutes int
	SessionCookie     string
	AdminKey          string
}

// ProfileConfig seeds the profile record of a fresh session.
type ProfileConfig struct {
	DefaultNickname    string
	DefaultDescription string
	ShopURL            string
}

// SupportConfig configures the support chat component.
type SupportConfig struct {
	EndpointURL           string
	PollIntervalSeconds   int
	RequestTimeoutSeconds int
	Mode                  string
}

// TelegramConfig holds Bot API credentials for the support bot.
type TelegramConfig struct {
	BotToken      string
	ChatID        string
	APIURL        string
	WebhookSecret string
}

// Support chat modes.
const (
	SupportModeNetwork = "network"
	SupportModeLocal   = "local"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	mode := getEnv("SUPPORT_CHAT_MODE", SupportModeNetwork)
	if mode != SupportModeNetwork && mode != SupportModeLocal {
		return nil, fmt.Errorf("invalid SUPPORT_CHAT_MODE: %q", mode)
	}

	port := getEnv("APP_PORT", "8080")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "profile-support"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  port,
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 16*1024*1024),
			Timezone:              getEnv("APP_TIMEZONE", "Local"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			CacheTTLSeconds: getEnvAsInt("REDIS_CACHE_TTL_SECONDS", 30),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "support.events"),
			QueueGroup:    getEnv("NATS_QUEUE_GROUP", "profile-support"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SessionSecret:     getEnv("SESSION_SECRET", "dev-secret"),
			SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 120),
			SessionCookie:     getEnv("SESSION_COOKIE", "profile_session"),
			AdminKey:          os.Getenv("ADMIN_KEY"),
		},
		Profile: ProfileConfig{
			DefaultNickname:    getEnv("PROFILE_DEFAULT_NICKNAME", "User"),
			DefaultDescription: getEnv("PROFILE_DEFAULT_DESCRIPTION", "Welcome to my profile"),
			ShopURL:            getEnv("PROFILE_SHOP_URL", "http://dubbingrp.tilda.ws/"),
		},
		Support: SupportConfig{
			EndpointURL:           getEnv("SUPPORT_ENDPOINT_URL", "http://127.0.0.1:"+port+"/api/support/messages"),
			PollIntervalSeconds:   getEnvAsInt("SUPPORT_POLL_INTERVAL_SECONDS", 5),
			RequestTimeoutSeconds: getEnvAsInt("SUPPORT_REQUEST_TIMEOUT_SECONDS", 10),
			Mode:                  mode,
		},
		Telegram: TelegramConfig{
			BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:        os.Getenv("TELEGRAM_CHAT_ID"),
			APIURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the timezone used to render timestamps.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CacheTTL returns how long the message list stays cached.
func (r RedisConfig) CacheTTL() time.Duration {
	if r.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// SessionTTL returns the idle lifetime of a browser session.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// PollInterval returns the chat poll period.
func (s SupportConfig) PollInterval() time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// RequestTimeout bounds a single chat fetch or send.
func (s SupportConfig) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
