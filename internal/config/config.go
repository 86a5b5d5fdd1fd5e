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
	Logger   LoggerConfig
	DingTalk DingTalkConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
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

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DingTalkConfig holds credentials and endpoints for the DingTalk open API.
type DingTalkConfig struct {
	AppKey                   string
	AppSecret                string
	BaseURL                  string
	HTTPTimeoutSeconds       int
	TokenSafetyMarginSeconds int
	DefaultCompanyID         int64
}

// AuthConfig defines session token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	defaultCompanyID, err := strconv.ParseInt(getEnv("DINGTALK_DEFAULT_COMPANY_ID", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DINGTALK_DEFAULT_COMPANY_ID: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "canteen-menu-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		DingTalk: DingTalkConfig{
			AppKey:                   os.Getenv("DINGTALK_APP_KEY"),
			AppSecret:                os.Getenv("DINGTALK_APP_SECRET"),
			BaseURL:                  getEnv("DINGTALK_BASE_URL", "https://oapi.dingtalk.com"),
			HTTPTimeoutSeconds:       getEnvAsInt("DINGTALK_HTTP_TIMEOUT_SECONDS", 10),
			TokenSafetyMarginSeconds: getEnvAsInt("DINGTALK_TOKEN_SAFETY_MARGIN_SECONDS", 300),
			DefaultCompanyID:         defaultCompanyID,
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
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

// HTTPTimeout returns the outbound gateway call timeout.
func (d DingTalkConfig) HTTPTimeout() time.Duration {
	if d.HTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.HTTPTimeoutSeconds) * time.Second
}

// TokenSafetyMargin returns the margin subtracted from the provider's stated
// token lifetime before the cached token is considered expired.
func (d DingTalkConfig) TokenSafetyMargin() time.Duration {
	if d.TokenSafetyMarginSeconds < 0 {
		return 0
	}
	return time.Duration(d.TokenSafetyMarginSeconds) * time.Second
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
