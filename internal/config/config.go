package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal.
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Session  SessionConfig
	Poller   PollerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `validate:"required"`
	Env                   string
	Host                  string
	Port                  string `validate:"required,numeric"`
	Version               string
	RequestTimeoutSeconds int `validate:"gte=0"`
}

// BackendConfig locates the external portfolio API.
type BackendConfig struct {
	BaseURL           string `validate:"required,url"`
	MePath            string `validate:"required,startswith=/"`
	LoginPath         string `validate:"required,startswith=/"`
	NotificationsPath string `validate:"required,startswith=/"`
	MarkReadPath      string `validate:"required,startswith=/"`
	TimeoutSeconds    int    `validate:"gte=0"`
}

// SessionConfig configures the credential store and session cookie.
type SessionConfig struct {
	CookieName   string `validate:"required"`
	Secret       string `validate:"required"`
	TTLMinutes   int    `validate:"gt=0"`
	Store        string `validate:"oneof=memory redis"`
	CookieSecure bool
}

// PollerConfig configures the per-session notification poller.
type PollerConfig struct {
	IntervalMillis    int    `validate:"gt=0"`
	IdleTimeoutSecond int    `validate:"gt=0"`
	Ledger            string `validate:"oneof=memory postgres"`
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "portfolio-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:           getEnv("BACKEND_BASE_URL", "http://127.0.0.1:3000"),
			MePath:            getEnv("BACKEND_ME_PATH", "/me"),
			LoginPath:         getEnv("BACKEND_LOGIN_PATH", "/login"),
			NotificationsPath: getEnv("BACKEND_NOTIFICATIONS_PATH", "/notifications"),
			MarkReadPath:      getEnv("BACKEND_MARK_READ_PATH", "/notifications/read"),
			TimeoutSeconds:    getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10),
		},
		Session: SessionConfig{
			CookieName:   getEnv("SESSION_COOKIE_NAME", "portal_session"),
			Secret:       getEnv("SESSION_SECRET", "dev-secret"),
			TTLMinutes:   getEnvAsInt("SESSION_TTL_MINUTES", 720),
			Store:        getEnv("SESSION_STORE", "memory"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Poller: PollerConfig{
			IntervalMillis:    getEnvAsInt("POLLER_INTERVAL_MS", 5000),
			IdleTimeoutSecond: getEnvAsInt("POLLER_IDLE_TIMEOUT_SECONDS", 120),
			Ledger:            getEnv("POLLER_LEDGER", "memory"),
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
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Poller.Ledger == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("invalid config: POLLER_LEDGER=postgres requires POSTGRES_DSN")
	}
	return nil
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

// Timeout returns the per-call timeout for backend requests, zero meaning none.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// TTL returns how long a session's credential entries live in the store.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

func (p PollerConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMillis) * time.Millisecond
}

func (p PollerConfig) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutSecond) * time.Second
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
