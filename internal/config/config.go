package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "PayMitra"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultOTPTTL         = 5 * time.Minute
	defaultGatewayBaseURL = "https://sandbox.aggregator.example"
	defaultFetchTimeout   = 15 * time.Second
	defaultPayTimeout     = 30 * time.Second
)

// Gateway carries the aggregator connection settings.
type Gateway struct {
	BaseURL      string
	APIToken     string
	MemberID     string
	FetchTimeout time.Duration
	PayTimeout   time.Duration
}

// Config captures application runtime configuration loaded from environment
// variables, with a local .env honoured in development.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	OTPTTL         time.Duration
	Gateway        Gateway
}

// Load reads configuration values from the environment and populates a
// Config instance. Postgres and Redis are optional in development, where the
// in-memory backends take over; everywhere else they are required.
func Load() (Config, error) {
	godotenv.Load() // .env is optional; real deployments set the environment

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		OTPTTL:         defaultOTPTTL,
		Gateway: Gateway{
			BaseURL:      getEnv("GATEWAY_BASE_URL", defaultGatewayBaseURL),
			APIToken:     os.Getenv("GATEWAY_API_TOKEN"),
			MemberID:     os.Getenv("GATEWAY_MEMBER_ID"),
			FetchTimeout: defaultFetchTimeout,
			PayTimeout:   defaultPayTimeout,
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", cfg.OTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.Gateway.FetchTimeout, err = durationEnv("GATEWAY_FETCH_TIMEOUT", cfg.Gateway.FetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Gateway.PayTimeout, err = durationEnv("GATEWAY_PAY_TIMEOUT", cfg.Gateway.PayTimeout); err != nil {
		return Config{}, err
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.Gateway.APIToken == "" {
			return Config{}, fmt.Errorf("GATEWAY_API_TOKEN must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs with development defaults.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
