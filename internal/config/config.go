package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName             = "RewardHub"
	defaultAppEnv              = "development"
	defaultPort                = "8080"
	defaultLogLevel            = "info"
	defaultShutdownDelay       = 10 * time.Second
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultAccessTokenTTL      = 15 * time.Minute
	defaultLockWaitTimeout     = 5 * time.Second
	defaultMinimumWithdrawal   = "10"
	defaultWithdrawalFeeRate   = "0.02"
	defaultLoginRateLimit      = 5
	defaultWithdrawalRateLimit = 10
	idemTTLSecondsEnvVar       = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar           = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar      = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar     = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	AutoMigrate         bool
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	LockWaitTimeout     time.Duration
	MinimumWithdrawal   decimal.Decimal
	WithdrawalFeeRate   decimal.Decimal
	JWTSecret           string
	AccessTokenTTL      time.Duration
	AdminAPIKey         string
	LoginRateLimit      int
	WithdrawalRateLimit int
}

// Load reads an optional .env file, then the environment, into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		NATSURL:     os.Getenv("NATS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("", "ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockWaitTimeout, err = durationFromEnv("", "LOCK_WAIT_TIMEOUT", defaultLockWaitTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AutoMigrate, err = boolFromEnv("AUTO_MIGRATE", false); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit, err = intFromEnv("LOGIN_RATE_LIMIT", defaultLoginRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.WithdrawalRateLimit, err = intFromEnv("WITHDRAWAL_RATE_LIMIT", defaultWithdrawalRateLimit); err != nil {
		return Config{}, err
	}

	if cfg.MinimumWithdrawal, err = decimal.NewFromString(getEnv("MIN_WITHDRAWAL", defaultMinimumWithdrawal)); err != nil {
		return Config{}, fmt.Errorf("invalid MIN_WITHDRAWAL: %w", err)
	}
	if cfg.WithdrawalFeeRate, err = decimal.NewFromString(getEnv("WITHDRAWAL_FEE_RATE", defaultWithdrawalFeeRate)); err != nil {
		return Config{}, fmt.Errorf("invalid WITHDRAWAL_FEE_RATE: %w", err)
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET must be set")
		}
		if cfg.AdminAPIKey == "" {
			return Config{}, fmt.Errorf("ADMIN_API_KEY must be set")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret"
	}
	if cfg.AdminAPIKey == "" {
		cfg.AdminAPIKey = "dev-admin-key"
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv prefers an integer seconds variable, then a Go duration.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
