package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MIN_WITHDRAWAL", "")
	t.Setenv("WITHDRAWAL_FEE_RATE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10", cfg.MinimumWithdrawal.String())
	assert.Equal(t, "0.02", cfg.WithdrawalFeeRate.String())
	assert.Equal(t, 10*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 5*time.Second, cfg.LockWaitTimeout)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://rewardhub@localhost/rewardhub")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_API_KEY", "admin")
	t.Setenv("MIN_WITHDRAWAL", "25.5")
	t.Setenv("WITHDRAWAL_FEE_RATE", "0.015")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "25.5", cfg.MinimumWithdrawal.String())
	assert.Equal(t, "0.015", cfg.WithdrawalFeeRate.String())
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, ":9090", cfg.Address())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("MIN_WITHDRAWAL", "ten")
	_, err := Load()
	assert.ErrorContains(t, err, "MIN_WITHDRAWAL")

	t.Setenv("MIN_WITHDRAWAL", "")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "SHUTDOWN_TIMEOUT_SECONDS")
}
