package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "payme_wallet", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, int32(5), cfg.Database.MinConns)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, "payme-wallet", cfg.JWT.Issuer)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoad_FeePolicyDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	rate, err := cfg.Fees.WithdrawalRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.01")))

	exRate, err := cfg.Fees.ExchangeFeeRate()
	require.NoError(t, err)
	assert.True(t, exRate.Equal(decimal.RequireFromString("0.005")))

	assert.Equal(t, "1.00", cfg.Fees.WithdrawalMinimums["USD"])
	assert.Equal(t, "50000", cfg.Fees.WithdrawalMinimums["IRR"])
}

func TestLoad_OTPAndRatesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, int64(5), cfg.OTP.RequestLimit)

	assert.Equal(t, 10*time.Second, cfg.Rates.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Rates.CacheTTL)
	assert.Equal(t, "1070000", cfg.Rates.Defaults["USD_IRR"])
	assert.Equal(t, "1", cfg.Rates.Defaults["USD_USDT"])
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090
  mode: "release"
database:
  host: "db.example.com"
  port: 5433
  user: "appuser"
  password: "secret123"
  dbname: "walletdb"
  sslmode: "require"
redis:
  host: "redis.example.com"
  port: 6380
  password: "redispwd"
  db: 2
jwt:
  secret: "my-jwt-secret"
  expiry: "12h"
  issuer: "test-wallet"
fees:
  withdrawal_percent: "0.02"
  exchange_percent: "0.01"
  withdrawal_minimums:
    USD: "2.50"
otp:
  ttl: "2m"
  max_attempts: 3
rates:
  source_url: "https://rates.example.com/v1/latest"
  timeout: "3s"
log:
  level: "debug"
  pretty: true
`)
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "walletdb", cfg.Database.DBName)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, "0.02", cfg.Fees.WithdrawalPercent)
	assert.Equal(t, "2.50", cfg.Fees.WithdrawalMinimums["USD"])
	assert.Equal(t, 2*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, "https://rates.example.com/v1/latest", cfg.Rates.SourceURL)
	assert.Equal(t, 3*time.Second, cfg.Rates.Timeout)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PMW_DATABASE_HOST", "env-db-host")
	t.Setenv("PMW_SERVER_PORT", "7070")
	t.Setenv("PMW_FEES_WITHDRAWAL_PERCENT", "0.015")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-db-host", cfg.Database.Host)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0.015", cfg.Fees.WithdrawalPercent)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		DBName: "wallet", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/wallet?sslmode=disable", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", r.Addr())
}

func TestLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{{not yaml"), 0644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}
