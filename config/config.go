package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Fees     FeeConfig      `mapstructure:"fees"`
	OTP      OTPConfig      `mapstructure:"otp"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

// FeeConfig is the fee policy. Values are policy configuration, never
// hard-coded in business logic; defaults mirror production policy.
type FeeConfig struct {
	WithdrawalPercent  string            `mapstructure:"withdrawal_percent"`  // e.g. "0.01" = 1%
	WithdrawalMinimums map[string]string `mapstructure:"withdrawal_minimums"` // currency -> minimum fee
	ExchangePercent    string            `mapstructure:"exchange_percent"`    // e.g. "0.005" = 0.5%
}

// WithdrawalRate parses the withdrawal percentage as a decimal.
func (f FeeConfig) WithdrawalRate() (decimal.Decimal, error) {
	return decimal.NewFromString(f.WithdrawalPercent)
}

// ExchangeFeeRate parses the exchange fee percentage as a decimal.
func (f FeeConfig) ExchangeFeeRate() (decimal.Decimal, error) {
	return decimal.NewFromString(f.ExchangePercent)
}

type OTPConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RequestLimit  int64         `mapstructure:"request_limit"` // issues per window per account
	RequestWindow time.Duration `mapstructure:"request_window"`
}

type RatesConfig struct {
	SourceURL string            `mapstructure:"source_url"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	CacheTTL  time.Duration     `mapstructure:"cache_ttl"`
	Defaults  map[string]string `mapstructure:"defaults"` // pair key -> rate, last-resort fallback
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PMW_ (PayMe Wallet).
// Nested keys use underscore: PMW_DATABASE_HOST, PMW_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "payme_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "payme-wallet")
	v.SetDefault("aes.key", "")
	v.SetDefault("fees.withdrawal_percent", "0.01")
	v.SetDefault("fees.withdrawal_minimums", map[string]string{
		"USD":  "1.00",
		"USDT": "1.00",
		"IRR":  "50000",
	})
	v.SetDefault("fees.exchange_percent", "0.005")
	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.request_limit", 5)
	v.SetDefault("otp.request_window", "10m")
	v.SetDefault("rates.source_url", "")
	v.SetDefault("rates.timeout", "10s")
	v.SetDefault("rates.cache_ttl", "5m")
	v.SetDefault("rates.defaults", map[string]string{
		"USD_IRR":  "1070000",
		"IRR_USD":  "0.00000093457944",
		"USD_USDT": "1",
		"USDT_USD": "1",
		"USDT_IRR": "1070000",
		"IRR_USDT": "0.00000093457944",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PMW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PMW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
