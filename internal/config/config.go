package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lumberyard/internal/core"
	"lumberyard/internal/logger"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Storage
	DatabaseURL    string
	RedisURL       string
	MigrateOnStart bool

	// HTTP
	ServerPort     string
	AllowedOrigins string
	JWTSecret      string
	IdempotencyTTL time.Duration

	// Pricing defaults, overridable per location
	DefaultTaxRate       decimal.Decimal
	DeliveryFeeThreshold decimal.Decimal
	DeliveryFeeAmount    decimal.Decimal
	DefaultTimezone      string

	// Document defaults
	DefaultPaymentTermDays int
	QuoteValidityDays      int

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Call godotenv.Load first
// if values should come from a .env file.
func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:   getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:       getEnv("LOG_OUTPUT", "stdout"),
	}

	var err error
	if c.DefaultTaxRate, err = getDecimal("DEFAULT_TAX_RATE", "0"); err != nil {
		return nil, err
	}
	if c.DeliveryFeeThreshold, err = getDecimal("DELIVERY_FEE_THRESHOLD", "500.00"); err != nil {
		return nil, err
	}
	if c.DeliveryFeeAmount, err = getDecimal("DELIVERY_FEE_AMOUNT", "75.00"); err != nil {
		return nil, err
	}
	if c.DefaultPaymentTermDays, err = getInt("DEFAULT_PAYMENT_TERM_DAYS", 30); err != nil {
		return nil, err
	}
	if c.QuoteValidityDays, err = getInt("QUOTE_VALIDITY_DAYS", 30); err != nil {
		return nil, err
	}
	if c.MigrateOnStart, err = getBool("MIGRATE_ON_START", false); err != nil {
		return nil, err
	}
	if c.IdempotencyTTL, err = time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DefaultTaxRate.IsNegative() {
		return fmt.Errorf("DEFAULT_TAX_RATE cannot be negative")
	}
	if c.DeliveryFeeThreshold.IsNegative() || c.DeliveryFeeAmount.IsNegative() {
		return fmt.Errorf("delivery fee settings cannot be negative")
	}
	if c.DefaultPaymentTermDays < 0 {
		return fmt.Errorf("DEFAULT_PAYMENT_TERM_DAYS cannot be negative")
	}
	if c.QuoteValidityDays <= 0 {
		return fmt.Errorf("QUOTE_VALIDITY_DAYS must be positive")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	return nil
}

// GetLoggerConfig returns the logger configuration.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// Origins splits ALLOWED_ORIGINS on commas, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, p := range strings.Split(c.AllowedOrigins, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PricingDefaults returns the system-wide pricing settings. validate has
// already checked the timezone name.
func (c *Config) PricingDefaults() core.PricingDefaults {
	zone, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		zone = time.UTC
	}
	return core.PricingDefaults{
		TaxRate:              c.DefaultTaxRate,
		DeliveryFeeThreshold: core.MoneyFromDecimal(c.DeliveryFeeThreshold),
		DeliveryFeeAmount:    core.MoneyFromDecimal(c.DeliveryFeeAmount),
		Timezone:             zone,
		PaymentTermDays:      c.DefaultPaymentTermDays,
		QuoteValidityDays:    c.QuoteValidityDays,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDecimal(key, defaultValue string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
