package cmd

import (
	"fmt"
	"os"

	"github.com/etnz/journal"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the CLI configuration.
type Config struct {
	DatabasePath string
	Addr         string
	LogLevel     string
	Settings     journal.Settings
	// EODHD credentials used to fetch quotes.
	EODHDAPIKey   string
	EODHDExchange string
}

// LoadConfig reads the configuration from the environment, and from a .env
// file in the working directory if there is one.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("TJ_DB_PATH", "./data/journal.db"),
		Addr:         getEnv("TJ_ADDR", ":8080"),
		LogLevel:     getEnv("TJ_LOG_LEVEL", "warn"),
		Settings:     journal.DefaultSettings(getEnv("TJ_CURRENCY", "USD")),

		EODHDAPIKey:   getEnv("TJ_EODHD_API_KEY", ""),
		EODHDExchange: getEnv("TJ_EODHD_EXCHANGE", "US"),
	}

	var err error
	s := &cfg.Settings
	if s.RiskMode, err = journal.ParseRiskMode(getEnv("TJ_RISK_MODE", "downside")); err != nil {
		return nil, err
	}
	if s.WinRateThreshold, err = getEnvAsDecimal("TJ_WIN_RATE_THRESHOLD", s.WinRateThreshold); err != nil {
		return nil, err
	}
	if s.Fees.BuyRate, err = getEnvAsDecimal("TJ_BUY_FEE_RATE", decimal.Zero); err != nil {
		return nil, err
	}
	if s.Fees.SellRate, err = getEnvAsDecimal("TJ_SELL_FEE_RATE", decimal.Zero); err != nil {
		return nil, err
	}
	if s.DefaultRiskPercent, err = getEnvAsDecimal("TJ_DEFAULT_RISK_PERCENT", decimal.Zero); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("TJ_DB_PATH is required")
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid account settings: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
