// Package config loads the ledger configuration. Values come from an
// optional YAML file named by CONFIG_FILE, then from the environment (and a
// .env file), with the environment winning.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Port     string       `yaml:"port"`
	DBPath   string       `yaml:"db_path"`
	BankIBAN string       `yaml:"bank_iban"`
	Currency string       `yaml:"currency"`
	Log      LogConfig    `yaml:"log"`
	Notify   NotifyConfig `yaml:"notify"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NotifyConfig configures outbox delivery. Empty addresses disable the
// corresponding publisher.
type NotifyConfig struct {
	RedisAddr        string        `yaml:"redis_addr"`
	RedisChannel     string        `yaml:"redis_channel"`
	WebhookURL       string        `yaml:"webhook_url"`
	WebhookTimeout   time.Duration `yaml:"webhook_timeout"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:     "8080",
		DBPath:   "data/ledger.db",
		Currency: "CZK",
		Log:      LogConfig{Level: "info"},
		Notify: NotifyConfig{
			RedisChannel:     "ledger.events",
			WebhookTimeout:   5 * time.Second,
			DispatchInterval: 10 * time.Second,
		},
	}
}

// Load builds the configuration. envPath optionally names a .env file; when
// omitted a .env in the working directory is loaded if present.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.DBPath = getEnvOrDefault("DB_PATH", c.DBPath)
	c.BankIBAN = getEnvOrDefault("BANK_IBAN", c.BankIBAN)
	c.Currency = getEnvOrDefault("CURRENCY", c.Currency)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Notify.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.Notify.RedisAddr)
	c.Notify.RedisChannel = getEnvOrDefault("REDIS_CHANNEL", c.Notify.RedisChannel)
	c.Notify.WebhookURL = getEnvOrDefault("WEBHOOK_URL", c.Notify.WebhookURL)

	var err error
	if c.Log.Development, err = parseBoolEnv("LOG_DEV", c.Log.Development); err != nil {
		return err
	}
	if c.Notify.WebhookTimeout, err = parseDurationEnv("WEBHOOK_TIMEOUT", c.Notify.WebhookTimeout); err != nil {
		return err
	}
	if c.Notify.DispatchInterval, err = parseDurationEnv("DISPATCH_INTERVAL", c.Notify.DispatchInterval); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.BankIBAN == "" {
		errs = append(errs, errors.New("BANK_IBAN is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.Notify.DispatchInterval <= 0 {
		errs = append(errs, errors.New("DISPATCH_INTERVAL must be positive"))
	}
	if c.Notify.WebhookTimeout <= 0 {
		errs = append(errs, errors.New("WEBHOOK_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	return parsed, nil
}
