package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full application configuration.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Notification providers
	SMSProvider        string        `env:"SMS_PROVIDER" envDefault:"twilio"`
	TwilioAccountSID   string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber  string        `env:"TWILIO_PHONE_NUMBER"`
	AfricasTalkingKey  string        `env:"AFRICAS_TALKING_API_KEY"`
	AfricasTalkingUser string        `env:"AFRICAS_TALKING_USERNAME" envDefault:"sandbox"`
	EmailAPIURL        string        `env:"EMAIL_API_URL"`
	EmailAPIKey        string        `env:"EMAIL_API_KEY"`
	EmailFrom          string        `env:"EMAIL_FROM" envDefault:"alerts@snaktox.org"`
	NotifyTimeout      time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`
	NotifyMaxInFlight  int64         `env:"NOTIFY_MAX_IN_FLIGHT" envDefault:"32"`

	// Fixed external emergency-service contacts, notified on every dispatch.
	EmergencyContacts []string `env:"EMERGENCY_CONTACTS"`

	// Stock alert threshold for escalating priority.
	StockCriticalThreshold int `env:"STOCK_CRITICAL_THRESHOLD" envDefault:"5"`

	// Stats Config
	StatsTimeWindowMinutes int `env:"STATS_TIME_WINDOW_MINUTES" envDefault:"60"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig reads configuration from the environment and an optional .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		SMSProvider:            getEnv("SMS_PROVIDER", "twilio"),
		TwilioAccountSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber:      os.Getenv("TWILIO_PHONE_NUMBER"),
		AfricasTalkingKey:      os.Getenv("AFRICAS_TALKING_API_KEY"),
		AfricasTalkingUser:     getEnv("AFRICAS_TALKING_USERNAME", "sandbox"),
		EmailAPIURL:            os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:            os.Getenv("EMAIL_API_KEY"),
		EmailFrom:              getEnv("EMAIL_FROM", "alerts@snaktox.org"),
		NotifyTimeout:          getEnvAsDuration("NOTIFY_TIMEOUT", 15*time.Second),
		NotifyMaxInFlight:      int64(getEnvAsInt("NOTIFY_MAX_IN_FLIGHT", 32)),
		EmergencyContacts:      getEnvAsList("EMERGENCY_CONTACTS"),
		StockCriticalThreshold: getEnvAsInt("STOCK_CRITICAL_THRESHOLD", 5),
		StatsTimeWindowMinutes: getEnvAsInt("STATS_TIME_WINDOW_MINUTES", 60),
		CORSOrigins:            getEnvAsList("CORS_ORIGINS"),
		APIKeys:                getEnvAsList("API_KEYS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.NotifyMaxInFlight < 1 {
		cfg.NotifyMaxInFlight = 1
	}

	return cfg, nil
}

// getEnv returns the environment value or the default.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the environment value as int or the default.
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration returns the environment value as time.Duration or the default.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment value, trimming spaces.
func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
