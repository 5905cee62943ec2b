package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// RememberSecret signs remember-device tokens. Required.
	RememberSecret string
	// RememberMaxAge bounds how long a remember-device token stays valid.
	RememberMaxAge time.Duration

	// ServiceAuthSecret verifies inbound HS256 service tokens. Required.
	ServiceAuthSecret string
	// Issuer is the expected issuer of inbound service tokens and the TOTP
	// issuer label shown in authenticator apps.
	Issuer string

	// SecretsKey derives the key sealing TOTP seeds at rest. Required.
	SecretsKey string

	// SecurityKeysEnabled is the deployment toggle for the security-key
	// factor.
	SecurityKeysEnabled bool
	RPID                string // relying party id (domain) for security keys
	RPOrigin            string // expected browser origin for security keys
	RPDisplayName       string // relying party name shown by the browser

	// DirectoryURL is the base URL of the account directory service.
	DirectoryURL string

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./gate.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	SessionMaxAge        time.Duration // Stale login-session sweep cutoff (default: 30 days)
}

func LoadConfig() Config {
	cfg := Config{
		RememberSecret:       os.Getenv("GATE_REMEMBER_SECRET"),
		RememberMaxAge:       getEnvDurationOrDefault("GATE_REMEMBER_MAX_AGE", 30*24*time.Hour),
		ServiceAuthSecret:    os.Getenv("GATE_SERVICE_AUTH_SECRET"),
		Issuer:               getEnvOrDefault("GATE_ISSUER", "copperline-gate"),
		SecretsKey:           os.Getenv("GATE_SECRETS_KEY"),
		SecurityKeysEnabled:  getEnvBoolOrDefault("GATE_SECURITY_KEYS_ENABLED", true),
		RPID:                 getEnvOrDefault("GATE_RP_ID", "localhost"),
		RPOrigin:             getEnvOrDefault("GATE_RP_ORIGIN", "http://localhost:8080"),
		RPDisplayName:        getEnvOrDefault("GATE_RP_DISPLAY_NAME", "Copperline"),
		DirectoryURL:         getEnvOrDefault("GATE_DIRECTORY_URL", "http://localhost:8081"),
		DatabaseFile:         getEnvOrDefault("GATE_DATABASE_FILE", "gate.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		SessionMaxAge:        getEnvDurationOrDefault("GATE_SESSION_MAX_AGE", 30*24*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
