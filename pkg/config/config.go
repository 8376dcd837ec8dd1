// Package config loads runtime configuration from the environment and
// warehouse profiles from YAML.
package config

import "os"

// Config holds process configuration.
type Config struct {
	DatabaseURL  string
	RedisAddr    string
	LogLevel     string
	ProfilesDir  string
	OTLPEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://tallykeep@localhost:5432/tallykeep?sslmode=disable"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	profilesDir := os.Getenv("WAREHOUSE_PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		DatabaseURL:  dbURL,
		RedisAddr:    redisAddr,
		LogLevel:     logLevel,
		ProfilesDir:  profilesDir,
		OTLPEndpoint: otlpEndpoint,
	}
}
