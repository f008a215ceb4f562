package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabasePath   string
	RedisAddr      string
	StreamKey      string
	StreamGroup    string
	StreamConsumer string
	StreamMaxLen   int64  // bound on retained stream entries (approximate)
	RulesFile      string // optional static rules YAML, empty disables seeding
	MaintenanceCron string
	LogLevel       string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	maxLenStr := getEnv("STREAM_MAX_LEN", "10000")
	maxLen, err := strconv.ParseInt(maxLenStr, 10, 64)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:      port,
		DatabasePath:    getEnv("DATABASE_PATH", "./eventhub.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		StreamKey:       getEnv("STREAM_KEY", "eventhub:events"),
		StreamGroup:     getEnv("STREAM_GROUP", "eventhub-consumers"),
		StreamConsumer:  getEnv("STREAM_CONSUMER", "eventhub-1"),
		StreamMaxLen:    maxLen,
		RulesFile:       getEnv("RULES_FILE", ""),
		MaintenanceCron: getEnv("MAINTENANCE_CRON", "@hourly"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
