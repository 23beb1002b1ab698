// Package config provides configuration management for the service gate.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the daemon configuration, loaded from environment
// variables once at startup.
type Config struct {
	Port        string
	RulesFile   string
	LogLevel    string
	LogFilePath string

	// Redis credential store. When Addr is empty the gate serves the
	// identities provisioned statically in the rules file instead.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	config := &Config{
		Port:          getEnvOrDefault("SVCGATE_PORT", "8088"),
		RulesFile:     getEnvOrDefault("SVCGATE_RULES_FILE", "/etc/svcgate/rules.yaml"),
		LogLevel:      getEnvOrDefault("SVCGATE_LOG_LEVEL", "info"),
		LogFilePath:   getEnvOrDefault("SVCGATE_LOG_FILE", ""),
		RedisAddr:     getEnvOrDefault("SVCGATE_REDIS_ADDR", ""),
		RedisPassword: getEnvOrDefault("SVCGATE_REDIS_PASSWORD", ""),
	}

	if db := os.Getenv("SVCGATE_REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("SVCGATE_REDIS_DB must be an integer: %w", err)
		}
		config.RedisDB = n
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
