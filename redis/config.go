package redis

import (
	"os"
	"strconv"
)

// LoadFromEnv loads Redis connection configuration from environment
// variables (bootstrap.ConnectRedis is the sole caller).
func LoadFromEnv() RedisConfig {
	return RedisConfig{
		Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     getEnvOrDefault("REDIS_PORT", "6379"),
		Password: getEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       getEnvIntOrDefault("REDIS_DB", 0),
		PoolSize: getEnvIntOrDefault("REDIS_POOL_SIZE", 10),
		MinIdle:  getEnvIntOrDefault("REDIS_MIN_IDLE", 5),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
