// Package config provides configuration for the chatbot backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the chatbot backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// OpenRouter settings
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	Model             string
	MaxTokens         int
	Temperature       float64

	// Session and admission settings
	SessionTTL      time.Duration
	RequestTimeout  time.Duration
	RateLimitPerMin int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:             getEnv("CHATBOT_MODEL", "gpt-3.5-turbo"),
		MaxTokens:         getEnvInt("CHATBOT_MAX_TOKENS", 1024),
		Temperature:       getEnvFloat("CHATBOT_TEMPERATURE", 0.7),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TIMEOUT_MINUTES", 30)) * time.Minute,
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		RateLimitPerMin:   getEnvInt("CHAT_RATE_LIMIT_PER_MIN", 20),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
