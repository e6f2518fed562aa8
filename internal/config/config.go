package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// MySQL settings
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string

	// API server settings
	APIAddr string
	APIKey  string
	DevMode bool

	// OpenRouter / LLM settings
	OpenRouterAPIKey string
	Model            string
	LLMMaxTokens     int
	LLMTimeout       time.Duration
}

func Load() *Config {
	return &Config{
		// MySQL
		MySQLHost:     getEnv("MYSQL_HOST", "127.0.0.1"),
		MySQLPort:     getIntEnv("MYSQL_PORT", 3306),
		MySQLUser:     getEnv("MYSQL_USER", "root"),
		MySQLPassword: getEnv("MYSQL_PASSWORD", ""),
		MySQLDatabase: getEnv("MYSQL_DATABASE", "market_data"),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// LLM
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		Model:            getEnv("OPENROUTER_MODEL", "openai/gpt-4.1-mini"),
		LLMMaxTokens:     getIntEnv("LLM_MAX_TOKENS", 400),
		LLMTimeout:       getDurationEnv("LLM_TIMEOUT", 45*time.Second),
	}
}

// DSN builds the go-sql-driver/mysql connection string. parseTime makes
// DATE columns scan as time.Time instead of []byte.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLPort, c.MySQLDatabase)
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" {
		return fmt.Errorf("MYSQL_HOST must not be empty")
	}
	if c.MySQLPort < 1 || c.MySQLPort > 65535 {
		return fmt.Errorf("MYSQL_PORT out of range: %d", c.MySQLPort)
	}
	if c.MySQLDatabase == "" {
		return fmt.Errorf("MYSQL_DATABASE must not be empty")
	}
	if c.APIAddr == "" {
		return fmt.Errorf("API_ADDR must not be empty")
	}
	if c.LLMMaxTokens < 1 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
