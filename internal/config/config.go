package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	VerifyToken    string
	GatewayURL     string
	GatewayToken   string
	GatewayTimeout time.Duration

	// Database. sqlite is the default; postgres is used when DB_HOST is set.
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file loaded, reading configuration from environment only")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		VerifyToken:    getEnv("VERIFY_TOKEN", ""),
		GatewayURL:     getEnv("GATEWAY_URL", "http://localhost:3000"),
		GatewayToken:   getEnv("GATEWAY_TOKEN", ""),
		GatewayTimeout: getSecondsEnv("GATEWAY_TIMEOUT_SECONDS", 30*time.Second),
		DBPath:         getEnv("DB_PATH", "./console.db"),
		DBHost:         getEnv("DB_HOST", ""),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "whatsapp_console"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
	}
}

// UsePostgres reports whether the postgres driver should be used instead of sqlite.
func (c *Config) UsePostgres() bool {
	return c.DBHost != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getSecondsEnv(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		logrus.Warnf("Invalid %s value %q, using default", key, value)
		return fallback
	}
	return time.Duration(secs) * time.Second
}
