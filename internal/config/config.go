package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime setting of the service.
type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	JWTSecret   string
	TokenExpiry time.Duration

	SMTPSender   string
	SMTPPassword string
	SMTPHost     string
	SMTPPort     string

	// Cron spec for the periodic dispatch run.
	DispatchCron string
}

// LoadConfig reads configuration from a .env file, falling back to the
// process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:       getEnv("DB_NAME", "crm_reminders"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		TokenExpiry:  getDurationEnv("TOKEN_EXPIRY", 24*time.Hour),
		SMTPSender:   getEnv("SMTP_SENDER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		DispatchCron: getEnv("DISPATCH_CRON", "@every 1m"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithField(key, value).Warn("Invalid duration, using default")
		return fallback
	}
	return d
}
