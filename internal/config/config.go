package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	AccessTTLHours int
}

type SchedulerConfig struct {
	// Timezone is the zone all calendar arithmetic is done in.
	Timezone string
	// TickSpec is a robfig/cron spec driving series advancement and
	// poll deadline checks.
	TickSpec string
	// DefaultHorizonWeeks is used when a series has no explicit
	// auto_create_weeks_ahead.
	DefaultHorizonWeeks int
	// DefaultSessionMinutes is the fallback duration for sessions
	// created by poll confirmation.
	DefaultSessionMinutes int
}

// LoadConfig loads configuration from environment variables.
// A local .env file is honored in development.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "arkham_nexus"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", "dev-secret"),
			AccessTTLHours: getEnvAsInt("JWT_ACCESS_TTL_HOURS", 24),
		},
		Scheduler: SchedulerConfig{
			Timezone:              getEnv("APP_TIMEZONE", "Asia/Tokyo"),
			TickSpec:              getEnv("SCHEDULER_TICK", "@every 1m"),
			DefaultHorizonWeeks:   getEnvAsInt("SCHEDULER_HORIZON_WEEKS", 4),
			DefaultSessionMinutes: getEnvAsInt("DEFAULT_SESSION_MINUTES", 180),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
