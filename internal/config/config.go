// Package config provides environment configuration for the chat server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerID           string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigins     []string

	// Storage settings
	Storage           string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	RedisAddr         string
	NATSURL           string
	NATSSubjectPrefix string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Chat settings
	InvitationTTL time.Duration
	NotifyTimeout time.Duration
	LockTTL       time.Duration
	NameCacheTTL  time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	Env      string
	LogLevel string
}

// Load reads the optional .env file and then configuration from environment variables.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		ServerPort:         getEnv("PORT", "8080"),
		ServerID:           getEnv("SERVER_ID", "server-1"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		AllowedOrigins:     []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},

		Storage:           getEnv("STORAGE", StorageMongo),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "propchat"),
		MongoTransactions: getBoolEnv("MONGODB_TRANSACTIONS", false),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "chat.notify"),

		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		InvitationTTL: getDurationEnv("INVITATION_TTL", 7*24*time.Hour),
		NotifyTimeout: getDurationEnv("NOTIFY_TIMEOUT", 5*time.Second),
		LockTTL:       getDurationEnv("LOCK_TTL", 10*time.Second),
		NameCacheTTL:  getDurationEnv("NAME_CACHE_TTL", 5*time.Minute),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		Env:      getEnv("ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
