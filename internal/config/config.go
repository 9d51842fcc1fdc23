package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	JWTExpiry         time.Duration
	CORSOrigins       []string
	HeartbeatInterval time.Duration
	ActivationTimeout time.Duration
	RootAdminPassword string
	AWSRegion         string
	AWSBucket         string
}

func LoadConfig() (*Config, error) {
	expiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	heartbeat, err := time.ParseDuration(getEnv("HEARTBEAT_INTERVAL", "10s"))
	if err != nil {
		return nil, errors.New("invalid HEARTBEAT_INTERVAL format")
	}

	activationTimeout, err := time.ParseDuration(getEnv("ACTIVATION_TIMEOUT", "630s"))
	if err != nil {
		return nil, errors.New("invalid ACTIVATION_TIMEOUT format")
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         expiry,
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		HeartbeatInterval: heartbeat,
		ActivationTimeout: activationTimeout,
		RootAdminPassword: os.Getenv("ROOT_ADMIN_PASSWORD"),
		AWSRegion:         os.Getenv("AWS_REGION"),
		AWSBucket:         os.Getenv("AWS_S3_BUCKET_NAME"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
