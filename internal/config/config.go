package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultJWTSecret = "dev-secret-change-me"

// Config holds the server settings read from the environment
type Config struct {
	Env          string
	Host         string
	Port         int
	StorageType  string
	RedisURL     string
	DatabaseURL  string
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	AdminUser    string
	AdminPass    string
	OTLPEndpoint string
}

// Load reads configuration from environment variables
func Load() (Config, error) {
	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, err
	}
	bcryptCost, err := getEnvInt("BCRYPT_COST", 10)
	if err != nil {
		return Config{}, err
	}
	ttl, err := getEnvDuration("TOKEN_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:          getEnv("APP_ENV", "dev"),
		Host:         getEnv("HOST", ""),
		Port:         port,
		StorageType:  getEnv("STORAGE_TYPE", "memory"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:  getEnv("DATABASE_URL", buildDBURL()),
		JWTSecret:    getEnv("JWT_SECRET", defaultJWTSecret),
		TokenTTL:     ttl,
		BcryptCost:   bcryptCost,
		AdminUser:    os.Getenv("ADMIN_USERNAME"),
		AdminPass:    os.Getenv("ADMIN_PASSWORD"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageType {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("STORAGE_TYPE must be memory, redis or postgres, got %q", c.StorageType)
	}
	if c.Env == "prod" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV=prod")
	}
	if c.AdminUser != "" && c.AdminPass == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "clicker")
	pass := getEnv("DB_PASSWORD", "clicker")
	name := getEnv("DB_NAME", "clicker")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	num, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return num, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
