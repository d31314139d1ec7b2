package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port string
	Env  string

	Auth  AuthConfig
	DB    DatabaseConfig
	Redis RedisConfig
	S3    S3Config
	CORS  CORSConfig
	Seed  SeedConfig
}

// AuthConfig contains token, hashing and login protection parameters.
type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	BcryptCost         int
	RoleCacheTTL       time.Duration
	LoginMaxFailures   int
	LoginFailureWindow time.Duration
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// S3Config contains object storage configuration for profile pictures.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
}

// CORSConfig lists the origins allowed to call the admin API from a browser.
type CORSConfig struct {
	AllowedOrigins []string
}

// SeedConfig is used by cmd/seed to bootstrap the first super admin.
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSeed is Load for cmd/seed. Only the database settings are required
// since seeding never issues tokens.
func LoadSeed() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	// Missing .env is fine; production relies on real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")

	// Auth
	cfg.Auth = AuthConfig{
		JWTSecret:        getEnv("JWT_SECRET", ""),
		BcryptCost:       getEnvInt("BCRYPT_COST", 12),
		LoginMaxFailures: getEnvInt("LOGIN_MAX_FAILURES", 10),
	}

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// S3 (profile pictures)
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "ap-southeast-3"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		PublicURL:       getEnv("S3_PUBLIC_URL", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	cfg.Seed = SeedConfig{
		AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
	}

	// Durations
	var err error
	if cfg.Auth.TokenTTL, err = parseDurationEnv("TOKEN_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.Auth.RoleCacheTTL, err = parseDurationEnv("ROLE_CACHE_TTL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid ROLE_CACHE_TTL: %w", err)
	}
	if cfg.Auth.LoginFailureWindow, err = parseDurationEnv("LOGIN_FAILURE_WINDOW", "15m"); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_FAILURE_WINDOW: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for authentication")
	}
	if len(c.Auth.JWTSecret) < 32 && c.Env == "production" {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
