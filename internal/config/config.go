package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port   string
	AppEnv string

	StoreDriver    string // "postgres" or "memory"
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MigrateOnStart bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	QuestionAPIURL     string
	QuestionAPITimeout time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	QuestionCacheTTL time.Duration

	CORSAllowedOrigins []string
}

// Load reads the configuration from environment variables. Callers that want
// .env support load it (godotenv) before calling Load.
func Load() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "enem_user"),
		DBPassword:     getEnv("DB_PASSWORD", "enem_password"),
		DBName:         getEnv("DB_NAME", "enem_practice"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MigrateOnStart: getEnv("MIGRATE_ON_START", "true") != "false",

		JWTSecret:   getEnv("IDENTITY_JWT_SECRET", ""),
		JWTIssuer:   getEnv("IDENTITY_JWT_ISSUER", ""),
		JWTAudience: getEnv("IDENTITY_JWT_AUDIENCE", ""),

		QuestionAPIURL: strings.TrimRight(getEnv("QUESTION_API_URL", "https://api.enem.dev/v1"), "/"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.QuestionAPITimeout, err = getDuration("QUESTION_API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.QuestionCacheTTL, err = getDuration("QUESTION_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REDIS_DB must be a non-negative integer, got %q", v)
		}
		cfg.RedisDB = n
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("IDENTITY_JWT_SECRET is required")
	}
	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "memory" {
		return nil, fmt.Errorf("STORE_DRIVER must be 'postgres' or 'memory', got %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// DSN returns the Postgres connection string, preferring DATABASE_URL.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
