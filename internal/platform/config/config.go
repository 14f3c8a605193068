package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	Environment        string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	ZoneCacheTTL       time.Duration
	DangerZones        []string
	DangerZonesFile    string
	JWTSecret          string
	RequireAuth        bool
	SlipEncryptionKey  string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	TrustProxyHeaders  bool
	MetricsEnabled     bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		ZoneCacheTTL:       getEnvDuration("ZONE_CACHE_TTL", 10*time.Minute),
		DangerZones:        getEnvList("DANGER_ZONES"),
		DangerZonesFile:    getEnv("DANGER_ZONES_FILE", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		RequireAuth:        getEnvBool("REQUIRE_AUTH", false),
		SlipEncryptionKey:  getEnv("SLIP_ENCRYPTION_KEY", ""),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 65536)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustProxyHeaders:  getEnvBool("TRUST_PROXY_HEADERS", false),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("APP_ADDR is required")
	}
	if c.RequireAuth && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set when REQUIRE_AUTH is true")
	}
	if c.IsProduction() && !c.RequireAuth {
		return fmt.Errorf("REQUIRE_AUTH must be enabled in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.RedisURL != "" && c.ZoneCacheTTL <= 0 {
		return fmt.Errorf("ZONE_CACHE_TTL must be positive when REDIS_URL is set")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}
