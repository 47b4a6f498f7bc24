package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	GenerationTimeout   time.Duration
	MaxUploadBytes      int64
	SessionTTL          time.Duration
	MaxSessions         int
	SessionCookieSecure bool
	RateLimitPerMin     int
	TrustProxyHeaders   bool
	CORSAllowedOrigins  []string
	DefaultLocale       string
	DatabaseURL         string
	GeoIPDBPath         string
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	ShutdownTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	appEnv := getEnv("APP_ENV", "development")
	cfg := &Config{
		AppEnv:              appEnv,
		Port:                getEnv("PORT", "8080"),
		GeminiAPIKey:        strings.TrimSpace(getEnv("GEMINI_API_KEY", os.Getenv("API_KEY"))),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:       os.Getenv("GEMINI_BASE_URL"),
		GenerationTimeout:   getEnvSeconds("GENERATION_TIMEOUT", 120),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		SessionTTL:          time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)),
		MaxSessions:         getEnvInt("MAX_SESSIONS", 500),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", appEnv == "production"),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		TrustProxyHeaders:   getEnvBool("TRUST_PROXY_HEADERS", false),
		CORSAllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		HTTPReadTimeout:     getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", 30),
		HTTPWriteTimeout:    getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 30),
		HTTPIdleTimeout:     getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
		ShutdownTimeout:     getEnvSeconds("SHUTDOWN_TIMEOUT_SECONDS", 15),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY (or API_KEY) is required")
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	return cfg, nil
}

// AnalyticsEnabled reports whether a database was configured.
func (c *Config) AnalyticsEnabled() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Second * time.Duration(getEnvInt(key, fallback))
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
