package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port              string
	Storage           string
	DBConn            string
	LogLevel          string
	AdminSecretKey    string
	NameSourceURL     string
	NameSourceTimeout time.Duration
	CardPrefix        string
	FingerprintSecret string
	ReceiptSecret     string
	TrustProxyHeaders bool
	RedisURL          string
	RateLimitPrefix   string
	CORSOrigins       []string
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	SenderEmail       string
	AlertEmail        string
	DigestSchedule    string
}

// NewConfig loads configuration from environment variables. Values from a
// .env file in the working directory are used for keys not already set.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("NAME_SOURCE_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("NAME_SOURCE_TIMEOUT must be a positive duration")
	}
	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY_HEADERS", "false"))
	if err != nil {
		return nil, fmt.Errorf("TRUST_PROXY_HEADERS must be a boolean")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "4000"),
		Storage:           strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DBConn:            getEnv("DB_CONN", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AdminSecretKey:    getEnv("ADMIN_SECRET_KEY", ""),
		NameSourceURL:     getEnv("NAME_SOURCE_URL", "https://fakerapi.it/api/v1/persons?_quantity=1&_locale=ar_SA"),
		NameSourceTimeout: timeout,
		CardPrefix:        getEnv("CARD_PREFIX", "4532"),
		FingerprintSecret: getEnv("FINGERPRINT_SECRET", ""),
		ReceiptSecret:     getEnv("RECEIPT_SECRET", ""),
		TrustProxyHeaders: trustProxy,
		RedisURL:          getEnv("REDIS_URL", ""),
		RateLimitPrefix:   getEnv("RATE_LIMIT_PREFIX", "cards:rate_limit"),
		CORSOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", ""),
		AlertEmail:        getEnv("ALERT_EMAIL", ""),
		DigestSchedule:    getEnv("DIGEST_SCHEDULE", "0 8 * * *"),
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE must be %q or %q", StoragePostgres, StorageMemory)
	}
	if cfg.AdminSecretKey == "" {
		return nil, fmt.Errorf("ADMIN_SECRET_KEY is required")
	}
	if cfg.FingerprintSecret == "" {
		return nil, fmt.Errorf("FINGERPRINT_SECRET is required")
	}
	if cfg.ReceiptSecret == "" {
		return nil, fmt.Errorf("RECEIPT_SECRET is required")
	}
	if len(cfg.CardPrefix) != 4 {
		return nil, fmt.Errorf("CARD_PREFIX must have 4 digits")
	}
	for _, c := range cfg.CardPrefix {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("CARD_PREFIX must have 4 digits")
		}
	}

	return cfg, nil
}

// NotificationsEnabled reports whether SMTP alerts can be sent.
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != "" && c.AlertEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
