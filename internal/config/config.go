package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
// DRY_RUN defaults to true so an unconfigured deployment can never send
// real email by accident.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Email provider
	MailerEndpoint string
	MailerAPIKey   string
	MailerFrom     string
	MailerTimeout  time.Duration
	AppBaseURL     string
	DryRun         bool

	// Dispatch
	BatchSize        int
	SendRatePerSec   int
	DispatchInterval time.Duration // 0 disables the internal poller
	FeatureFlagKey   string

	// Shared secret for the dispatch/cancel endpoints.
	// Empty means unauthenticated.
	TriggerSecret string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		MailerEndpoint: getEnv("MAILER_ENDPOINT", "https://api.resend.com/emails"),
		MailerAPIKey:   getEnv("MAILER_API_KEY", ""),
		MailerFrom:     getEnv("MAILER_FROM", ""),
		MailerTimeout:  getDuration("MAILER_TIMEOUT", 10*time.Second),
		AppBaseURL:     getEnv("APP_BASE_URL", "http://localhost:5173"),
		DryRun:         getBool("DRY_RUN", true),

		BatchSize:        getInt("BATCH_SIZE", 20),
		SendRatePerSec:   getInt("SEND_RATE_PER_SEC", 10),
		DispatchInterval: getDuration("DISPATCH_INTERVAL", 0),
		FeatureFlagKey:   getEnv("FEATURE_FLAG_KEY", "email_notifications_enabled"),

		TriggerSecret: getEnv("TRIGGER_SECRET", ""),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
