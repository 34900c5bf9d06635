package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string

	// Upstream PKI authority.
	UpstreamBaseURL  string
	UpstreamAPIToken string

	// CNAMETarget is the delegation record customers point their hostname's
	// _acme-challenge (or equivalent) CNAME at.
	CNAMETarget string

	// Job consumer retry budget.
	JobMaxAttempts int

	// Scheduler tuning.
	SweepBatchSize     int
	SyncStalenessHours int
	RenewalWindowDays  int

	// AlertWebhookURL receives dead-letter notifications for exhausted jobs.
	AlertWebhookURL string

	// Expiry-warning email.
	PostmarkServerToken string
	EmailFrom           string
}

func Load() (*Config, error) {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		TemporalAddress:     getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:      getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsAddr:         getEnv("METRICS_ADDR", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ServiceName:         getEnv("SERVICE_NAME", "dcv-orchestrator"),
		UpstreamBaseURL:     getEnv("UPSTREAM_BASE_URL", ""),
		UpstreamAPIToken:    getEnv("UPSTREAM_API_TOKEN", ""),
		CNAMETarget:         getEnv("CNAME_TARGET", ""),
		JobMaxAttempts:      getEnvInt("JOB_MAX_ATTEMPTS", 5),
		SweepBatchSize:      getEnvInt("SWEEP_BATCH_SIZE", 100),
		SyncStalenessHours:  getEnvInt("SYNC_STALENESS_HOURS", 24),
		RenewalWindowDays:   getEnvInt("RENEWAL_WINDOW_DAYS", 30),
		AlertWebhookURL:     getEnv("ALERT_WEBHOOK_URL", ""),
		PostmarkServerToken: getEnv("POSTMARK_SERVER_TOKEN", ""),
		EmailFrom:           getEnv("EMAIL_FROM", ""),
	}

	return cfg, nil
}

// Validate checks that the variables a given component needs are set.
func (c *Config) Validate(component string) error {
	switch component {
	case "dcv-api":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s", component)
		}
		if c.UpstreamBaseURL == "" {
			return fmt.Errorf("UPSTREAM_BASE_URL is required for %s", component)
		}
		if c.CNAMETarget == "" {
			return fmt.Errorf("CNAME_TARGET is required for %s", component)
		}
	case "worker":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s", component)
		}
		if c.UpstreamBaseURL == "" {
			return fmt.Errorf("UPSTREAM_BASE_URL is required for %s", component)
		}
	default:
		return fmt.Errorf("unknown component %q", component)
	}
	if c.JobMaxAttempts < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
	}
	if c.SweepBatchSize < 1 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
