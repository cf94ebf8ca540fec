package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
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

	// External authority system (NPWD)
	NpwdBaseURL     string
	NpwdBearerToken string
	NpwdTimeout     time.Duration
	NpwdRateLimit   int // outbound requests per second

	// Internal backend services
	PrnBaseURL     string
	AccountBaseURL string
	BackendTimeout time.Duration

	// Email gateway
	EmailBaseURL    string
	EmailAPIKey     string
	PrnTemplateID   string
	PernTemplateID  string
	OperatorAddress string

	// Producer delta push
	ProducersContext string

	// Feature flags: a disabled stage logs and returns without running.
	FetchPrnsEnabled     bool
	PushProducersEnabled bool

	// Retry policy for outbound NPWD calls
	RetryMaxAttempts int
	RetryDelay       time.Duration
	RetryExponential bool

	// Queue transport
	ReceiveBatchSize  int
	VisibilityTimeout time.Duration
	RequeueDelay      time.Duration
	MaxDeliveries     int

	// Background worker schedules
	FetchInterval time.Duration
	DrainInterval time.Duration
	PushInterval  time.Duration
}

func Load() (*Config, error) {
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

		NpwdBaseURL:     getEnv("NPWD_BASE_URL", "https://npwd.example.gov.uk"),
		NpwdBearerToken: getEnv("NPWD_BEARER_TOKEN", ""),
		NpwdTimeout:     getDuration("NPWD_TIMEOUT", 30*time.Second),
		NpwdRateLimit:   getInt("NPWD_RATE_LIMIT", 10),

		PrnBaseURL:     getEnv("PRN_BASE_URL", "http://localhost:8081"),
		AccountBaseURL: getEnv("ACCOUNT_BASE_URL", "http://localhost:8082"),
		BackendTimeout: getDuration("BACKEND_TIMEOUT", 10*time.Second),

		EmailBaseURL:    getEnv("EMAIL_BASE_URL", "http://localhost:8083"),
		EmailAPIKey:     getEnv("EMAIL_API_KEY", ""),
		PrnTemplateID:   getEnv("EMAIL_PRN_TEMPLATE_ID", "prn-issued"),
		PernTemplateID:  getEnv("EMAIL_PERN_TEMPLATE_ID", "pern-issued"),
		OperatorAddress: getEnv("OPERATOR_EMAIL", "npwd-support@example.gov.uk"),

		ProducersContext: getEnv("PRODUCERS_CONTEXT", "https://npwd.example.gov.uk/odata/$metadata#Producers"),

		FetchPrnsEnabled:     getBool("FETCH_PRNS_ENABLED", true),
		PushProducersEnabled: getBool("PUSH_PRODUCERS_ENABLED", true),

		RetryMaxAttempts: getInt("RETRY_MAX_ATTEMPTS", 3),
		RetryDelay:       getDuration("RETRY_DELAY", 30*time.Second),
		RetryExponential: getBool("RETRY_EXPONENTIAL", false),

		ReceiveBatchSize:  getInt("RECEIVE_BATCH_SIZE", 10),
		VisibilityTimeout: getDuration("VISIBILITY_TIMEOUT", 5*time.Minute),
		RequeueDelay:      getDuration("REQUEUE_DELAY", 30*time.Second),
		MaxDeliveries:     getInt("MAX_DELIVERIES", 10),

		FetchInterval: getDuration("FETCH_INTERVAL", 15*time.Minute),
		DrainInterval: getDuration("DRAIN_INTERVAL", time.Minute),
		PushInterval:  getDuration("PUSH_INTERVAL", 15*time.Minute),
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
