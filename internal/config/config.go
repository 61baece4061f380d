// Package config centralizes how LoanDesk reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Notification modes.
const (
	NotifyLog   = "log"
	NotifyQueue = "queue"
)

// Config represents runtime configuration shared by every binary.
type Config struct {
	Address        string
	Store          string
	DatabaseURL    string
	SQLitePath     string
	PolicyPath     string
	StageTimeout   time.Duration
	MaxUploadBytes int64

	// Remote stage services. When all three are empty the in-process
	// simulations are used.
	ExtractionURL string
	CreditURL     string
	PropertyURL   string
	StagesAddress string

	NotifyMode    string
	NotifyLog     string
	NotifyWorkers int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Region      string
	S3UseSSL      bool
	ArchiveBucket string
	ArchiveURLTTL time.Duration
}

const (
	defaultAddress        = ":8080"
	defaultStagesAddress  = ":8081"
	defaultSQLitePath     = "data/loandesk.db"
	defaultStageTimeout   = 10 * time.Second
	defaultMaxUploadBytes = 10 << 20 // 10 MiB
	defaultNotifyLog      = "data/notifications.log"
	defaultNotifyWorkers  = 2
	defaultRedisAddr      = "127.0.0.1:6379"
	defaultS3Region       = "us-east-1"
	defaultArchiveBucket  = "loandesk-decisions"
	defaultArchiveURLTTL  = 15 * time.Minute
)

// Load reads configuration from environment variables falling back to
// defaults. Unknown enum values are reported instead of silently ignored.
func Load() (*Config, error) {
	cfg := &Config{
		Address:        readEnv("LOANDESK_ADDRESS", defaultAddress),
		Store:          strings.ToLower(readEnv("LOANDESK_STORE", StoreMemory)),
		DatabaseURL:    readEnv("LOANDESK_DATABASE_URL", ""),
		SQLitePath:     readEnv("LOANDESK_SQLITE_PATH", defaultSQLitePath),
		PolicyPath:     readEnv("LOANDESK_POLICY_PATH", ""),
		StageTimeout:   parseDuration("LOANDESK_STAGE_TIMEOUT", defaultStageTimeout),
		MaxUploadBytes: parseInt64("LOANDESK_MAX_UPLOAD_BYTES", defaultMaxUploadBytes),

		ExtractionURL: readEnv("LOANDESK_EXTRACTION_URL", ""),
		CreditURL:     readEnv("LOANDESK_CREDIT_URL", ""),
		PropertyURL:   readEnv("LOANDESK_PROPERTY_URL", ""),
		StagesAddress: readEnv("LOANDESK_STAGES_ADDRESS", defaultStagesAddress),

		NotifyMode:    strings.ToLower(readEnv("LOANDESK_NOTIFY_MODE", NotifyLog)),
		NotifyLog:     readEnv("LOANDESK_NOTIFY_LOG", defaultNotifyLog),
		NotifyWorkers: parseInt("LOANDESK_NOTIFY_WORKERS", defaultNotifyWorkers),

		RedisAddr:     readEnv("LOANDESK_REDIS_ADDR", defaultRedisAddr),
		RedisPassword: readEnv("LOANDESK_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("LOANDESK_REDIS_DB", 0),

		S3Endpoint:    readEnv("LOANDESK_S3_ENDPOINT", ""),
		S3AccessKey:   readEnv("LOANDESK_S3_ACCESS_KEY", ""),
		S3SecretKey:   readEnv("LOANDESK_S3_SECRET_KEY", ""),
		S3Region:      readEnv("LOANDESK_S3_REGION", defaultS3Region),
		S3UseSSL:      parseBool("LOANDESK_S3_USE_SSL", false),
		ArchiveBucket: readEnv("LOANDESK_ARCHIVE_BUCKET", defaultArchiveBucket),
		ArchiveURLTTL: parseDuration("LOANDESK_ARCHIVE_URL_TTL", defaultArchiveURLTTL),
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.NotifyWorkers <= 0 {
		cfg.NotifyWorkers = defaultNotifyWorkers
	}
	if cfg.ArchiveURLTTL <= 0 {
		cfg.ArchiveURLTTL = defaultArchiveURLTTL
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("LOANDESK_DATABASE_URL is required for the %s store", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown LOANDESK_STORE %q", cfg.Store)
	}
	switch cfg.NotifyMode {
	case NotifyLog, NotifyQueue:
	default:
		return nil, fmt.Errorf("unknown LOANDESK_NOTIFY_MODE %q", cfg.NotifyMode)
	}
	remote := 0
	for _, u := range []string{cfg.ExtractionURL, cfg.CreditURL, cfg.PropertyURL} {
		if u != "" {
			remote++
		}
	}
	if remote != 0 && remote != 3 {
		return nil, fmt.Errorf("set all of LOANDESK_EXTRACTION_URL, LOANDESK_CREDIT_URL and LOANDESK_PROPERTY_URL, or none")
	}
	return cfg, nil
}

// RemoteStages reports whether the stage collaborators run as HTTP services.
func (c *Config) RemoteStages() bool {
	return c.ExtractionURL != "" && c.CreditURL != "" && c.PropertyURL != ""
}

// ArchiveEnabled reports whether decided records are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Endpoint != ""
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	// Invalid input falls back to the default rather than failing startup.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
