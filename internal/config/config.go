package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the health listener

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/doorsync.db"

	// Controller gateway
	RESTEndpoint    string // base URL including the "/uhppote" prefix
	GatewayTimeout  time.Duration
	EventRangeHint  int
	ControllersFile string
	Timezone        string // fallback for controllers without one

	// Cache
	CacheDir         string
	CacheEnabled     bool
	CacheTTL         time.Duration
	CacheLockTimeout time.Duration

	// Reconciliation
	ReconcileInterval time.Duration // 0 disables the scheduler
	ReconcileWindow   int           // 0 = whole ring buffer

	NATSURL   string
	NATSToken string

	RateLimitPerMinute int // 0 disables

	LogLevel  string
	LogFormat string // "text" | "json"
}

func FromEnv() Config {
	addr := getenvDefault("DOORSYNC_HTTP_ADDR", ":8080")
	grpcAddr := getenvAllowEmpty("DOORSYNC_GRPC_ADDR", ":9090")

	env := strings.ToLower(getenvDefault("DOORSYNC_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("DOORSYNC_DB_PATH", "./data/doorsync.db")

	endpoint := strings.TrimRight(getenvDefault("DOORSYNC_REST_ENDPOINT", "http://127.0.0.1:8080"), "/")
	if !strings.HasSuffix(endpoint, "/uhppote") {
		endpoint += "/uhppote"
	}

	logFormat := strings.ToLower(getenvDefault("DOORSYNC_LOG_FORMAT", "text"))
	if logFormat != "text" && logFormat != "json" {
		logFormat = "text"
	}

	return Config{
		HTTPAddr: addr,
		GRPCAddr: grpcAddr,
		Env:      env,
		DBPath:   dbPath,

		RESTEndpoint:    endpoint,
		GatewayTimeout:  time.Duration(getenvIntMin("DOORSYNC_GATEWAY_TIMEOUT_SECONDS", 3, 1)) * time.Second,
		EventRangeHint:  getenvIntMin("DOORSYNC_EVENT_RANGE_HINT", 1000, 1),
		ControllersFile: getenvDefault("DOORSYNC_CONTROLLERS_FILE", "/etc/uhppoted/uhppoted.conf"),
		Timezone:        getenvDefault("DOORSYNC_TIMEZONE", "UTC"),

		CacheDir:         getenvDefault("DOORSYNC_CACHE_DIR", filepath.Join(os.TempDir(), "door_control_cache")),
		CacheEnabled:     getenvBool("DOORSYNC_CACHE_ENABLED", true),
		CacheTTL:         time.Duration(getenvIntMin("DOORSYNC_CACHE_TTL", 1800, 1)) * time.Second,
		CacheLockTimeout: time.Duration(getenvIntMin("DOORSYNC_CACHE_LOCK_TIMEOUT_MS", 2000, 1)) * time.Millisecond,

		ReconcileInterval: time.Duration(getenvInt("DOORSYNC_RECONCILE_INTERVAL_MINUTES", 15)) * time.Minute,
		ReconcileWindow:   getenvInt("DOORSYNC_RECONCILE_WINDOW", 0),

		NATSURL:   strings.TrimSpace(os.Getenv("DOORSYNC_NATS_URL")),
		NATSToken: os.Getenv("DOORSYNC_NATS_TOKEN"),

		RateLimitPerMinute: getenvInt("DOORSYNC_RATE_LIMIT_PER_MINUTE", 300),

		LogLevel:  strings.ToLower(getenvDefault("DOORSYNC_LOG_LEVEL", "info")),
		LogFormat: logFormat,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// getenvAllowEmpty distinguishes an unset variable (default) from one set to
// the empty string (explicitly off).
func getenvAllowEmpty(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	return getenvIntMin(key, def, 0)
}

func getenvIntMin(key string, def, min int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
