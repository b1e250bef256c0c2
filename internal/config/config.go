// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the sync engine's
// tunables (retry ceiling, backoff, breaker thresholds, batch bounds,
// retention windows) alongside server, logging, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-sync-engine")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RemoteConfig defines how the engine reaches the sync backend.
type RemoteConfig struct {
	BaseURL     string        // REMOTE_BASE_URL, e.g. "https://api.moodpulse.app"
	CallTimeout time.Duration // per adapter call; expiry counts as a failure
	HealthPath  string        // probed by the network monitor
	RPS         float64       // outbound token-bucket refill rate
	Burst       int           // outbound token-bucket size
}

// SyncConfig holds the engine tunables. The retry ceiling and backoff
// constants are deliberately configuration, not contract: deployments should
// align them with their data-loss tolerance.
type SyncConfig struct {
	Workers          int           // worker pool size per pass
	RetryCeiling     int           // attempts before an item is dead-lettered
	PermanentCeiling int           // lower bound for permanent (4xx) errors
	BackoffBase      time.Duration // first retry delay
	BackoffCap       time.Duration // upper bound on any retry delay
	JitterFraction   float64       // +/- fraction of the computed delay

	BreakerThreshold   int           // consecutive failures to open the breaker
	BreakerWindow      time.Duration // rolling window for the failure count
	BreakerCooldown    time.Duration // initial open duration
	BreakerCooldownMax time.Duration // cap for grown cooldowns

	BatchMin     int // smallest batch the optimizer may recommend
	BatchMax     int // largest batch the optimizer may recommend
	BatchInitial int // starting recommendation

	Interval         time.Duration // periodic pass trigger when online
	ProbeInterval    time.Duration // connectivity probe cadence
	DLQRetention     time.Duration // archived items older than this are purged
	StalePending     time.Duration // pending items older than this are discarded
	MaintenanceEvery time.Duration // DLQ purge + staleness sweep cadence
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Store
	DBPath string // SQLite path

	// Engine
	Remote RemoteConfig
	Sync   SyncConfig

	// Rate limiting (admin API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBPath: getenv("DB_PATH", "sync.db"),

		// Remote backend
		Remote: RemoteConfig{
			BaseURL:     strings.TrimRight(getenv("REMOTE_BASE_URL", "http://localhost:9090"), "/"),
			CallTimeout: getdur("REMOTE_CALL_TIMEOUT", 10*time.Second),
			HealthPath:  getenv("REMOTE_HEALTH_PATH", "/health"),
			RPS:         getfloat("REMOTE_RPS", 20.0),
			Burst:       getint("REMOTE_BURST", 10),
		},

		// Engine tunables
		Sync: SyncConfig{
			Workers:          getint("SYNC_WORKERS", 2),
			RetryCeiling:     getint("SYNC_RETRY_CEILING", 8),
			PermanentCeiling: getint("SYNC_PERMANENT_CEILING", 3),
			BackoffBase:      getdur("SYNC_BACKOFF_BASE", 2*time.Second),
			BackoffCap:       getdur("SYNC_BACKOFF_CAP", 5*time.Minute),
			JitterFraction:   getfloat("SYNC_BACKOFF_JITTER", 0.2),

			BreakerThreshold:   getint("BREAKER_THRESHOLD", 5),
			BreakerWindow:      getdur("BREAKER_WINDOW", 30*time.Second),
			BreakerCooldown:    getdur("BREAKER_COOLDOWN", 30*time.Second),
			BreakerCooldownMax: getdur("BREAKER_COOLDOWN_MAX", 10*time.Minute),

			BatchMin:     getint("SYNC_BATCH_MIN", 5),
			BatchMax:     getint("SYNC_BATCH_MAX", 50),
			BatchInitial: getint("SYNC_BATCH_INITIAL", 10),

			Interval:         getdur("SYNC_INTERVAL", 5*time.Minute),
			ProbeInterval:    getdur("NET_PROBE_INTERVAL", 15*time.Second),
			DLQRetention:     getdur("DLQ_RETENTION", 30*24*time.Hour),
			StalePending:     getdur("QUEUE_STALE_PENDING", 14*24*time.Hour),
			MaintenanceEvery: getdur("MAINTENANCE_INTERVAL", time.Hour),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-sync-engine"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Remote.BaseURL) == "" {
		return cfg, errors.New("REMOTE_BASE_URL must not be empty")
	}
	if cfg.Remote.CallTimeout <= 0 {
		return cfg, errors.New("REMOTE_CALL_TIMEOUT must be > 0")
	}
	if cfg.Remote.RPS <= 0 {
		return cfg, errors.New("REMOTE_RPS must be > 0")
	}
	if cfg.Remote.Burst < 1 {
		return cfg, errors.New("REMOTE_BURST must be >= 1")
	}
	if cfg.Sync.Workers < 1 {
		return cfg, errors.New("SYNC_WORKERS must be >= 1")
	}
	if cfg.Sync.RetryCeiling < 1 {
		return cfg, errors.New("SYNC_RETRY_CEILING must be >= 1")
	}
	if cfg.Sync.PermanentCeiling < 1 || cfg.Sync.PermanentCeiling > cfg.Sync.RetryCeiling {
		return cfg, errors.New("SYNC_PERMANENT_CEILING must be in [1, SYNC_RETRY_CEILING]")
	}
	if cfg.Sync.BackoffBase <= 0 || cfg.Sync.BackoffCap < cfg.Sync.BackoffBase {
		return cfg, errors.New("backoff base must be > 0 and cap >= base")
	}
	if cfg.Sync.JitterFraction < 0 || cfg.Sync.JitterFraction >= 1 {
		return cfg, errors.New("SYNC_BACKOFF_JITTER must be in [0,1)")
	}
	if cfg.Sync.BreakerThreshold < 1 {
		return cfg, errors.New("BREAKER_THRESHOLD must be >= 1")
	}
	if cfg.Sync.BreakerWindow <= 0 || cfg.Sync.BreakerCooldown <= 0 {
		return cfg, errors.New("breaker window and cooldown must be positive")
	}
	if cfg.Sync.BreakerCooldownMax < cfg.Sync.BreakerCooldown {
		return cfg, errors.New("BREAKER_COOLDOWN_MAX must be >= BREAKER_COOLDOWN")
	}
	if cfg.Sync.BatchMin < 1 || cfg.Sync.BatchMax < cfg.Sync.BatchMin {
		return cfg, errors.New("batch bounds must satisfy 1 <= min <= max")
	}
	if cfg.Sync.BatchInitial < cfg.Sync.BatchMin || cfg.Sync.BatchInitial > cfg.Sync.BatchMax {
		return cfg, errors.New("SYNC_BATCH_INITIAL must be within [SYNC_BATCH_MIN, SYNC_BATCH_MAX]")
	}
	if cfg.Sync.Interval <= 0 || cfg.Sync.ProbeInterval <= 0 {
		return cfg, errors.New("SYNC_INTERVAL and NET_PROBE_INTERVAL must be > 0")
	}
	if cfg.Sync.DLQRetention <= 0 || cfg.Sync.StalePending <= 0 || cfg.Sync.MaintenanceEvery <= 0 {
		return cfg, errors.New("retention and maintenance intervals must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
