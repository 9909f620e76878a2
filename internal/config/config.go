package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/directory-console/internal/infrastructure/resilience"
)

// FileEnv names the optional YAML file whose keys mirror the environment
// variable names. Environment variables win over the file.
const FileEnv = "CONSOLE_CONFIG_FILE"

type Config struct {
	LogLevel  string
	LogFormat string

	DirectoryAPIURL            string
	DirectoryAPITimeout        time.Duration
	DirectoryAPIRateLimitRPS   float64
	DirectoryAPIRateLimitBurst int

	ImportPollInterval             time.Duration
	ImportRelaxedPollInterval      time.Duration
	ImportTerminalPollsBeforeRelax int
	EstablishmentsPollInterval     time.Duration

	CacheFetchTimeout time.Duration
	CacheMaxAge       time.Duration

	Resilience resilience.Config

	DashboardPort           string
	DashboardRateLimitRPS   float64
	DashboardRateLimitBurst int
	DashboardMaxInFlight    int

	NATSURL     string
	NATSSubject string

	ExportPath string

	WatchSiteIDs       []int64
	WatcherMetricsPort string
}

type source struct {
	file map[string]string
}

func Load() (Config, error) {
	src := source{file: map[string]string{}}
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}

	watchIDs, err := parseIDs(src.mustEnv("WATCH_SITE_IDS", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse WATCH_SITE_IDS: %w", err)
	}

	def := resilience.DefaultConfig()
	return Config{
		LogLevel:  src.mustEnv("LOG_LEVEL", "info"),
		LogFormat: src.mustEnv("LOG_FORMAT", "json"),

		DirectoryAPIURL:            src.mustEnv("DIRECTORY_API_URL", "http://localhost:8000"),
		DirectoryAPITimeout:        src.mustEnvDuration("DIRECTORY_API_TIMEOUT", 30*time.Second),
		DirectoryAPIRateLimitRPS:   src.mustEnvFloat("DIRECTORY_API_RATE_LIMIT_RPS", 20),
		DirectoryAPIRateLimitBurst: src.mustEnvInt("DIRECTORY_API_RATE_LIMIT_BURST", 10),

		ImportPollInterval:             src.mustEnvDuration("IMPORT_POLL_INTERVAL", 3*time.Second),
		ImportRelaxedPollInterval:      src.mustEnvDuration("IMPORT_RELAXED_POLL_INTERVAL", 30*time.Second),
		ImportTerminalPollsBeforeRelax: src.mustEnvInt("IMPORT_TERMINAL_POLLS_BEFORE_RELAX", 3),
		EstablishmentsPollInterval:     src.mustEnvDuration("ESTABLISHMENTS_POLL_INTERVAL", 5*time.Second),

		CacheFetchTimeout: src.mustEnvDuration("CACHE_FETCH_TIMEOUT", 20*time.Second),
		CacheMaxAge:       src.mustEnvDuration("CACHE_MAX_AGE", 0),

		Resilience: resilience.Config{
			RetryMaxAttempts:        src.mustEnvInt("RETRY_MAX_ATTEMPTS", def.RetryMaxAttempts),
			RetryInitialBackoff:     src.mustEnvDuration("RETRY_INITIAL_BACKOFF", def.RetryInitialBackoff),
			RetryMaxBackoff:         src.mustEnvDuration("RETRY_MAX_BACKOFF", def.RetryMaxBackoff),
			RetryMultiplier:         src.mustEnvFloat("RETRY_MULTIPLIER", def.RetryMultiplier),
			BreakerEnabled:          src.mustEnvBool("BREAKER_ENABLED", def.BreakerEnabled),
			BreakerMinRequests:      uint32(src.mustEnvInt("BREAKER_MIN_REQUESTS", int(def.BreakerMinRequests))),
			BreakerFailureRatio:     src.mustEnvFloat("BREAKER_FAILURE_RATIO", def.BreakerFailureRatio),
			BreakerOpenTimeout:      src.mustEnvDuration("BREAKER_OPEN_TIMEOUT", def.BreakerOpenTimeout),
			BreakerHalfOpenMaxCalls: uint32(src.mustEnvInt("BREAKER_HALF_OPEN_MAX_CALLS", int(def.BreakerHalfOpenMaxCalls))),
		},

		DashboardPort:           src.mustEnv("DASHBOARD_PORT", "8090"),
		DashboardRateLimitRPS:   src.mustEnvFloat("DASHBOARD_RATE_LIMIT_RPS", 0),
		DashboardRateLimitBurst: src.mustEnvInt("DASHBOARD_RATE_LIMIT_BURST", 0),
		DashboardMaxInFlight:    src.mustEnvInt("DASHBOARD_MAX_IN_FLIGHT", 64),

		NATSURL:     src.mustEnv("NATS_URL", ""),
		NATSSubject: src.mustEnv("NATS_SUBJECT", "directory.imports.transitions"),

		ExportPath: src.mustEnv("EXPORT_PATH", "./data/exports"),

		WatchSiteIDs:       watchIDs,
		WatcherMetricsPort: src.mustEnv("WATCHER_METRICS_PORT", "9091"),
	}, nil
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("3s") and bare seconds ("3").
func (s source) mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid site id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
