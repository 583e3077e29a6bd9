package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Archive contains Elasticsearch parameters shared by the monitor and the
// retention job.
type Archive struct {
	Enabled            bool
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Monitor holds configuration for the monitoring daemon.
type Monitor struct {
	Archive
	TargetURL           string
	Relays              []string
	FetchTimeout        time.Duration
	DataDir             string
	BindAddr            string
	DefaultInterval     time.Duration
	ZeroStreakThreshold int
	KafkaBrokers        []string
	KafkaTopic          string
	AlertSuppressSize   int
	AlertSuppressTTL    time.Duration
}

// Retention configures the archive cleanup loop.
type Retention struct {
	Archive
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// Relay templates are tried in order; the percent-encoded target URL is
// appended to each.
const defaultRelays = "https://api.allorigins.win/raw?url=," +
	"https://corsproxy.io/?," +
	"https://api.codetabs.com/v1/proxy?quest="

// LoadMonitor builds a Monitor config from the environment. A .env file in
// the working directory is honored when present.
func LoadMonitor() (*Monitor, error) {
	_ = godotenv.Load()

	c := &Monitor{
		Archive:             loadArchive(),
		TargetURL:           getEnv("MONITOR_TARGET_URL", "https://nola.gov/next/news/"),
		Relays:              splitAndTrim(getEnv("MONITOR_RELAYS", defaultRelays)),
		FetchTimeout:        getDuration("MONITOR_FETCH_TIMEOUT", "20s"),
		DataDir:             getEnv("MONITOR_DATA_DIR", "data"),
		BindAddr:            getEnv("MONITOR_BIND_ADDR", "0.0.0.0:8080"),
		DefaultInterval:     getDuration("MONITOR_DEFAULT_INTERVAL", "30m"),
		ZeroStreakThreshold: getInt("MONITOR_ZERO_STREAK_THRESHOLD", 3),
		KafkaBrokers:        splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "news_alerts"),
		AlertSuppressSize:   getInt("MONITOR_ALERT_SUPPRESS_SIZE", 1000),
		AlertSuppressTTL:    getDuration("MONITOR_ALERT_SUPPRESS_TTL", "24h"),
	}

	if c.TargetURL == "" {
		return nil, fmt.Errorf("MONITOR_TARGET_URL cannot be empty")
	}
	if len(c.Relays) == 0 {
		return nil, fmt.Errorf("MONITOR_RELAYS must contain at least one relay template")
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("MONITOR_FETCH_TIMEOUT must be positive")
	}
	if c.DefaultInterval < time.Minute {
		return nil, fmt.Errorf("MONITOR_DEFAULT_INTERVAL must be at least one minute")
	}
	if c.ZeroStreakThreshold <= 0 {
		return nil, fmt.Errorf("MONITOR_ZERO_STREAK_THRESHOLD must be positive")
	}
	if c.AlertSuppressSize <= 0 {
		return nil, fmt.Errorf("MONITOR_ALERT_SUPPRESS_SIZE must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC cannot be empty when brokers are set")
	}

	return c, nil
}

// LoadRetention builds a Retention config from the environment.
func LoadRetention() (*Retention, error) {
	_ = godotenv.Load()

	c := &Retention{
		Archive:   loadArchive(),
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if !c.Archive.Enabled {
		return nil, fmt.Errorf("ARCHIVE_ENABLED must be true for the retention job")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadArchive() Archive {
	return Archive{
		Enabled:            getBool("ARCHIVE_ENABLED", false),
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news_archive"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
