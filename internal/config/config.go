package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all job settings, populated from environment variables.
// Input and output paths come from command-line flags instead.
type Config struct {
	HTTPAddr        string // empty disables the health/metrics server
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	MissingValue   float64
	ExtractWorkers int
	Series         string // product series kept from archives, e.g. "Z98"
	SourceCRS      string
	OutputCRS      string

	// Kafka publication of coalesced records; disabled when no brokers are set.
	KafkaBrokers       []string
	KafkaSinkTopic     string
	BatchSize          int
	BatchFlushInterval time.Duration

	// NWS elevation enrichment.
	ElevationEnabled   bool
	ElevationBaseURL   string
	ElevationTimeout   time.Duration
	ElevationInterval  time.Duration
	ElevationCacheSize int
	UserAgent          string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	missing, err := parseMissingValue()
	if err != nil {
		return nil, err
	}

	workers, err := parseExtractWorkers()
	if err != nil {
		return nil, err
	}

	elevationTimeout, err := parsePositiveDuration("NWS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	elevationInterval, err := parsePositiveDuration("NWS_RATE_INTERVAL", "100ms")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MissingValue:   missing,
		ExtractWorkers: workers,
		Series:         sharedcfg.EnvOrDefault("SERIES", "Z98"),
		SourceCRS:      sharedcfg.EnvOrDefault("SOURCE_CRS", "+proj=longlat +datum=WGS84 +no_defs"),
		OutputCRS:      sharedcfg.EnvOrDefault("OUTPUT_CRS", "+proj=longlat +datum=WGS84 +no_defs"),

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "ndfd-coalesced-forecasts"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ElevationEnabled:   os.Getenv("NWS_ENABLED") == "true",
		ElevationBaseURL:   sharedcfg.EnvOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		ElevationTimeout:   elevationTimeout,
		ElevationInterval:  elevationInterval,
		ElevationCacheSize: parseElevationCacheSize(),
		UserAgent:          os.Getenv("NWS_USER_AGENT"),
	}

	if len(cfg.Series) != 3 {
		return nil, errors.New("invalid SERIES: must be a three-character code such as Z98")
	}
	if cfg.ElevationEnabled && cfg.UserAgent == "" {
		return nil, errors.New("NWS_ENABLED is true but NWS_USER_AGENT is not set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether coalesced records should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseMissingValue() (float64, error) {
	s := sharedcfg.EnvOrDefault("MISSING_VALUE", "9999")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, errors.New("invalid MISSING_VALUE: must be a finite number or NaN")
	}
	return v, nil
}

func parseExtractWorkers() (int, error) {
	s := sharedcfg.EnvOrDefault("EXTRACT_WORKERS", "4")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 64 {
		return 0, errors.New("invalid EXTRACT_WORKERS: must be 1-64")
	}
	return n, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseElevationCacheSize() int {
	if s := os.Getenv("NWS_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 10000
}
