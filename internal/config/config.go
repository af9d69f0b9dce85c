package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
)

// Defaults for the LINDAS FOEN hydro dataset.
const (
	DefaultEndpoint       = "https://ld.admin.ch/query"
	DefaultBaseIRI        = "https://environment.ld.admin.ch/foen/hydro"
	DefaultGraph          = "https://lindas.admin.ch/foen/hydro"
	DefaultSiteCodes      = "2044,2112,2491,2355"
	DefaultOutputFilename = "lindas_hydro_data.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SPARQLEndpoint string
	BaseIRI        string
	Graph          string

	SiteCodes  []string
	Parameters []domain.Parameter

	OutputDir      string
	OutputFilename string
	StoreBackend   string // "csv" or "sqlite"
	SQLitePath     string

	RetryMaxAttempts int
	RetryDelay       time.Duration
	RequestTimeout   time.Duration

	// Schedule is a cron expression; empty means run once and exit.
	Schedule string

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// OutputPath is the full path of the CSV dataset file.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFilename)
}

// KafkaEnabled reports whether new records should be published downstream.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates everything that would otherwise fail after
// the first network call.
func Load() (*Config, error) {
	retryMax, err := parsePositiveInt("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	retryDelay, err := parseSeconds("RETRY_DELAY", 2.0)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	params, err := parseParameters(envOrDefault("PARAMETERS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SPARQLEndpoint: envOrDefault("SPARQL_ENDPOINT", DefaultEndpoint),
		BaseIRI:        strings.TrimRight(envOrDefault("SPARQL_BASE_IRI", DefaultBaseIRI), "/"),
		Graph:          envOrDefault("SPARQL_GRAPH", DefaultGraph),

		SiteCodes:  splitList(envOrDefault("SITE_CODES", DefaultSiteCodes)),
		Parameters: params,

		OutputDir:      envOrDefault("OUTPUT_DIR", "data"),
		OutputFilename: envOrDefault("OUTPUT_FILENAME", DefaultOutputFilename),
		StoreBackend:   envOrDefault("STORE_BACKEND", "csv"),
		SQLitePath:     envOrDefault("SQLITE_PATH", filepath.Join("data", "lindas_hydro.db")),

		RetryMaxAttempts: retryMax,
		RetryDelay:       retryDelay,
		RequestTimeout:   requestTimeout,

		Schedule: os.Getenv("SCHEDULE"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "hydro-measurements"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.SPARQLEndpoint == "" {
		return nil, errors.New("SPARQL_ENDPOINT is required")
	}
	if len(cfg.SiteCodes) == 0 {
		return nil, &domain.ConfigError{Reason: "SITE_CODES must name at least one station"}
	}
	if len(cfg.Parameters) == 0 {
		return nil, &domain.ConfigError{Reason: "PARAMETERS must name at least one parameter"}
	}
	if cfg.StoreBackend != "csv" && cfg.StoreBackend != "sqlite" {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (want csv or sqlite)", cfg.StoreBackend)
	}

	return cfg, nil
}

// parseParameters parses a comma-separated parameter list. An empty value
// means every recognized parameter.
func parseParameters(raw string) ([]domain.Parameter, error) {
	names := splitList(raw)
	if len(names) == 0 {
		params := make([]domain.Parameter, len(domain.AllParameters))
		copy(params, domain.AllParameters)
		return params, nil
	}

	params := make([]domain.Parameter, 0, len(names))
	for _, name := range names {
		p, err := domain.ParseParameter(name)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

// parseSeconds reads a duration given as a float number of seconds, the
// form the deployment environment uses for RETRY_DELAY.
func parseSeconds(key string, fallback float64) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return time.Duration(fallback * float64(time.Second)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}
