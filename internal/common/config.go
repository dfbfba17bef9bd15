package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Catalog     CatalogConfig   `toml:"catalog"`
	Storage     StorageConfig   `toml:"storage"`
	Source      SourceConfig    `toml:"source"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// CatalogConfig configures the company directory loaded from CSV
type CatalogConfig struct {
	CSVPath         string `toml:"csv_path"`         // Company listing CSV (Name, NSE Code, BSE Code)
	RefreshSchedule string `toml:"refresh_schedule"` // Cron schedule for CSV reload, empty disables
	SearchLimit     int    `toml:"search_limit"`     // Max matches returned per search
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration. The store is a
// rebuildable lookup index over the catalog CSV, not durable state, so it
// resets on startup by default.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// SourceConfig configures access to the disclosure source site
type SourceConfig struct {
	BaseURL     string `toml:"base_url"`     // Document source origin, e.g. https://www.screener.in
	UserAgent   string `toml:"user_agent"`   // Outbound User-Agent for page and file fetches
	PageTimeout string `toml:"page_timeout"` // Timeout for the disclosure page fetch
	RateLimit   int    `toml:"rate_limit"`   // Requests per second per host
}

// RetrievalConfig configures the download pool and archive layout
type RetrievalConfig struct {
	DocumentsRoot    string `toml:"documents_root"`    // Parent directory for per-company archive roots
	PoolSize         int    `toml:"pool_size"`         // Concurrent download workers per run
	MinFileSize      int    `toml:"min_file_size"`     // Bodies at or below this byte count are failures
	FileTimeout      string `toml:"file_timeout"`      // Per-file download timeout
	ProgressInterval string `toml:"progress_interval"` // Delay after each progress emission
	RunRetention     string `toml:"run_retention"`     // How long terminal runs stay queryable
}

// WebSocketConfig configures the status socket broadcaster
type WebSocketConfig struct {
	ProgressThrottle string `toml:"progress_throttle"` // Min interval between progress broadcasts per run
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in colligo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Catalog: CatalogConfig{
			CSVPath:         "./data/companies.csv",
			RefreshSchedule: "0 6 * * *", // Daily reload picks up a replaced CSV without restart
			SearchLimit:     10,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/catalog",
				ResetOnStartup: true,
			},
		},
		Source: SourceConfig{
			BaseURL:     "https://www.screener.in",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			PageTimeout: "30s",
			RateLimit:   8,
		},
		Retrieval: RetrievalConfig{
			DocumentsRoot:    "./data/documents",
			PoolSize:         3,
			MinFileSize:      1000,
			FileTimeout:      "60s",
			ProgressInterval: "50ms",
			RunRetention:     "1h",
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: "1s",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: COLLIGO_ENV, fallback: GO_ENV)
	if env := os.Getenv("COLLIGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("COLLIGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COLLIGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("COLLIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("COLLIGO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("COLLIGO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Catalog configuration
	if csvPath := os.Getenv("COLLIGO_CATALOG_CSV"); csvPath != "" {
		config.Catalog.CSVPath = csvPath
	}
	if schedule := os.Getenv("COLLIGO_CATALOG_REFRESH_SCHEDULE"); schedule != "" {
		config.Catalog.RefreshSchedule = schedule
	}
	if limit := os.Getenv("COLLIGO_CATALOG_SEARCH_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			config.Catalog.SearchLimit = l
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("COLLIGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if reset := os.Getenv("COLLIGO_BADGER_RESET_ON_STARTUP"); reset != "" {
		if r, err := strconv.ParseBool(reset); err == nil {
			config.Storage.Badger.ResetOnStartup = r
		}
	}

	// Source configuration
	if baseURL := os.Getenv("COLLIGO_SOURCE_BASE_URL"); baseURL != "" {
		config.Source.BaseURL = baseURL
	}
	if userAgent := os.Getenv("COLLIGO_SOURCE_USER_AGENT"); userAgent != "" {
		config.Source.UserAgent = userAgent
	}
	if pageTimeout := os.Getenv("COLLIGO_SOURCE_PAGE_TIMEOUT"); pageTimeout != "" {
		if _, err := time.ParseDuration(pageTimeout); err == nil {
			config.Source.PageTimeout = pageTimeout
		}
	}
	if rateLimit := os.Getenv("COLLIGO_SOURCE_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil && rl > 0 {
			config.Source.RateLimit = rl
		}
	}

	// Retrieval configuration
	if documentsRoot := os.Getenv("COLLIGO_DOCUMENTS_ROOT"); documentsRoot != "" {
		config.Retrieval.DocumentsRoot = documentsRoot
	}
	if poolSize := os.Getenv("COLLIGO_RETRIEVAL_POOL_SIZE"); poolSize != "" {
		if ps, err := strconv.Atoi(poolSize); err == nil && ps > 0 {
			config.Retrieval.PoolSize = ps
		}
	}
	if minFileSize := os.Getenv("COLLIGO_RETRIEVAL_MIN_FILE_SIZE"); minFileSize != "" {
		if mfs, err := strconv.Atoi(minFileSize); err == nil && mfs >= 0 {
			config.Retrieval.MinFileSize = mfs
		}
	}
	if fileTimeout := os.Getenv("COLLIGO_RETRIEVAL_FILE_TIMEOUT"); fileTimeout != "" {
		if _, err := time.ParseDuration(fileTimeout); err == nil {
			config.Retrieval.FileTimeout = fileTimeout
		}
	}
	if progressInterval := os.Getenv("COLLIGO_RETRIEVAL_PROGRESS_INTERVAL"); progressInterval != "" {
		if _, err := time.ParseDuration(progressInterval); err == nil {
			config.Retrieval.ProgressInterval = progressInterval
		}
	}
	if runRetention := os.Getenv("COLLIGO_RETRIEVAL_RUN_RETENTION"); runRetention != "" {
		if _, err := time.ParseDuration(runRetention); err == nil {
			config.Retrieval.RunRetention = runRetention
		}
	}

	// WebSocket configuration
	if throttle := os.Getenv("COLLIGO_WEBSOCKET_PROGRESS_THROTTLE"); throttle != "" {
		if _, err := time.ParseDuration(throttle); err == nil {
			config.WebSocket.ProgressThrottle = throttle
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateCronSchedule validates a standard 5-field cron expression
func ValidateCronSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDurationOr parses a duration string, falling back to a default on
// empty or malformed input
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
