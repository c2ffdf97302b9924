package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Queue       QueueConfig     `toml:"queue"`
	Pipelines   PipelinesConfig `toml:"pipelines"`
	Discovery   DiscoveryConfig `toml:"discovery"`
	Anthropic   AnthropicConfig `toml:"anthropic"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Publisher   PublisherConfig `toml:"publisher"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Output        []string `toml:"output"`          // "stdout", "file"
	MinEventLevel string   `toml:"min_event_level"` // Minimum level streamed to websocket clients
}

// QueueConfig holds settings shared by every pipeline queue.
type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for messages
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	RetainCompleted   int    `toml:"retain_completed"`   // Completed jobs kept per queue before GC
	RetainFailed      int    `toml:"retain_failed"`      // Failed jobs kept per queue before GC
}

// PipelineConfig configures one pipeline's worker pool.
type PipelineConfig struct {
	Concurrency    int    `toml:"concurrency"`      // Max jobs processed in parallel
	RatePerMinute  int    `toml:"rate_per_minute"`  // Max jobs started per rolling minute (0 = unlimited)
	Attempts       int    `toml:"attempts"`         // Max delivery attempts before terminal failure
	Backoff        string `toml:"backoff"`          // Base retry delay, doubled per attempt, e.g. "5s"
	Schedule       string `toml:"schedule"`         // Cron schedule for automatic runs (discovery only)
	ScheduleEnable bool   `toml:"schedule_enabled"` // Whether scheduled runs are active
}

type PipelinesConfig struct {
	Discovery  PipelineConfig `toml:"discovery"`
	Generation PipelineConfig `toml:"generation"`
	Research   PipelineConfig `toml:"research"`
	Media      PipelineConfig `toml:"media"`
}

// DiscoveryConfig holds brand-independent discovery defaults.
type DiscoveryConfig struct {
	MinScore       float64 `toml:"min_score"`         // Default score threshold when a brand does not set one
	MaxIdeasPerDay int     `toml:"max_ideas_per_day"` // Default daily cap when a brand does not set one
}

type AnthropicConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	ImageModel  string  `toml:"image_model"`
	Temperature float64 `toml:"temperature"`
}

// PublisherConfig configures the REST publishing endpoint.
type PublisherConfig struct {
	BaseURL      string `toml:"base_url"`
	TokenURL     string `toml:"token_url"` // OAuth2 client-credentials token endpoint (empty = api key auth)
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	APIKey       string `toml:"api_key"`
}

// NewDefaultConfig returns the built-in defaults. Pipeline concurrency
// mirrors the production deployment: discovery 2, generation 3, research 2,
// media 2, all capped at 10 jobs/minute.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/praeco",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Output:        []string{"stdout"},
			MinEventLevel: "info",
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			VisibilityTimeout: "5m",
			RetainCompleted:   100,
			RetainFailed:      50,
		},
		Pipelines: PipelinesConfig{
			Discovery: PipelineConfig{
				Concurrency:   2,
				RatePerMinute: 10,
				Attempts:      3,
				Backoff:       "5s",
				Schedule:      "0 6 * * *",
			},
			Generation: PipelineConfig{
				Concurrency:   3,
				RatePerMinute: 10,
				Attempts:      3,
				Backoff:       "10s",
			},
			Research: PipelineConfig{
				Concurrency:   2,
				RatePerMinute: 10,
				Attempts:      3,
				Backoff:       "10s",
			},
			Media: PipelineConfig{
				Concurrency:   2,
				RatePerMinute: 10,
				Attempts:      2,
				Backoff:       "15s",
			},
		},
		Discovery: DiscoveryConfig{
			MinScore:       50,
			MaxIdeasPerDay: 20,
		},
		Anthropic: AnthropicConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			ImageModel:  "gemini-2.5-flash-image",
			Temperature: 0.7,
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
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
	if env := os.Getenv("PRAECO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PRAECO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PRAECO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("PRAECO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("PRAECO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Anthropic.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// PollInterval parses the configured queue poll interval with a safe fallback.
func (q *QueueConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(q.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// VisibilityTimeoutDuration parses the configured visibility timeout with a safe fallback.
func (q *QueueConfig) VisibilityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(q.VisibilityTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// BackoffDuration parses the pipeline's base retry delay with a safe fallback.
func (p *PipelineConfig) BackoffDuration() time.Duration {
	d, err := time.ParseDuration(p.Backoff)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
