package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/memory"
	"github.com/hupe1980/agentcore/sleeptime"
)

// Config represents the runtime configuration for an AgentCore deployment.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Memory    MemoryConfig    `yaml:"memory"`
	SleepTime SleepTimeConfig `yaml:"sleeptime"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig selects the completion provider and model.
type ModelConfig struct {
	Provider  string `yaml:"provider"`   // "anthropic", "openai" or "mock"
	Name      string `yaml:"name"`       // provider-specific model identifier
	APIKey    string `yaml:"api_key"`    // overridable via AGENTCORE_API_KEY
	MaxTokens int    `yaml:"max_tokens"` // 0 uses the provider default
}

// MemoryConfig tunes agent memory managers.
type MemoryConfig struct {
	MaxContextSize int `yaml:"max_context_size"` // in-context budget in characters
}

// SleepTimeConfig tunes the background consolidator.
type SleepTimeConfig struct {
	Enabled                 bool `yaml:"enabled"`
	IntervalSeconds         int  `yaml:"interval_seconds"`
	MinMessages             int  `yaml:"min_messages"`
	ContextWarningThreshold int  `yaml:"context_warning_threshold"`
	EnableSummarization     bool `yaml:"enable_summarization"`
	EnablePatternDetection  bool `yaml:"enable_pattern_detection"`
}

// Interval returns the consolidation interval as a duration.
func (c SleepTimeConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Options converts the section into a consolidator configuration.
func (c SleepTimeConfig) Options() sleeptime.Config {
	return sleeptime.Config{
		Interval:                c.Interval(),
		MinMessages:             c.MinMessages,
		ContextWarningThreshold: c.ContextWarningThreshold,
		EnableSummarization:     c.EnableSummarization,
		EnablePatternDetection:  c.EnablePatternDetection,
	}
}

// StorageConfig selects the durable store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path"`    // sqlite database file, overridable via AGENTCORE_STORAGE_PATH
}

// LoggingConfig tunes the runtime logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn" or "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LogLevel maps the configured level onto the logging package's levels.
func (c LoggingConfig) LogLevel() logging.LogLevel {
	switch c.Level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

// LoggerConfig converts the section into a logger configuration.
func (c LoggingConfig) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = c.LogLevel()
	if c.Format != "" {
		cfg.Format = c.Format
	}
	return cfg
}

// Default returns the baseline configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: "mock",
			Name:     "mock-model",
		},
		Memory: MemoryConfig{
			MaxContextSize: memory.DefaultMaxContextSize,
		},
		SleepTime: SleepTimeConfig{
			Enabled:                 false,
			IntervalSeconds:         int(sleeptime.DefaultConfig.Interval / time.Second),
			MinMessages:             sleeptime.DefaultConfig.MinMessages,
			ContextWarningThreshold: sleeptime.DefaultConfig.ContextWarningThreshold,
			EnableSummarization:     sleeptime.DefaultConfig.EnableSummarization,
			EnablePatternDetection:  sleeptime.DefaultConfig.EnablePatternDetection,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration from a YAML file, applies environment variable
// overrides and validates the result. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables take precedence over file values.
	if apiKey := os.Getenv("AGENTCORE_API_KEY"); apiKey != "" {
		cfg.Model.APIKey = apiKey
	}

	if storagePath := os.Getenv("AGENTCORE_STORAGE_PATH"); storagePath != "" {
		cfg.Storage.Path = storagePath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("model.provider must be 'anthropic', 'openai' or 'mock'")
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}

	if c.Memory.MaxContextSize <= 0 {
		return fmt.Errorf("memory.max_context_size must be positive")
	}

	if c.SleepTime.Enabled && c.SleepTime.IntervalSeconds <= 0 {
		return fmt.Errorf("sleeptime.interval_seconds must be positive")
	}

	if c.SleepTime.MinMessages < 0 {
		return fmt.Errorf("sleeptime.min_messages must not be negative")
	}

	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be 'memory' or 'sqlite'")
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite backend")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error'")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}
