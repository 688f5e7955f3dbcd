package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete bskb configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Store     StoreConfig     `json:"store" mapstructure:"store"`
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`
	Inference InferenceConfig `json:"inference" mapstructure:"inference"`
	Fusion    FusionConfig    `json:"fusion" mapstructure:"fusion"`
	Timeouts  TimeoutsConfig  `json:"timeouts" mapstructure:"timeouts"`
	Cache     CacheConfig     `json:"cache" mapstructure:"cache"`
	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// StoreConfig locates the sqlite index store
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// EmbeddingConfig configures the embedding collaborator
type EmbeddingConfig struct {
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Model    string `json:"model" mapstructure:"model"`
	// Dimension is fixed by the deployed model
	Dimension int `json:"dimension" mapstructure:"dimension"`
}

// InferenceConfig configures the LLM inference collaborator
type InferenceConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	Endpoint    string  `json:"endpoint" mapstructure:"endpoint"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"maxTokens" mapstructure:"maxTokens"`
}

// FusionConfig holds the fixed per-source fusion weights
type FusionConfig struct {
	SemanticWeight float64 `json:"semanticWeight" mapstructure:"semanticWeight"`
	GraphWeight    float64 `json:"graphWeight" mapstructure:"graphWeight"`
}

// TimeoutsConfig bounds each collaborator call
type TimeoutsConfig struct {
	VectorMs    int `json:"vectorMs" mapstructure:"vectorMs"`
	GraphMs     int `json:"graphMs" mapstructure:"graphMs"`
	InferenceMs int `json:"inferenceMs" mapstructure:"inferenceMs"`
}

// CacheConfig configures the best-effort result cache
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	TtlSeconds int  `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Path: ".bskb/index.db",
		},
		Embedding: EmbeddingConfig{
			Endpoint:  "http://localhost:11434",
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		Inference: InferenceConfig{
			Enabled:     true,
			Endpoint:    "http://localhost:11434",
			Model:       "qwen2.5-coder:7b",
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Fusion: FusionConfig{
			SemanticWeight: 0.6,
			GraphWeight:    0.4,
		},
		Timeouts: TimeoutsConfig{
			VectorMs:    3000,
			GraphMs:     3000,
			InferenceMs: 60000,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TtlSeconds: 300,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7411",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.bskb/config.json, falling
// back to defaults when no config file exists.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".bskb"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the configuration file location for a project root.
func Path(root string) string {
	return filepath.Join(root, ".bskb", "config.json")
}

// Save writes the configuration to <root>/.bskb/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".bskb")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Fusion.SemanticWeight < 0 || c.Fusion.GraphWeight < 0 {
		return &ConfigError{Field: "fusion", Message: "weights must be non-negative"}
	}
	if c.Embedding.Dimension <= 0 {
		return &ConfigError{Field: "embedding.dimension", Message: "must be positive"}
	}
	if c.Cache.TtlSeconds <= 0 {
		return &ConfigError{Field: "cache.ttlSeconds", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
