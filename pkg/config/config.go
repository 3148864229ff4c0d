// Package config loads the research agent's YAML configuration:
// provider selection for the LLM and embedding clients, document/vector
// store backends, agent tuning (iteration/reflection/consolidation
// cadence), logging, and observability. Values support ${VAR} and
// ${VAR:-default} environment-variable expansion, resolved at load
// time before YAML is unmarshaled into typed fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig is the control loop's tuning surface — the external
// "configuration options record" the research run is built from.
type AgentConfig struct {
	MaxIterations              int  `yaml:"max_iterations"`
	ReflectionInterval         int  `yaml:"reflection_interval"`
	MaxContextTokens           int  `yaml:"max_context_tokens"`
	EnableAutoReflection       bool `yaml:"enable_auto_reflection"`
	AutoConsolidate            bool `yaml:"auto_consolidate"`
	AutoReflect                bool `yaml:"auto_reflect"`
	ConsolidationThresholdDays int  `yaml:"consolidation_threshold_days"`
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 50
	}
	if c.ReflectionInterval <= 0 {
		c.ReflectionInterval = 5
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = 4000
	}
	if c.ConsolidationThresholdDays <= 0 {
		c.ConsolidationThresholdDays = 30
	}
}

func (c *AgentConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("config: agent.max_iterations must be positive")
	}
	if c.ReflectionInterval <= 0 {
		return fmt.Errorf("config: agent.reflection_interval must be positive")
	}
	return nil
}

// LLMConfig selects and configures the completion client.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "anthropic" or "mock"
	APIKey      string  `yaml:"api_key"`
	Host        string  `yaml:"host,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	TimeoutSec  int     `yaml:"timeout_seconds,omitempty"`
	MaxRetries  int     `yaml:"max_retries,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.APIKey == "" {
			return fmt.Errorf("config: llm.api_key is required for provider %q", c.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("config: unsupported llm.provider %q", c.Provider)
	}
	return nil
}

func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// EmbedderConfig selects and configures the embedding client.
type EmbedderConfig struct {
	Provider   string `yaml:"provider"` // "openai" or "mock"
	APIKey     string `yaml:"api_key"`
	Host       string `yaml:"host,omitempty"`
	Model      string `yaml:"model,omitempty"`
	Dimension  int    `yaml:"dimension,omitempty"`
	BatchSize  int    `yaml:"batch_size,omitempty"`
	TimeoutSec int    `yaml:"timeout_seconds,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Dimension <= 0 {
		c.Dimension = 32
	}
}

func (c *EmbedderConfig) Validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("config: embedder.api_key is required for provider %q", c.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("config: unsupported embedder.provider %q", c.Provider)
	}
	return nil
}

func (c EmbedderConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// DocumentStoreConfig selects the document store backend.
type DocumentStoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path,omitempty"`
}

func (c *DocumentStoreConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Driver == "sqlite" && c.Path == "" {
		c.Path = "./research-agent.db"
	}
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Driver    string `yaml:"driver"` // "qdrant" or "memory"
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	EnableTLS bool   `yaml:"enable_tls,omitempty"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "qdrant"
	}
}

// StoreConfig groups the two persistence backends.
type StoreConfig struct {
	Document DocumentStoreConfig `yaml:"document"`
	Vector   VectorStoreConfig  `yaml:"vector"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"` // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

// ObservabilityConfig configures tracing/metrics export.
type ObservabilityConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name,omitempty"`
	EndpointURL string `yaml:"endpoint_url,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "research-agent"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
}

// Config is the research agent's top-level configuration document.
type Config struct {
	Agent         AgentConfig         `yaml:"agent"`
	LLM           LLMConfig           `yaml:"llm"`
	Embedder      EmbedderConfig      `yaml:"embedder"`
	Store         StoreConfig         `yaml:"store"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SetDefaults fills every section's zero-valued fields.
func (c *Config) SetDefaults() {
	c.Agent.SetDefaults()
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Store.Document.SetDefaults()
	c.Store.Vector.SetDefaults()
	c.Logging.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate reports the first invalid section found.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedder.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads a YAML configuration document from path, expands
// environment variable references, applies defaults, and validates the
// result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}
