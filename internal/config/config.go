package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// ArcaneConfig represents the top-level arcane.yml configuration
type ArcaneConfig struct {
	Version    string            `yaml:"version"`
	Instance   string            `yaml:"instance,omitempty"` // Namespace for Redis keys (default: "default")
	Redis      *RedisConfig      `yaml:"redis,omitempty"`
	Archon     *ArchonConfig     `yaml:"archon,omitempty"`
	Latency    *LatencyConfig    `yaml:"latency,omitempty"`
	Events     *EventsConfig     `yaml:"events,omitempty"`
	Veil       *VeilConfig       `yaml:"veil,omitempty"`
	Capability *CapabilityConfig `yaml:"capability,omitempty"`
}

// RedisConfig specifies the connection to the grimoire backing store
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"` // Default: localhost:6379
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// ArchonConfig specifies the external planner behind the routing core
type ArchonConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Provider       string `yaml:"provider,omitempty"`        // "http" or "gemini"
	Endpoint       string `yaml:"endpoint,omitempty"`        // Required for provider: http
	Tool           string `yaml:"tool,omitempty"`            // HTTP planner tool name
	Model          string `yaml:"model,omitempty"`           // Planning model identifier
	APIKeyEnv      string `yaml:"api_key_env,omitempty"`     // Env var holding the Gemini API key (default: GEMINI_API_KEY)
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // Per-attempt planner timeout (default: 5)
	SystemPrompt   string `yaml:"system_prompt,omitempty"`
	Narration      string `yaml:"narration,omitempty"` // Base fantasy narration for planner decisions
}

// LatencyConfig specifies planner response-time budgets in seconds
type LatencyConfig struct {
	SimpleBudget  float64 `yaml:"simple_budget,omitempty"`  // Default: 0.6
	CodegenBudget float64 `yaml:"codegen_budget,omitempty"` // Default: 2.5
	Fallback      string  `yaml:"fallback,omitempty"`       // Default: liquidmetal
}

// EventsConfig specifies event bus sizing
type EventsConfig struct {
	HistoryCapacity int `yaml:"history_capacity,omitempty"` // Default: 100
}

// VeilConfig specifies the initial narration mode
type VeilConfig struct {
	Mode string `yaml:"mode,omitempty"` // "fantasy" or "developer" (default: fantasy)
}

// CapabilityConfig specifies how daemon invocations are executed
type CapabilityConfig struct {
	Mode         string  `yaml:"mode,omitempty"`          // "simulated" or "http" (default: simulated)
	Endpoint     string  `yaml:"endpoint,omitempty"`      // Required for mode: http
	DelaySeconds float64 `yaml:"delay_seconds,omitempty"` // Simulated invocation delay
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted sections
func (c *ArcaneConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = "default"
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if c.Archon == nil {
		c.Archon = &ArchonConfig{}
	}
	if err := c.Archon.Validate(); err != nil {
		return err
	}

	if c.Latency == nil {
		c.Latency = &LatencyConfig{}
	}
	if err := c.Latency.Validate(); err != nil {
		return err
	}

	if c.Events == nil {
		c.Events = &EventsConfig{}
	}
	if c.Events.HistoryCapacity == 0 {
		c.Events.HistoryCapacity = 100
	}
	if c.Events.HistoryCapacity < 1 {
		return fmt.Errorf("events.history_capacity must be >= 1, got %d", c.Events.HistoryCapacity)
	}

	if c.Veil == nil {
		c.Veil = &VeilConfig{}
	}
	if c.Veil.Mode == "" {
		c.Veil.Mode = "fantasy"
	}
	if c.Veil.Mode != "fantasy" && c.Veil.Mode != "developer" {
		return fmt.Errorf("invalid veil mode: %s (must be 'fantasy' or 'developer')", c.Veil.Mode)
	}

	if c.Capability == nil {
		c.Capability = &CapabilityConfig{}
	}
	if err := c.Capability.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate performs validation on the archon planner configuration
func (a *ArchonConfig) Validate() error {
	if !a.Enabled {
		return nil
	}

	if a.Provider == "" {
		a.Provider = "gemini"
	}
	if a.Provider != "http" && a.Provider != "gemini" {
		return fmt.Errorf("invalid archon provider: %s (must be 'http' or 'gemini')", a.Provider)
	}

	if a.Provider == "http" && a.Endpoint == "" {
		return fmt.Errorf("archon provider 'http' requires an endpoint")
	}

	if a.Provider == "gemini" && a.APIKeyEnv == "" {
		a.APIKeyEnv = "GEMINI_API_KEY"
	}

	if a.TimeoutSeconds == 0 {
		a.TimeoutSeconds = 5
	}
	if a.TimeoutSeconds < 1 {
		return fmt.Errorf("archon.timeout_seconds must be >= 1, got %d", a.TimeoutSeconds)
	}

	return nil
}

// Validate performs validation on the latency budget configuration
func (l *LatencyConfig) Validate() error {
	if l.SimpleBudget == 0 {
		l.SimpleBudget = 0.6
	}
	if l.CodegenBudget == 0 {
		l.CodegenBudget = 2.5
	}
	if l.SimpleBudget < 0 || l.CodegenBudget < 0 {
		return fmt.Errorf("latency budgets must be positive")
	}
	if l.CodegenBudget < l.SimpleBudget {
		return fmt.Errorf("latency.codegen_budget (%g) must be >= latency.simple_budget (%g)", l.CodegenBudget, l.SimpleBudget)
	}

	if l.Fallback == "" {
		l.Fallback = string(arcana.DaemonLiquidMetal)
	}
	fallback := arcana.ParseDaemonID(l.Fallback)
	if !fallback.Addressable() {
		return fmt.Errorf("invalid latency fallback daemon: %s (must be 'claude', 'gemini', or 'liquidmetal')", l.Fallback)
	}

	return nil
}

// Validate performs validation on the capability configuration
func (c *CapabilityConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = "simulated"
	}
	if c.Mode != "simulated" && c.Mode != "http" {
		return fmt.Errorf("invalid capability mode: %s (must be 'simulated' or 'http')", c.Mode)
	}
	if c.Mode == "http" && c.Endpoint == "" {
		return fmt.Errorf("capability mode 'http' requires an endpoint")
	}
	if c.DelaySeconds < 0 {
		return fmt.Errorf("capability.delay_seconds must be >= 0, got %g", c.DelaySeconds)
	}
	return nil
}

// FallbackDaemon returns the parsed fallback daemon. Validate must have
// succeeded first.
func (l *LatencyConfig) FallbackDaemon() arcana.DaemonID {
	return arcana.ParseDaemonID(l.Fallback)
}

// Load reads and validates arcane.yml from the specified path
func Load(path string) (*ArcaneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config ArcaneConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
