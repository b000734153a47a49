package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "arcane.yml")

	// Write valid config
	validConfig := `version: "1.0"
instance: "tower"
redis:
  addr: "localhost:6380"
archon:
  enabled: true
  provider: "http"
  endpoint: "http://localhost:9000/plan"
  tool: "orchestrate"
latency:
  simple_budget: 0.8
veil:
  mode: "developer"
`
	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	// Load and validate
	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "tower", config.Instance)
	assert.Equal(t, "localhost:6380", config.Redis.Addr)
	assert.Equal(t, "http", config.Archon.Provider)
	assert.Equal(t, "http://localhost:9000/plan", config.Archon.Endpoint)
	assert.Equal(t, 0.8, config.Latency.SimpleBudget)
	assert.Equal(t, "developer", config.Veil.Mode)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "arcane.yml")

	minimalConfig := `version: "1.0"
`
	err := os.WriteFile(configPath, []byte(minimalConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "default", config.Instance)
	assert.Equal(t, "localhost:6379", config.Redis.Addr)
	assert.False(t, config.Archon.Enabled)
	assert.Equal(t, 0.6, config.Latency.SimpleBudget)
	assert.Equal(t, 2.5, config.Latency.CodegenBudget)
	assert.Equal(t, "liquidmetal", config.Latency.Fallback)
	assert.Equal(t, arcana.DaemonLiquidMetal, config.Latency.FallbackDaemon())
	assert.Equal(t, 100, config.Events.HistoryCapacity)
	assert.Equal(t, "fantasy", config.Veil.Mode)
	assert.Equal(t, "simulated", config.Capability.Mode)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/arcane.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "arcane.yml")

	// Write invalid YAML
	invalidYAML := `version: "1.0"
archon:
  - this is invalid
    yaml syntax
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &ArcaneConfig{Version: "2.0"}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_InvalidVeilMode(t *testing.T) {
	config := &ArcaneConfig{
		Version: "1.0",
		Veil:    &VeilConfig{Mode: "wizard"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid veil mode: wizard")
}

func TestValidate_InvalidEventsCapacity(t *testing.T) {
	config := &ArcaneConfig{
		Version: "1.0",
		Events:  &EventsConfig{HistoryCapacity: -5},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "events.history_capacity must be >= 1")
}

func TestArchonValidate_HTTPRequiresEndpoint(t *testing.T) {
	archon := &ArchonConfig{Enabled: true, Provider: "http"}

	err := archon.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires an endpoint")
}

func TestArchonValidate_UnknownProvider(t *testing.T) {
	archon := &ArchonConfig{Enabled: true, Provider: "oracle"}

	err := archon.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid archon provider: oracle")
}

func TestArchonValidate_GeminiDefaults(t *testing.T) {
	archon := &ArchonConfig{Enabled: true}

	err := archon.Validate()
	require.NoError(t, err)
	assert.Equal(t, "gemini", archon.Provider)
	assert.Equal(t, "GEMINI_API_KEY", archon.APIKeyEnv)
	assert.Equal(t, 5, archon.TimeoutSeconds)
}

func TestArchonValidate_DisabledSkipsChecks(t *testing.T) {
	// A disabled archon section never fails validation, even with junk
	archon := &ArchonConfig{Enabled: false, Provider: "oracle"}
	assert.NoError(t, archon.Validate())
}

func TestLatencyValidate_FallbackMustBeAddressable(t *testing.T) {
	latency := &LatencyConfig{Fallback: "none"}

	err := latency.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid latency fallback daemon: none")
}

func TestLatencyValidate_CodegenBelowSimple(t *testing.T) {
	latency := &LatencyConfig{SimpleBudget: 3.0, CodegenBudget: 1.0}

	err := latency.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= latency.simple_budget")
}

func TestCapabilityValidate_HTTPRequiresEndpoint(t *testing.T) {
	capability := &CapabilityConfig{Mode: "http"}

	err := capability.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires an endpoint")
}

func TestCapabilityValidate_UnknownMode(t *testing.T) {
	capability := &CapabilityConfig{Mode: "quantum"}

	err := capability.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid capability mode: quantum")
}
