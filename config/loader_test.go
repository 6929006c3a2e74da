package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "researchflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoader_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().WithEnvLookup(envMap(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithEnvLookup(envMap(nil)).
		Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Research.TopTotal)
}

func TestLoader_YAML(t *testing.T) {
	path := writeConfig(t, `
research:
  top_total: 8
  retry_delay: 2s
llm:
  azure_api_version: "2024-06-01"
  smart_model: gpt-4o-deploy
database:
  driver: sqlite
  name: /tmp/research.db
tenants:
  - id: acme
    name: Acme
    search_service: acme-search
    search_index: handbook
`)
	cfg, err := NewLoader().WithConfigPath(path).WithEnvLookup(envMap(nil)).Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Research.TopTotal)
	assert.Equal(t, 2*time.Second, cfg.Research.RetryDelay)
	assert.Equal(t, 10, cfg.Research.BatchSize, "unset keys keep defaults")
	assert.Equal(t, "2024-06-01", cfg.LLM.AzureAPIVersion)
	assert.Equal(t, "gpt-4o-deploy", cfg.LLM.SmartModel)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.FastModel)
	assert.Equal(t, "/tmp/research.db", cfg.Database.DSN())
	require.Len(t, cfg.Tenants, 1)
	assert.Equal(t, "handbook", cfg.Tenants[0].SearchIndex)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "research: [unclosed")
	_, err := NewLoader().WithConfigPath(path).WithEnvLookup(envMap(nil)).Load()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "research:\n  top_total: 8\n")
	cfg, err := NewLoader().
		WithConfigPath(path).
		WithEnvLookup(envMap(map[string]string{
			"RESEARCHFLOW_RESEARCH_TOP_TOTAL":      "3",
			"RESEARCHFLOW_RESEARCH_LLM_TIMEOUT":    "1m",
			"RESEARCHFLOW_LLM_API_KEY":             "sk-test",
			"RESEARCHFLOW_SEARCH_RATE_LIMIT":       "2.5",
			"RESEARCHFLOW_REDIS_ENABLED":           "true",
			"RESEARCHFLOW_LOG_OUTPUT_PATHS":        "stdout, /var/log/rf.log",
			"RESEARCHFLOW_TELEMETRY_SAMPLE_RATE":   "1",
			"RESEARCHFLOW_DATABASE_MAX_OPEN_CONNS": "",
		})).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Research.TopTotal)
	assert.Equal(t, time.Minute, cfg.Research.LLMTimeout)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.InDelta(t, 2.5, cfg.Search.RateLimit, 1e-9)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/rf.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns, "empty values are ignored")
}

func TestLoader_ProcessEnvironment(t *testing.T) {
	t.Setenv("RF_TEST_SERVER_HTTP_PORT", "9000")
	cfg, err := NewLoader().WithEnvPrefix("RF_TEST").Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
}

func TestLoader_BadEnvValue(t *testing.T) {
	_, err := NewLoader().
		WithEnvLookup(envMap(map[string]string{"RESEARCHFLOW_RESEARCH_WAVE_SIZE": "many"})).
		Load()
	assert.ErrorContains(t, err, "RESEARCHFLOW_RESEARCH_WAVE_SIZE")
}

func TestLoader_Validators(t *testing.T) {
	_, err := NewLoader().
		WithEnvLookup(envMap(map[string]string{"RESEARCHFLOW_LOG_LEVEL": "loud"})).
		WithValidator((*Config).Validate).
		Load()
	assert.ErrorContains(t, err, "config validation failed")

	sentinel := errors.New("no tenants")
	_, err = NewLoader().
		WithEnvLookup(envMap(nil)).
		WithValidator(func(c *Config) error {
			if len(c.Tenants) == 0 {
				return sentinel
			}
			return nil
		}).
		Load()
	assert.ErrorIs(t, err, sentinel)
}
