// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
`

// ==========================
// Loading
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "property-browser", cfg.App.Name)
	assert.Equal(t, BackendMock, cfg.Backends.Properties)
	assert.Equal(t, BackendLocal, cfg.Backends.SavedProperties)
	assert.Equal(t, LocalKVFile, cfg.Backends.LocalKV)
	assert.Equal(t, "realestate_saved_properties", cfg.Local.StorageKey)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRetries)
	assert.Equal(t, 8, cfg.Reconcile.MaxConcurrency)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "properties", cfg.Search.Index)
	assert.Equal(t, 300, cfg.Cache.TTL)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
workers:
  search-properties:
    enabled: true
`))
	require.NoError(t, err)

	w := cfg.Workers["search-properties"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_REMOTE_URL", "https://records.example.com")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
backends:
  properties: remote
  saved_properties: remote
remote:
  base_url: ${TEST_REMOTE_URL}
  project_id: proj-1
`))
	require.NoError(t, err)
	assert.Equal(t, "https://records.example.com", cfg.Remote.BaseURL)
}

func TestLoadFromFile_EnvOverridesKnownKeys(t *testing.T) {
	t.Setenv("BACKENDS_SAVED_PROPERTIES", "local")
	t.Setenv("BACKENDS_LOCAL_KV", "memory")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
backends:
  properties: mock
  saved_properties: remote
  local_kv: file
`))
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backends.SavedProperties)
	assert.Equal(t, LocalKVMemory, cfg.Backends.LocalKV)
}

// ==========================
// Validation
// ==========================

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		errContains string
	}{
		{
			name:        "missing broker",
			body:        "app:\n  name: x\n",
			errContains: "camunda.broker_address",
		},
		{
			name:        "unknown property backend",
			body:        minimalConfig + "backends:\n  properties: sqlite\n",
			errContains: "backends.properties",
		},
		{
			name:        "postgres without host",
			body:        minimalConfig + "backends:\n  properties: postgres\n",
			errContains: "database.postgres.host",
		},
		{
			name:        "remote without base url",
			body:        minimalConfig + "backends:\n  saved_properties: remote\n",
			errContains: "remote.base_url",
		},
		{
			name:        "elasticsearch without address",
			body:        minimalConfig + "backends:\n  search_index: elasticsearch\n",
			errContains: "database.elasticsearch",
		},
		{
			name:        "redis cache without address",
			body:        minimalConfig + "backends:\n  cache: redis\n",
			errContains: "database.redis.address",
		},
		{
			name:        "unknown local kv",
			body:        minimalConfig + "backends:\n  local_kv: bolt\n",
			errContains: "backends.local_kv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// ==========================
// Helpers
// ==========================

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"get-property": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "get-property").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "get-property"))

	def := GetWorkerConfig(cfg, "list-saved")
	assert.True(t, def.Enabled)
	assert.Equal(t, 5, def.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "list-saved"))
}

func TestConfig_BackendPredicates(t *testing.T) {
	cfg := &Config{Backends: BackendsConfig{
		Properties:      BackendPostgres,
		SavedProperties: BackendLocal,
		LocalKV:         LocalKVRedis,
		SearchIndex:     SearchIndexElasticsearch,
	}}

	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.UsesRedis())
	assert.True(t, cfg.UsesElasticsearch())
	assert.False(t, cfg.UsesRemote())
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "homes", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=homes sslmode=disable", p.GetDSN())
}
