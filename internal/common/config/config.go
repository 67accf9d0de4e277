// internal/common/config/config.go
package config

import "fmt"

// Backend names accepted in the backends section.
const (
	BackendRemote   = "remote"
	BackendMock     = "mock"
	BackendPostgres = "postgres"
	BackendLocal    = "local"

	SearchIndexElasticsearch = "elasticsearch"
	CacheRedis               = "redis"

	LocalKVFile   = "file"
	LocalKVRedis  = "redis"
	LocalKVMemory = "memory"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Backends     BackendsConfig          `mapstructure:"backends"`
	Remote       RemoteConfig            `mapstructure:"remote"`
	Local        LocalConfig             `mapstructure:"local"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Search       SearchConfig            `mapstructure:"search"`
	Orchestrator OrchestratorConfig      `mapstructure:"orchestrator"`
	Reconcile    ReconcileConfig         `mapstructure:"reconcile"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Server       ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetAddresses returns the configured addresses, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BackendsConfig selects the store variants composed at startup.
type BackendsConfig struct {
	Properties      string `mapstructure:"properties"`       // remote | mock | postgres
	SavedProperties string `mapstructure:"saved_properties"` // remote | local | postgres
	SearchIndex     string `mapstructure:"search_index"`     // "" | elasticsearch
	Cache           string `mapstructure:"cache"`            // "" | redis
	LocalKV         string `mapstructure:"local_kv"`         // file | redis | memory
}

// RemoteConfig points at the hosted record API.
type RemoteConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	ProjectID string `mapstructure:"project_id"`
	PublicKey string `mapstructure:"public_key"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// LocalConfig configures the local saved-property store.
type LocalConfig struct {
	Dir        string `mapstructure:"dir"`
	StorageKey string `mapstructure:"storage_key"`
	Seed       bool   `mapstructure:"seed"`
}

type CacheConfig struct {
	TTL    int    `mapstructure:"ttl"` // seconds
	Prefix string `mapstructure:"prefix"`
}

type SearchConfig struct {
	Index string `mapstructure:"index"`
}

type OrchestratorConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
	QueryTimeoutMs int `mapstructure:"query_timeout_ms"`
}

type ReconcileConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ServerConfig holds the health/metrics listener settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// UsesPostgres reports whether any selected backend needs PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Backends.Properties == BackendPostgres || c.Backends.SavedProperties == BackendPostgres
}

// UsesRedis reports whether the cache or the local key-value store needs Redis.
func (c *Config) UsesRedis() bool {
	if c.Backends.Cache == CacheRedis {
		return true
	}
	return c.Backends.SavedProperties == BackendLocal && c.Backends.LocalKV == LocalKVRedis
}

// UsesElasticsearch reports whether searches go through the Elasticsearch index.
func (c *Config) UsesElasticsearch() bool {
	return c.Backends.SearchIndex == SearchIndexElasticsearch
}

// UsesRemote reports whether any selected backend talks to the hosted record API.
func (c *Config) UsesRemote() bool {
	return c.Backends.Properties == BackendRemote || c.Backends.SavedProperties == BackendRemote
}
