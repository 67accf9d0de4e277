// internal/workers/property/search-properties/config.go
package searchproperties

import (
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/sorting"
)

type Config struct {
	Timeout     time.Duration
	DefaultSort sorting.Key
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		DefaultSort: sorting.Default,
	}
}

// FromWorkerConfig applies the workers.<task type> section over the defaults.
func FromWorkerConfig(wcfg config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return cfg
}
