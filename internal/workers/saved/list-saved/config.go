// internal/workers/saved/list-saved/config.go
package listsaved

import (
	"time"

	"property-browser/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

func FromWorkerConfig(wcfg config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return cfg
}
