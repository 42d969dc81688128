package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries environment-level defaults. Command-line flags override
// these; the WEAVEGET_ prefix keeps them out of the way of other tools.
type Config struct {
	Gateway     string        `envconfig:"GATEWAY" default:"https://arweave.net"`
	Concurrency int           `envconfig:"CONCURRENCY" default:"10"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"3m"`
	KATimeout   time.Duration `envconfig:"KEEPALIVE_TIMEOUT" default:"90s"`
	Proxy       string        `envconfig:"PROXY"`
}

func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("weaveget", &cfg); err != nil {
		return nil, fmt.Errorf("error reading environment config: %v", err)
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	return &cfg, nil
}
