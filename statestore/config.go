package statestore

import (
	"fmt"
	"time"
)

// Config configures the ephemeral state store.
type Config struct {
	// MaxSize is the entry capacity; insertion beyond it evicts the
	// oldest-inserted live entry (default: 1000).
	MaxSize int `yaml:"max_size" mapstructure:"max_size"`

	// DefaultTTL is the TTL applied by callers that do not choose their own
	// (default: 10m).
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`

	// SweepInterval is how often the background sweep runs (default: 1m).
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxSize == 0 {
		c.MaxSize = 1000
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 10 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxSize < 1 {
		return fmt.Errorf("statestore.max_size must be >= 1 (got: %d)", c.MaxSize)
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("statestore.default_ttl must be non-negative (got: %s)", c.DefaultTTL)
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("statestore.sweep_interval must be >= 1s (got: %s)", c.SweepInterval)
	}
	return nil
}
