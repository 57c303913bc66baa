package config

import (
	"fmt"

	"github.com/authweave/idkit/coordinator"
	"github.com/authweave/idkit/database"
	oauthplugin "github.com/authweave/idkit/plugins/oauth"
	passwordplugin "github.com/authweave/idkit/plugins/password"
	"github.com/authweave/idkit/redis"
	"github.com/authweave/idkit/server"
	"github.com/authweave/idkit/statestore"
)

// Persistence backend selectors.
const (
	PersistenceSQL   = "sql"
	PersistenceRedis = "redis"
)

// Account backend selectors.
const (
	AccountsMemory = "memory"
	AccountsSQL    = "sql"
)

// PersistenceConfig selects and configures the OIDC record store.
type PersistenceConfig struct {
	// Backend is "sql" (embedded sqlite or networked postgres via the
	// database config) or "redis".
	Backend  string          `yaml:"backend" mapstructure:"backend"`
	Database database.Config `yaml:"database" mapstructure:"database"`
	Redis    redis.Config    `yaml:"redis" mapstructure:"redis"`
}

// ApplyDefaults fills zero-valued fields.
func (c *PersistenceConfig) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = PersistenceSQL
	}
	switch c.Backend {
	case PersistenceSQL:
		c.Database.ApplyDefaults()
	case PersistenceRedis:
		c.Redis.ApplyDefaults()
	}
}

// Validate checks the selected backend's settings.
func (c *PersistenceConfig) Validate() error {
	switch c.Backend {
	case PersistenceSQL:
		return c.Database.Validate()
	case PersistenceRedis:
		return c.Redis.Validate()
	default:
		return fmt.Errorf("persistence.backend must be %q or %q (got: %s)",
			PersistenceSQL, PersistenceRedis, c.Backend)
	}
}

// AccountsConfig selects and configures the account repository.
type AccountsConfig struct {
	// Backend is "memory" or "sql" (sqlite or postgres via the database
	// config).
	Backend  string          `yaml:"backend" mapstructure:"backend"`
	Database database.Config `yaml:"database" mapstructure:"database"`
}

// ApplyDefaults fills zero-valued fields.
func (c *AccountsConfig) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = AccountsMemory
	}
	if c.Backend == AccountsSQL {
		c.Database.ApplyDefaults()
	}
}

// Validate checks the selected backend's settings.
func (c *AccountsConfig) Validate() error {
	switch c.Backend {
	case AccountsMemory:
		return nil
	case AccountsSQL:
		return c.Database.Validate()
	default:
		return fmt.Errorf("accounts.backend must be %q or %q (got: %s)",
			AccountsMemory, AccountsSQL, c.Backend)
	}
}

// PluginsConfig configures the bundled authentication methods.
type PluginsConfig struct {
	Password passwordplugin.Config `yaml:"password" mapstructure:"password"`

	// OAuth lists upstream providers, one plugin instance each.
	OAuth []oauthplugin.Config `yaml:"oauth" mapstructure:"oauth"`
}

// Config is the identity provider's root configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server      server.Config      `yaml:"server" mapstructure:"server"`
	Coordinator coordinator.Config `yaml:"coordinator" mapstructure:"coordinator"`
	StateStore  statestore.Config  `yaml:"statestore" mapstructure:"statestore"`
	Persistence PersistenceConfig  `yaml:"persistence" mapstructure:"persistence"`
	Accounts    AccountsConfig     `yaml:"accounts" mapstructure:"accounts"`
	Plugins     PluginsConfig      `yaml:"plugins" mapstructure:"plugins"`
}

// ApplyDefaults fills zero-valued fields across every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Coordinator.ApplyDefaults()
	c.StateStore.ApplyDefaults()
	c.Persistence.ApplyDefaults()
	c.Accounts.ApplyDefaults()
	c.Plugins.Password.ApplyDefaults()
	for i := range c.Plugins.OAuth {
		c.Plugins.OAuth[i].ApplyDefaults()
	}
}

// Validate checks every section; the first failure wins.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.StateStore.Validate(); err != nil {
		return fmt.Errorf("statestore: %w", err)
	}
	if err := c.Persistence.Validate(); err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	if err := c.Accounts.Validate(); err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	return nil
}
