package database

import (
	"context"
	"fmt"

	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/util"
)

// Component wraps DB and implements component.Component for lifecycle
// management.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	name   string
	models []interface{}
}

// NewComponent creates a database component for use with the component
// registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{
		cfg:  cfg,
		log:  log.WithComponent("database"),
		name: "database",
	}
}

// WithName overrides the registry name. Needed when one process runs
// more than one database connection.
func (c *Component) WithName(name string) *Component {
	if name != "" {
		c.name = name
	}
	return c
}

// WithAutoMigrate registers models for auto-migration on Start.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// Start connects to the database and runs auto-migration.
func (c *Component) Start(ctx context.Context) error {
	c.log.Info("connecting to database", map[string]interface{}{
		"driver": string(c.cfg.Driver),
		"dsn":    util.MaskSecret(c.cfg.DSN, 16),
	})

	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if len(c.models) > 0 {
		if err := c.db.AutoMigrate(c.models...); err != nil {
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop gracefully closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health returns the current health status of the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}
