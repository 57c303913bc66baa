package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/engine"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/plugin"
	"github.com/authweave/idkit/statestore"
)

// CompletionPath is the fixed path that resolves a stored auth outcome
// and finishes the interaction.
const CompletionPath = "/auth/complete"

// Config holds coordinator tuning.
type Config struct {
	// StateTTL bounds a handshake's lifetime (default 10m).
	StateTTL time.Duration `mapstructure:"state_ttl"`

	// OutcomeTTL bounds the window between a plugin callback and the
	// completion redirect (default 1m).
	OutcomeTTL time.Duration `mapstructure:"outcome_ttl"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.OutcomeTTL <= 0 {
		c.OutcomeTTL = time.Minute
	}
}

// Descriptor is the registration record of a plugin.
type Descriptor struct {
	Name         string
	DisplayName  string
	Priority     int
	Capabilities []permission.Capability
}

// Coordinator wires plugins into the HTTP surface and drives the
// protocol engine.
type Coordinator struct {
	engine   engine.Engine
	checker  *permission.Checker
	state    *statestore.Store
	accounts account.Repository
	router   *gin.Engine
	log      *logger.Logger
	cfg      Config

	mu      sync.RWMutex
	plugins map[string]plugin.Plugin
}

// New creates a coordinator over its collaborators. Mount must be called
// once to install the interaction routes; plugin namespaces are mounted
// as plugins register.
func New(eng engine.Engine, checker *permission.Checker, state *statestore.Store,
	accounts account.Repository, router *gin.Engine, log *logger.Logger, cfg Config) *Coordinator {
	cfg.ApplyDefaults()
	return &Coordinator{
		engine:   eng,
		checker:  checker,
		state:    state,
		accounts: accounts,
		router:   router,
		log:      log.WithComponent("coordinator"),
		cfg:      cfg,
		plugins:  make(map[string]plugin.Plugin),
	}
}

// Register wires a plugin under the granted capabilities. The sequence is
// fixed: capabilities are recorded, then routes, static assets, webhooks,
// and middleware are each gated and wired. Gating is fail-closed: a
// plugin implementing an extension point without the matching capability
// fails registration before anything is mounted.
func (c *Coordinator) Register(p plugin.Plugin, capabilities []permission.Capability) error {
	name := p.Name()
	if name == "" {
		return errors.InvalidConfiguration("coordinator", "plugin name must not be empty")
	}

	c.mu.Lock()
	if _, exists := c.plugins[name]; exists {
		c.mu.Unlock()
		return errors.InvalidConfiguration("coordinator", fmt.Sprintf("plugin %q already registered", name))
	}
	c.plugins[name] = p
	c.mu.Unlock()

	c.checker.Register(name, capabilities)

	if err := c.gateExtensions(p); err != nil {
		c.mu.Lock()
		delete(c.plugins, name)
		c.mu.Unlock()
		c.checker.Revoke(name)
		return err
	}

	c.wireExtensions(p)

	c.log.Info("Plugin registered", map[string]interface{}{
		"plugin":       name,
		"priority":     p.Priority(),
		"capabilities": len(capabilities),
	})
	return nil
}

// gateExtensions checks every implemented extension point against the
// granted capabilities, in registration order, before anything mounts.
func (c *Coordinator) gateExtensions(p plugin.Plugin) error {
	name := p.Name()
	if _, ok := p.(plugin.RouteRegistrar); ok {
		if err := c.checker.Require(name, permission.RegisterRoutes); err != nil {
			return err
		}
	}
	if _, ok := p.(plugin.AssetRegistrar); ok {
		if err := c.checker.Require(name, permission.RegisterStaticAssets); err != nil {
			return err
		}
	}
	if _, ok := p.(plugin.WebhookRegistrar); ok {
		if err := c.checker.Require(name, permission.RegisterWebhooks); err != nil {
			return err
		}
	}
	if _, ok := p.(plugin.MiddlewareRegistrar); ok {
		if err := c.checker.Require(name, permission.RegisterMiddleware); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the plugin registered under name, or nil.
func (c *Coordinator) Lookup(name string) plugin.Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plugins[name]
}

// Descriptors returns the registered plugins sorted by priority, then
// name.
func (c *Coordinator) Descriptors() []Descriptor {
	c.mu.RLock()
	out := make([]Descriptor, 0, len(c.plugins))
	for name, p := range c.plugins {
		caps := c.checker.List()[name]
		out = append(out, Descriptor{
			Name:         name,
			DisplayName:  p.DisplayName(),
			Priority:     p.Priority(),
			Capabilities: caps,
		})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Authenticate dispatches a login attempt to the named plugin. A missing
// plugin fails with ProviderNotFound, a declining one with
// ProviderDisabled. Any fault the plugin raises is contained here and
// comes back as a structured error, never a panic.
func (c *Coordinator) Authenticate(ctx context.Context, method string, authCtx *plugin.Context) (result *plugin.Result, err error) {
	p := c.Lookup(method)
	if p == nil {
		return nil, errors.ProviderNotFound(method)
	}
	if !p.CanHandle(authCtx) {
		return nil, errors.ProviderDisabled(method)
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Plugin panicked during authentication", map[string]interface{}{
				"plugin": method,
				"panic":  fmt.Sprint(r),
			})
			result = nil
			err = errors.Internal(fmt.Errorf("plugin %s: %v", method, r))
		}
	}()

	result, err = p.Authenticate(ctx, authCtx)
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.Internal(err)
	}
	if result == nil || (result.Account == nil && result.RedirectURL == "") {
		return nil, errors.Internal(fmt.Errorf("plugin %s returned an empty result", method))
	}
	return result, nil
}

// FindAccount answers the protocol engine's subject lookups.
func (c *Coordinator) FindAccount(ctx context.Context, accountID string) (*account.Account, error) {
	a, err := c.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.UserNotFound(accountID)
	}
	if a.Disabled {
		return nil, errors.AccountDisabled(accountID)
	}
	return a, nil
}

var (
	_ engine.AccountFinder = (*Coordinator)(nil)
	_ component.Component  = (*Coordinator)(nil)
)

// Name returns the component name.
func (c *Coordinator) Name() string { return "coordinator" }

// Start is a no-op; plugins register explicitly.
func (c *Coordinator) Start(_ context.Context) error { return nil }

// Stop drops every plugin registration and its capabilities.
func (c *Coordinator) Stop(_ context.Context) error {
	c.mu.Lock()
	names := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		names = append(names, name)
	}
	c.plugins = make(map[string]plugin.Plugin)
	c.mu.Unlock()

	for _, name := range names {
		c.checker.Revoke(name)
	}
	return nil
}

// Health reports the number of registered plugins.
func (c *Coordinator) Health(_ context.Context) component.Health {
	c.mu.RLock()
	n := len(c.plugins)
	c.mu.RUnlock()
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d plugins registered", n),
	}
}
