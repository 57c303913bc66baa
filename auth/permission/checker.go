// Package permission provides the per-plugin capability registry.
//
// Every authentication plugin is granted an explicit set of capabilities at
// registration time. The coordinator consults this registry before wiring
// any plugin-supplied HTTP extension point — a plugin that declares a route
// registration function but lacks the RegisterRoutes capability fails
// registration rather than being silently skipped.
package permission

import (
	"sort"
	"sync"

	"github.com/authweave/idkit/errors"
)

// Capability is a named permission a plugin must hold before the coordinator
// wires the corresponding extension point.
type Capability string

const (
	// RegisterRoutes allows a plugin to mount HTTP routes under its namespace.
	RegisterRoutes Capability = "RegisterRoutes"
	// RegisterStaticAssets allows a plugin to serve static assets.
	RegisterStaticAssets Capability = "RegisterStaticAssets"
	// RegisterWebhooks allows a plugin to receive webhook POSTs.
	RegisterWebhooks Capability = "RegisterWebhooks"
	// RegisterMiddleware allows a plugin to install namespace-scoped middleware.
	RegisterMiddleware Capability = "RegisterMiddleware"
	// ReadAccount allows a plugin to look up accounts.
	ReadAccount Capability = "ReadAccount"
	// CreateAccount allows a plugin to create accounts.
	CreateAccount Capability = "CreateAccount"
)

// Checker is an in-memory registry of plugin → granted capabilities.
// It carries no persistence; grants live for the coordinator's lifetime.
type Checker struct {
	mu     sync.RWMutex
	grants map[string]map[Capability]struct{}
}

// NewChecker creates an empty capability registry.
func NewChecker() *Checker {
	return &Checker{
		grants: make(map[string]map[Capability]struct{}),
	}
}

// Register records the capability set granted to a plugin. Calling Register
// again for the same plugin replaces the previous grant.
func (c *Checker) Register(pluginName string, capabilities []Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := make(map[Capability]struct{}, len(capabilities))
	for _, cap := range capabilities {
		set[cap] = struct{}{}
	}
	c.grants[pluginName] = set
}

// Has reports whether the plugin holds the capability.
func (c *Checker) Has(pluginName string, capability Capability) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.grants[pluginName]
	if !ok {
		return false
	}
	_, ok = set[capability]
	return ok
}

// Require returns a PermissionDenied error if the plugin does not hold the
// capability. Unregistered plugins hold nothing.
func (c *Checker) Require(pluginName string, capability Capability) error {
	if !c.Has(pluginName, capability) {
		return errors.PermissionDenied(pluginName, string(capability))
	}
	return nil
}

// HasAll reports whether the plugin holds every listed capability.
func (c *Checker) HasAll(pluginName string, capabilities ...Capability) bool {
	for _, cap := range capabilities {
		if !c.Has(pluginName, cap) {
			return false
		}
	}
	return true
}

// HasAny reports whether the plugin holds at least one listed capability.
func (c *Checker) HasAny(pluginName string, capabilities ...Capability) bool {
	for _, cap := range capabilities {
		if c.Has(pluginName, cap) {
			return true
		}
	}
	return false
}

// Revoke removes every grant for the plugin.
func (c *Checker) Revoke(pluginName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, pluginName)
}

// List returns the granted capabilities per registered plugin, sorted for
// deterministic output.
func (c *Checker) List() map[string][]Capability {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]Capability, len(c.grants))
	for name, set := range c.grants {
		caps := make([]Capability, 0, len(set))
		for cap := range set {
			caps = append(caps, cap)
		}
		sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
		out[name] = caps
	}
	return out
}
