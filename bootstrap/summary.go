package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/logger"
)

// RouteInfo is a registered HTTP route in the startup summary.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary tracks what started during bootstrap and prints one readable
// block at the end instead of scattering it across log lines.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	routes          []RouteInfo
	plugins         []string
}

// NewSummary creates a startup summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records an HTTP route for the summary.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{
		Method:  method,
		Path:    path,
		Handler: FormatHandlerName(handler),
	})
}

// TrackPlugin records a registered authentication plugin.
func (s *Summary) TrackPlugin(name string) {
	s.plugins = append(s.plugins, name)
}

// Display prints the summary: service line, component health, plugins,
// and routes.
func (s *Summary) Display(components *component.Registry, log *logger.Logger) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s ready in %s\n", s.serviceName, s.version, s.startupDuration.Round(time.Millisecond))

	if components != nil {
		for _, h := range components.HealthAll(context.Background()) {
			fmt.Fprintf(&b, "  component %-24s %s\n", h.Name, h.Status)
		}
	}
	if len(s.plugins) > 0 {
		fmt.Fprintf(&b, "  plugins: %s\n", strings.Join(s.plugins, ", "))
	}
	for _, r := range s.routes {
		fmt.Fprintf(&b, "  %-6s %-40s %s\n", r.Method, r.Path, r.Handler)
	}

	log.Info(b.String())
}

// FormatHandlerName reduces Gin's fully-qualified handler path to a short
// readable name, e.g.
// "github.com/x/y/coordinator.(*Coordinator).handleLogin-fm" becomes
// "Coordinator.handleLogin".
func FormatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				name = parts[i]
				break
			}
		}
	}

	if parts := strings.SplitN(name, ".", 2); len(parts) == 2 && parts[0] == strings.ToLower(parts[0]) {
		name = parts[1]
	}
	return name
}
