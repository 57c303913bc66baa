package bootstrap

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/config"
	"github.com/authweave/idkit/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	health   component.HealthStatus
	started  bool
	stopped  bool
	stopSeq  *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	if m.stopSeq != nil {
		*m.stopSeq = append(*m.stopSeq, m.name)
	}
	return nil
}

func (m *mockComponent) Health(ctx context.Context) component.Health {
	status := m.health
	if status == "" {
		status = component.StatusHealthy
	}
	return component.Health{Name: m.name, Status: status}
}

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{}
	cfg.Name = "test-app"
	app, err := NewApp(cfg, WithLogger(logger.NewDefault("test")), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestNewAppValidatesConfig(t *testing.T) {
	cfg := &testConfig{}
	cfg.Environment = "nonsense"
	if _, err := NewApp(cfg); err == nil {
		t.Fatal("expected validation error for bad environment")
	}
}

func TestStartupStartsComponentsAndRunsHooks(t *testing.T) {
	app := newTestApp(t)

	c1 := &mockComponent{name: "first"}
	c2 := &mockComponent{name: "second"}
	if err := app.RegisterComponent(c1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := app.RegisterComponent(c2); err != nil {
		t.Fatalf("register: %v", err)
	}

	var order []string
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start-hook")
		return nil
	})
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		order = append(order, "configure")
		return nil
	})
	app.OnReady(func(ctx context.Context) error {
		order = append(order, "ready-hook")
		return nil
	})

	if err := app.startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if !c1.started || !c2.started {
		t.Fatal("components were not started")
	}
	want := []string{"start-hook", "configure", "ready-hook"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("hook order = %v, want %v", order, want)
	}
}

func TestStartupFailsWhenComponentFails(t *testing.T) {
	app := newTestApp(t)
	bad := &mockComponent{name: "bad", startErr: fmt.Errorf("boom")}
	if err := app.RegisterComponent(bad); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := app.startup(context.Background()); err == nil {
		t.Fatal("expected startup failure")
	}
}

func TestShutdownStopsComponentsInReverseOrder(t *testing.T) {
	app := newTestApp(t)

	var seq []string
	c1 := &mockComponent{name: "first", stopSeq: &seq}
	c2 := &mockComponent{name: "second", stopSeq: &seq}
	app.RegisterComponent(c1)
	app.RegisterComponent(c2)

	var stopHook bool
	app.OnStop(func(ctx context.Context) error {
		stopHook = true
		return nil
	})

	if err := app.startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !stopHook {
		t.Fatal("OnStop hook did not run")
	}
	if fmt.Sprint(seq) != fmt.Sprint([]string{"second", "first"}) {
		t.Fatalf("stop order = %v", seq)
	}
}

func TestReadyCheckReportsUnhealthy(t *testing.T) {
	app := newTestApp(t)
	app.RegisterComponent(&mockComponent{name: "sick", health: component.StatusUnhealthy})
	if err := app.ReadyCheck(context.Background()); err == nil {
		t.Fatal("expected ready check failure")
	}
}

func TestSummaryTracksRoutesAndPlugins(t *testing.T) {
	s := NewSummary("idp", "1.0.0")
	s.TrackRoute("GET", "/interaction/:uid",
		"github.com/authweave/idkit/coordinator.(*Coordinator).handleInteraction-fm")
	s.TrackPlugin("password")

	if len(s.routes) != 1 || s.routes[0].Handler != "Coordinator.handleInteraction" {
		t.Fatalf("routes = %+v", s.routes)
	}
	if len(s.plugins) != 1 || s.plugins[0] != "password" {
		t.Fatalf("plugins = %v", s.plugins)
	}
}
