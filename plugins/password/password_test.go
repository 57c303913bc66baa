package password

import (
	"context"
	"strings"
	"testing"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/account/memory"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/plugin"
	"github.com/authweave/idkit/util"
)

func newTestPlugin(t *testing.T, caps ...permission.Capability) (*Plugin, account.Repository) {
	t.Helper()

	repo := memory.NewRepository()
	checker := permission.NewChecker()
	p := New(Config{Enabled: true, AllowRegistration: true}, repo, checker, logger.NewDefault("password-test"))
	checker.Register(p.Name(), caps)
	return p, repo
}

func allCaps() []permission.Capability {
	return []permission.Capability{permission.ReadAccount, permission.CreateAccount}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPlugin(t, allCaps()...)

	acct, err := p.RegisterAccount(ctx, "alice", "correct horse", account.Profile{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if acct.ID != account.DeriveID("password", "alice") {
		t.Errorf("account id must be derived from the identity, got %q", acct.ID)
	}

	result, err := p.Authenticate(ctx, &plugin.Context{Params: map[string]string{
		"username": "alice", "password": "correct horse",
	}})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if result.Account == nil || result.Account.ID != acct.ID {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	ctx := context.Background()
	p, repo := newTestPlugin(t, allCaps()...)

	if _, err := p.RegisterAccount(ctx, "alice", "correct horse", account.Profile{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	attempt := func(username, pwd string) error {
		_, err := p.Authenticate(ctx, &plugin.Context{Params: map[string]string{
			"username": username, "password": pwd,
		}})
		return err
	}

	if err := attempt("alice", "wrong"); !errors.IsCode(err, errors.ErrCodePasswordIncorrect) {
		t.Errorf("wrong password: got %v", err)
	}
	if err := attempt("ghost", "whatever"); !errors.IsCode(err, errors.ErrCodeUserNotFound) {
		t.Errorf("unknown user: got %v", err)
	}
	if err := attempt("", "x"); !errors.IsCode(err, errors.ErrCodeMissingParameter) {
		t.Errorf("missing username: got %v", err)
	}
	if err := attempt("alice", ""); !errors.IsCode(err, errors.ErrCodeMissingParameter) {
		t.Errorf("missing password: got %v", err)
	}

	disabled := true
	id := account.DeriveID("password", "alice")
	if _, err := repo.Update(ctx, id, account.Changes{Disabled: &disabled}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := attempt("alice", "correct horse"); !errors.IsCode(err, errors.ErrCodeAccountDisabled) {
		t.Errorf("disabled account: got %v", err)
	}
}

func TestCapabilityGates(t *testing.T) {
	ctx := context.Background()

	p, _ := newTestPlugin(t) // no capabilities granted
	if _, err := p.RegisterAccount(ctx, "alice", "correct horse", account.Profile{}); !errors.IsCode(err, errors.ErrCodePermissionDenied) {
		t.Errorf("registration without CreateAccount: got %v", err)
	}
	if _, err := p.Authenticate(ctx, &plugin.Context{Params: map[string]string{
		"username": "alice", "password": "x",
	}}); !errors.IsCode(err, errors.ErrCodePermissionDenied) {
		t.Errorf("authentication without ReadAccount: got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPlugin(t, allCaps()...)

	if _, err := p.RegisterAccount(ctx, "alice", "correct horse", account.Profile{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := p.RegisterAccount(ctx, "alice", "correct horse", account.Profile{}); !errors.IsCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("duplicate username: got %v", err)
	}
}

func TestRenderLogin(t *testing.T) {
	p, _ := newTestPlugin(t)

	html, err := p.RenderLogin(&plugin.Context{InteractionID: "i1"})
	if err != nil {
		t.Fatalf("renderLogin failed: %v", err)
	}
	for _, want := range []string{
		`action="/interaction/i1/login"`,
		`name="method" value="password"`,
		`name="username"`,
		`name="password"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("fragment missing %q:\n%s", want, html)
		}
	}
}

func TestRoutesOnlyWithRegistration(t *testing.T) {
	repo := memory.NewRepository()
	checker := permission.NewChecker()
	log := logger.NewDefault("password-test")

	open := New(Config{Enabled: true, AllowRegistration: true}, repo, checker, log)
	if len(open.Routes()) != 1 {
		t.Errorf("registration enabled must expose one route, got %d", len(open.Routes()))
	}

	closed := New(Config{Enabled: true}, repo, checker, log)
	if len(closed.Routes()) != 0 {
		t.Errorf("registration disabled must expose no routes, got %d", len(closed.Routes()))
	}
}

func TestConfigPriorityZeroIsPreserved(t *testing.T) {
	cfg := Config{Priority: util.Ptr(0)}
	cfg.ApplyDefaults()
	if got := util.Deref(cfg.Priority); got != 0 {
		t.Fatalf("explicit priority 0 became %d", got)
	}

	var unset Config
	unset.ApplyDefaults()
	if got := util.Deref(unset.Priority); got != 10 {
		t.Fatalf("default priority = %d, want 10", got)
	}
}
