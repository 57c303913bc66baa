package coordinator

import (
	"context"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/account/memory"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/engine"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/plugin"
	"github.com/authweave/idkit/statestore"
)

type fakePlugin struct {
	name        string
	displayName string
	priority    int
	disabled    bool
	fragment    string
	renderPanic bool
	authFn      func(ctx context.Context, authCtx *plugin.Context) (*plugin.Result, error)
}

func (f *fakePlugin) Name() string        { return f.name }
func (f *fakePlugin) DisplayName() string { return f.displayName }
func (f *fakePlugin) Priority() int       { return f.priority }

func (f *fakePlugin) CanHandle(_ *plugin.Context) bool { return !f.disabled }

func (f *fakePlugin) Authenticate(ctx context.Context, authCtx *plugin.Context) (*plugin.Result, error) {
	if f.authFn != nil {
		return f.authFn(ctx, authCtx)
	}
	return &plugin.Result{Account: &account.Account{ID: "acct-" + f.name}}, nil
}

func (f *fakePlugin) RenderLogin(_ *plugin.Context) (string, error) {
	if f.renderPanic {
		panic("render blew up")
	}
	return f.fragment, nil
}

type routePlugin struct {
	fakePlugin
	routes []plugin.Route
}

func (p *routePlugin) Routes() []plugin.Route { return p.routes }

type assetPlugin struct {
	fakePlugin
	assets []plugin.Asset
}

func (p *assetPlugin) Assets() []plugin.Asset { return p.assets }

type webhookPlugin struct {
	fakePlugin
	webhooks []plugin.Webhook
}

func (p *webhookPlugin) Webhooks() []plugin.Webhook { return p.webhooks }

type middlewarePlugin struct {
	fakePlugin
	middleware []gin.HandlerFunc
}

func (p *middlewarePlugin) Middleware() []gin.HandlerFunc { return p.middleware }

type fakeEngine struct {
	interactions map[string]*engine.Interaction
	finished     map[string]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		interactions: make(map[string]*engine.Interaction),
		finished:     make(map[string]string),
	}
}

func (e *fakeEngine) Interaction(_ context.Context, uid string) (*engine.Interaction, error) {
	if i, ok := e.interactions[uid]; ok {
		return i, nil
	}
	return nil, errors.NotFound("interaction", uid)
}

func (e *fakeEngine) FinishLogin(_ context.Context, uid, accountID string) (string, error) {
	e.finished[uid] = accountID
	return "/resumed/" + uid, nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *gin.Engine, *fakeEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	eng := newFakeEngine()
	state := statestore.New(statestore.Config{})
	c := New(eng, permission.NewChecker(), state, memory.NewRepository(),
		router, logger.NewDefault("coordinator-test"), Config{})
	c.Mount()
	return c, router, eng
}

func TestRegisterWithoutRouteCapabilityFailsClosed(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	p := &routePlugin{
		fakePlugin: fakePlugin{name: "gadget"},
		routes:     []plugin.Route{{Method: "GET", Path: "/probe", Handler: func(*gin.Context) {}}},
	}
	err := c.Register(p, []permission.Capability{permission.ReadAccount})
	if !errors.IsCode(err, errors.ErrCodePermissionDenied) {
		t.Fatalf("registration must fail with PermissionDenied, got %v", err)
	}
	if c.Lookup("gadget") != nil {
		t.Error("failed registration must not leave the plugin registered")
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.Register(&fakePlugin{name: "pw"}, nil); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := c.Register(&fakePlugin{name: "pw"}, nil)
	if !errors.IsCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Errorf("duplicate name must fail with InvalidConfiguration, got %v", err)
	}
}

func TestAuthenticateDispatch(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.Authenticate(ctx, "ghost", &plugin.Context{}); !errors.IsCode(err, errors.ErrCodeProviderNotFound) {
		t.Errorf("unknown method must fail with ProviderNotFound, got %v", err)
	}

	if err := c.Register(&fakePlugin{name: "off", disabled: true}, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := c.Authenticate(ctx, "off", &plugin.Context{}); !errors.IsCode(err, errors.ErrCodeProviderDisabled) {
		t.Errorf("declining method must fail with ProviderDisabled, got %v", err)
	}

	if err := c.Register(&fakePlugin{name: "ok"}, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	result, err := c.Authenticate(ctx, "ok", &plugin.Context{})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if result.Account == nil || result.Account.ID != "acct-ok" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestAuthenticateContainsFaults(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	panicky := &fakePlugin{name: "panicky", authFn: func(context.Context, *plugin.Context) (*plugin.Result, error) {
		panic("boom")
	}}
	if err := c.Register(panicky, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := c.Authenticate(ctx, "panicky", &plugin.Context{}); !errors.IsCode(err, errors.ErrCodeInternal) {
		t.Errorf("a panicking plugin must surface InternalError, got %v", err)
	}

	failing := &fakePlugin{name: "failing", authFn: func(context.Context, *plugin.Context) (*plugin.Result, error) {
		return nil, context.DeadlineExceeded
	}}
	if err := c.Register(failing, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := c.Authenticate(ctx, "failing", &plugin.Context{}); !errors.IsCode(err, errors.ErrCodeInternal) {
		t.Errorf("a non-structured failure must surface InternalError, got %v", err)
	}

	credErr := &fakePlugin{name: "cred", authFn: func(context.Context, *plugin.Context) (*plugin.Result, error) {
		return nil, errors.PasswordIncorrect()
	}}
	if err := c.Register(credErr, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := c.Authenticate(ctx, "cred", &plugin.Context{}); !errors.IsCode(err, errors.ErrCodePasswordIncorrect) {
		t.Errorf("structured plugin errors must pass through, got %v", err)
	}
}

func TestLoginPageOrdersAndTolerates(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	plugins := []plugin.Plugin{
		&fakePlugin{name: "bravo", priority: 20, fragment: "<p>bravo</p>"},
		&fakePlugin{name: "alpha", priority: 10, fragment: "<p>alpha</p>"},
		&fakePlugin{name: "broken", priority: 15, renderPanic: true},
		&fakePlugin{name: "hidden", priority: 5, disabled: true, fragment: "<p>hidden</p>"},
	}
	for _, p := range plugins {
		if err := c.Register(p, nil); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	page := c.LoginPage(&plugin.Context{})

	alphaAt := strings.Index(page, "<p>alpha</p>")
	bravoAt := strings.Index(page, "<p>bravo</p>")
	if alphaAt < 0 || bravoAt < 0 {
		t.Fatalf("fragments missing from page:\n%s", page)
	}
	if alphaAt > bravoAt {
		t.Error("lower priority must sort first")
	}
	if strings.Contains(page, "hidden") {
		t.Error("a declining plugin must be omitted")
	}
	if strings.Contains(page, "broken") {
		t.Error("a panicking renderer must be omitted, not abort the page")
	}
}

func TestHandshakeConsumeOnce(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	token, err := c.NewHandshake("i1", "oauth-github", map[string]string{"nonce": "n1"})
	if err != nil {
		t.Fatalf("newHandshake failed: %v", err)
	}

	st, err := c.ResumeHandshake(token)
	if err != nil {
		t.Fatalf("first resume failed: %v", err)
	}
	if st.InteractionID != "i1" || st.Method != "oauth-github" || st.Metadata["nonce"] != "n1" {
		t.Errorf("unexpected state: %+v", st)
	}

	if _, err := c.ResumeHandshake(token); !errors.IsCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("second resume must fail with InvalidState, got %v", err)
	}
	if _, err := c.ResumeHandshake("forged-token"); !errors.IsCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("forged token must fail with InvalidState, got %v", err)
	}
}

func TestOutcomeResolveOnce(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	token, err := c.StashOutcome("acct-1")
	if err != nil {
		t.Fatalf("stashOutcome failed: %v", err)
	}
	accountID, err := c.ResolveOutcome(token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if accountID != "acct-1" {
		t.Errorf("accountID = %q, want acct-1", accountID)
	}
	if _, err := c.ResolveOutcome(token); !errors.IsCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("replayed outcome token must fail with InvalidState, got %v", err)
	}
}

func TestFindAccount(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	created, err := c.accounts.FindOrCreate(ctx, "password", "alice", account.Profile{Username: "alice"})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	found, err := c.FindAccount(ctx, created.ID)
	if err != nil || found.Username != "alice" {
		t.Errorf("findAccount = (%+v, %v)", found, err)
	}

	if _, err := c.FindAccount(ctx, "missing"); !errors.IsCode(err, errors.ErrCodeUserNotFound) {
		t.Errorf("absent account must fail with UserNotFound, got %v", err)
	}

	disabled := true
	if _, err := c.accounts.Update(ctx, created.ID, account.Changes{Disabled: &disabled}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := c.FindAccount(ctx, created.ID); !errors.IsCode(err, errors.ErrCodeAccountDisabled) {
		t.Errorf("disabled account must fail with AccountDisabled, got %v", err)
	}
}

func TestStopClearsRegistrations(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.Register(&fakePlugin{name: "pw"}, []permission.Capability{permission.ReadAccount}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if c.Lookup("pw") != nil {
		t.Error("stop must drop plugin registrations")
	}
	if c.checker.Has("pw", permission.ReadAccount) {
		t.Error("stop must revoke capabilities")
	}
}
