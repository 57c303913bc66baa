// Package password implements the local username/password authentication
// method. Credentials live on the account itself: the bcrypt hash is
// stored in account metadata, and the username is the identity within the
// method. Registration of new local accounts is exposed as a plugin route
// and gated by the CreateAccount capability.
package password

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/auth/password"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/plugin"
	"github.com/authweave/idkit/util"
)

// hashKey is the metadata field carrying the bcrypt hash.
const hashKey = "password_hash"

// Config holds the password method's settings.
type Config struct {
	// Name is the method name and URL namespace (default "password").
	Name string `mapstructure:"name"`

	// DisplayName is shown on the login page.
	DisplayName string `mapstructure:"display_name"`

	// Priority orders the login page fragment (default 10). Nil means
	// unset; an explicit 0 sorts first.
	Priority *int `mapstructure:"priority"`

	// Enabled toggles the method without unregistering it.
	Enabled bool `mapstructure:"enabled"`

	// AllowRegistration exposes the local-account registration route.
	AllowRegistration bool `mapstructure:"allow_registration"`

	// Hasher configures bcrypt.
	Hasher password.Config `mapstructure:"hasher"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "password"
	}
	if c.DisplayName == "" {
		c.DisplayName = "Username and password"
	}
	if c.Priority == nil {
		c.Priority = util.Ptr(10)
	}
	c.Hasher.ApplyDefaults()
}

// Plugin is the password authentication method.
type Plugin struct {
	cfg      Config
	hasher   password.Hasher
	accounts account.Repository
	checker  *permission.Checker
	log      *logger.Logger
}

// New creates the password plugin.
func New(cfg Config, accounts account.Repository, checker *permission.Checker, log *logger.Logger) *Plugin {
	cfg.ApplyDefaults()
	return &Plugin{
		cfg:      cfg,
		hasher:   password.NewHasher(cfg.Hasher),
		accounts: accounts,
		checker:  checker,
		log:      log.WithComponent("plugin-" + cfg.Name),
	}
}

var _ plugin.Plugin = (*Plugin)(nil)

// Name returns the method name.
func (p *Plugin) Name() string { return p.cfg.Name }

// DisplayName returns the login-page label.
func (p *Plugin) DisplayName() string { return p.cfg.DisplayName }

// Priority returns the login-page sort key.
func (p *Plugin) Priority() int { return util.Deref(p.cfg.Priority) }

// CanHandle reports whether the method is enabled.
func (p *Plugin) CanHandle(_ *plugin.Context) bool { return p.cfg.Enabled }

// Authenticate verifies a username/password pair against the stored
// bcrypt hash.
func (p *Plugin) Authenticate(ctx context.Context, authCtx *plugin.Context) (*plugin.Result, error) {
	username := strings.TrimSpace(authCtx.Param("username"))
	pwd := authCtx.Param("password")
	if username == "" {
		return nil, errors.MissingParameter("username")
	}
	if pwd == "" {
		return nil, errors.MissingParameter("password")
	}

	if err := p.checker.Require(p.cfg.Name, permission.ReadAccount); err != nil {
		return nil, err
	}

	acct, err := p.accounts.FindByAuthIdentity(ctx, p.cfg.Name, username)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, errors.UserNotFound(username)
	}
	if acct.Disabled {
		return nil, errors.AccountDisabled(acct.ID)
	}

	hash, ok := acct.Metadata[hashKey].(string)
	if !ok || hash == "" {
		return nil, errors.InvalidCredentials()
	}
	if err := p.hasher.Verify(pwd, hash); err != nil {
		p.log.Warn("Password verification failed", map[string]interface{}{
			"username": username,
			"remote":   authCtx.RemoteAddr,
		})
		return nil, errors.PasswordIncorrect()
	}

	return &plugin.Result{Account: acct}, nil
}

// RegisterAccount creates a local account with the given credentials.
func (p *Plugin) RegisterAccount(ctx context.Context, username, pwd string, profile account.Profile) (*account.Account, error) {
	if err := p.checker.Require(p.cfg.Name, permission.CreateAccount); err != nil {
		return nil, err
	}

	hash, err := p.hasher.Hash(pwd)
	if err != nil {
		return nil, errors.InvalidRequest(err.Error())
	}

	acct := &account.Account{
		AuthMethod: p.cfg.Name,
		ExternalID: username,
		Username:   username,
	}
	profile.Apply(acct)
	acct.Username = username
	if acct.Metadata == nil {
		acct.Metadata = make(map[string]interface{})
	}
	acct.Metadata[hashKey] = hash

	return p.accounts.Create(ctx, acct)
}

var loginFragment = template.Must(template.New("password-form").Parse(`<form method="post" action="/interaction/{{.InteractionID}}/login">
<input type="hidden" name="method" value="{{.Method}}">
<label>Username <input type="text" name="username" autocomplete="username" required></label>
<label>Password <input type="password" name="password" autocomplete="current-password" required></label>
<button type="submit">{{.Label}}</button>
</form>`))

// RenderLogin returns the inline credential form.
func (p *Plugin) RenderLogin(authCtx *plugin.Context) (string, error) {
	var b strings.Builder
	err := loginFragment.Execute(&b, map[string]string{
		"InteractionID": authCtx.InteractionID,
		"Method":        p.cfg.Name,
		"Label":         p.cfg.DisplayName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render login form: %w", err)
	}
	return b.String(), nil
}
