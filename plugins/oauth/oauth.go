// Package oauth implements a generic OAuth2/OIDC authentication method:
// redirect to an upstream provider, exchange the returned code, and
// resolve the user's profile from the userinfo endpoint with an ID-token
// fallback. The handshake is CSRF-protected by the coordinator's one-time
// state tokens, and the callback finishes through the fixed completion
// path.
package oauth

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/oauth2"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/plugin"
	"github.com/authweave/idkit/util"
	"github.com/authweave/idkit/validation"
)

// Config holds one upstream provider's settings.
type Config struct {
	// Name is the method name and URL namespace (e.g. "oauth-github").
	Name string `mapstructure:"name" validate:"required"`

	// DisplayName is shown on the login page button.
	DisplayName string `mapstructure:"display_name" validate:"required"`

	// Priority orders the login page fragment (default 50). Nil means
	// unset; an explicit 0 sorts first.
	Priority *int `mapstructure:"priority"`

	// Enabled toggles the method without unregistering it.
	Enabled bool `mapstructure:"enabled"`

	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`

	// AuthURL and TokenURL are the provider's OAuth2 endpoints.
	AuthURL  string `mapstructure:"auth_url" validate:"required,url"`
	TokenURL string `mapstructure:"token_url" validate:"required,url"`

	// UserinfoURL is optional; when empty the profile comes from the
	// ID token alone.
	UserinfoURL string `mapstructure:"userinfo_url" validate:"omitempty,url"`

	// RedirectURL is this deployment's callback, i.e.
	// {issuer}/auth/{name}/callback.
	RedirectURL string `mapstructure:"redirect_url" validate:"required,url"`

	Scopes []string `mapstructure:"scopes"`

	// CompletionPath is where the callback sends the browser after
	// stashing the outcome (default "/auth/complete").
	CompletionPath string `mapstructure:"completion_path"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Priority == nil {
		c.Priority = util.Ptr(50)
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{"openid", "profile", "email"}
	}
	if c.CompletionPath == "" {
		c.CompletionPath = "/auth/complete"
	}
}

// Plugin is a generic OAuth2/OIDC authentication method.
type Plugin struct {
	cfg       Config
	oauth     *oauth2.Config
	handshake plugin.HandshakeAPI
	accounts  account.Repository
	checker   *permission.Checker
	log       *logger.Logger
}

// New creates an OAuth plugin for one upstream provider. The
// configuration is validated up front; a misconfigured provider fails
// construction, not its first login.
func New(cfg Config, handshake plugin.HandshakeAPI, accounts account.Repository, checker *permission.Checker, log *logger.Logger) (*Plugin, error) {
	cfg.ApplyDefaults()
	if err := validation.Validate(&cfg); err != nil {
		appErr, _ := errors.AsAppError(err)
		return nil, errors.InvalidConfiguration("oauth", appErr.Message)
	}
	return &Plugin{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
		},
		handshake: handshake,
		accounts:  accounts,
		checker:   checker,
		log:       log.WithComponent("plugin-" + cfg.Name),
	}, nil
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

// Authenticate starts the handshake: state goes into the one-time store
// and the browser is redirected to the provider.
func (p *Plugin) Authenticate(_ context.Context, authCtx *plugin.Context) (*plugin.Result, error) {
	if authCtx.InteractionID == "" {
		return nil, errors.MissingParameter("interaction")
	}

	state, err := p.handshake.NewHandshake(authCtx.InteractionID, p.cfg.Name, nil)
	if err != nil {
		return nil, err
	}
	return &plugin.Result{
		RedirectURL: p.oauth.AuthCodeURL(state),
	}, nil
}

var loginFragment = template.Must(template.New("oauth-button").Parse(`<form method="post" action="/interaction/{{.InteractionID}}/login">
<input type="hidden" name="method" value="{{.Method}}">
<button type="submit" class="oauth-button oauth-button-{{.Method}}">Continue with {{.Label}}</button>
</form>`))

// RenderLogin returns the provider's redirect button.
func (p *Plugin) RenderLogin(authCtx *plugin.Context) (string, error) {
	var b strings.Builder
	err := loginFragment.Execute(&b, map[string]string{
		"InteractionID": authCtx.InteractionID,
		"Method":        p.cfg.Name,
		"Label":         p.cfg.DisplayName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render login button: %w", err)
	}
	return b.String(), nil
}
