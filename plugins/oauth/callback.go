package oauth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/plugin"
)

var _ plugin.RouteRegistrar = (*Plugin)(nil)

// Routes mounts the provider callback under the plugin's namespace, i.e.
// GET /auth/{name}/callback.
func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodGet, Path: "/callback", Handler: p.handleCallback},
	}
}

// handleCallback finishes the handshake: validate the one-time state,
// exchange the code, resolve the profile, and hand the browser to the
// completion path. The state check runs before anything touches the
// provider, so a forged callback never costs a token exchange.
func (p *Plugin) handleCallback(c *gin.Context) {
	if errCode := c.Query("error"); errCode != "" {
		appErr := errors.OAuthCallbackFailed(p.cfg.Name, nil).
			WithDetail("providerError", errCode).
			WithDetail("providerErrorDescription", c.Query("error_description"))
		p.log.Warn("provider returned an error on callback", map[string]interface{}{
			"provider": p.cfg.Name,
			"error":    errCode,
		})
		p.fail(c, appErr)
		return
	}

	state, err := p.handshake.ResumeHandshake(c.Query("state"))
	if err != nil {
		p.log.Warn("callback state rejected", map[string]interface{}{
			"provider": p.cfg.Name,
			"error":    err.Error(),
		})
		p.fail(c, errors.InvalidState())
		return
	}

	code := c.Query("code")
	if code == "" {
		p.fail(c, errors.OAuthCallbackFailed(p.cfg.Name, nil).WithDetail("reason", "missing code parameter"))
		return
	}

	token, err := p.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		p.log.Error("token exchange failed", map[string]interface{}{
			"provider": p.cfg.Name,
			"error":    err.Error(),
		})
		p.fail(c, errors.TokenExchangeFailed(p.cfg.Name, err))
		return
	}

	identity, err := p.resolveIdentity(c.Request.Context(), token)
	if err != nil {
		p.log.Error("identity resolution failed", map[string]interface{}{
			"provider": p.cfg.Name,
			"error":    err.Error(),
		})
		p.fail(c, err)
		return
	}

	acct, err := p.resolveAccount(c.Request.Context(), identity)
	if err != nil {
		p.fail(c, err)
		return
	}

	outcome, err := p.handshake.StashOutcome(acct.ID)
	if err != nil {
		p.fail(c, err)
		return
	}

	p.log.Info("external authentication succeeded", map[string]interface{}{
		"provider":    p.cfg.Name,
		"accountId":   acct.ID,
		"interaction": state.InteractionID,
	})

	q := url.Values{}
	q.Set("token", outcome)
	q.Set("uid", state.InteractionID)
	c.Redirect(http.StatusFound, p.cfg.CompletionPath+"?"+q.Encode())
}

// resolveAccount maps the provider identity to a local account. Looking
// up an existing account needs ReadAccount; minting one on first login
// additionally needs CreateAccount. A provider granted neither cannot
// touch the account store no matter what its callback carries.
func (p *Plugin) resolveAccount(ctx context.Context, id *identity) (*account.Account, error) {
	if err := p.checker.Require(p.cfg.Name, permission.ReadAccount); err != nil {
		return nil, err
	}
	acct, err := p.accounts.FindByAuthIdentity(ctx, p.cfg.Name, id.Subject)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		if err := p.checker.Require(p.cfg.Name, permission.CreateAccount); err != nil {
			return nil, err
		}
	}
	return p.accounts.FindOrCreate(ctx, p.cfg.Name, id.Subject, id.Profile)
}

func (p *Plugin) fail(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}
