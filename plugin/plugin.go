package plugin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/account"
)

// Context carries one authentication attempt through a plugin.
type Context struct {
	// InteractionID identifies the protocol engine interaction being
	// completed, when known.
	InteractionID string

	// Params holds the submitted fields (form or query), flattened.
	Params map[string]string

	// RemoteAddr is the client address, for audit logging.
	RemoteAddr string
}

// Param returns a submitted field, or "" when absent.
func (c *Context) Param(name string) string {
	if c == nil || c.Params == nil {
		return ""
	}
	return c.Params[name]
}

// Result is the outcome of a successful Authenticate call. Exactly one of
// Account or RedirectURL is set: an inline method resolves the account
// directly, a multi-step method redirects the browser to its external
// step and finishes later through its callback route.
type Result struct {
	Account     *account.Account
	RedirectURL string
}

// Plugin is the core authentication method contract.
type Plugin interface {
	// Name is unique; it is the URL namespace, the map key, and the
	// method discriminator on login submissions.
	Name() string

	// DisplayName is shown on the unified login page.
	DisplayName() string

	// Priority orders login-page fragments; lower sorts first.
	Priority() int

	// CanHandle reports whether the method is currently able to serve
	// the attempt (feature flags, upstream availability).
	CanHandle(authCtx *Context) bool

	// Authenticate performs the method's credential check or starts its
	// external handshake.
	Authenticate(ctx context.Context, authCtx *Context) (*Result, error)

	// RenderLogin returns the method's login-page fragment: an inline
	// form or a redirect button.
	RenderLogin(authCtx *Context) (string, error)
}

// Route is a plugin-supplied HTTP route, mounted under the plugin's
// namespace.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// RouteRegistrar is implemented by plugins that mount routes. Requires
// the RegisterRoutes capability.
type RouteRegistrar interface {
	Routes() []Route
}

// Asset is a plugin-supplied static asset, served GET-only with the given
// content type.
type Asset struct {
	Path        string
	ContentType string
	Content     []byte
}

// AssetRegistrar is implemented by plugins that serve static assets.
// Requires the RegisterStaticAssets capability.
type AssetRegistrar interface {
	Assets() []Asset
}

// Webhook is a plugin-supplied POST endpoint. When Verify is non-nil it
// runs before the handler; a false result short-circuits to a 401 and the
// handler never fires.
type Webhook struct {
	Path    string
	Verify  func(r *http.Request) bool
	Handler gin.HandlerFunc
}

// WebhookRegistrar is implemented by plugins that receive webhooks.
// Requires the RegisterWebhooks capability.
type WebhookRegistrar interface {
	Webhooks() []Webhook
}

// MiddlewareRegistrar is implemented by plugins that hook their own
// namespace's traffic. The coordinator scopes every hook to the plugin's
// path prefix; it never observes another plugin's requests. Requires the
// RegisterMiddleware capability.
type MiddlewareRegistrar interface {
	Middleware() []gin.HandlerFunc
}
