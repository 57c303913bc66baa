package coordinator

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/plugin"
)

// methodField is the discriminator on login submissions.
const methodField = "method"

// Mount installs the coordinator's own routes: the interaction login
// page, the login submission endpoint, and the completion path.
func (c *Coordinator) Mount() {
	c.router.GET("/interaction/:uid", c.handleInteraction)
	c.router.POST("/interaction/:uid/login", c.handleLogin)
	c.router.GET(CompletionPath, c.handleComplete)
}

// wireExtensions mounts a plugin's gated extension points under its
// namespace. Gating already passed; nothing here can fail closed.
func (c *Coordinator) wireExtensions(p plugin.Plugin) {
	name := p.Name()
	prefix := "/auth/" + name
	group := c.router.Group(prefix)

	// Middleware first so it covers the routes mounted below. Each hook
	// is wrapped to fire only inside the plugin's own namespace.
	if mr, ok := p.(plugin.MiddlewareRegistrar); ok {
		for _, mw := range mr.Middleware() {
			group.Use(scopeToPrefix(prefix, mw))
		}
	}

	if rr, ok := p.(plugin.RouteRegistrar); ok {
		for _, route := range rr.Routes() {
			group.Handle(route.Method, route.Path, route.Handler)
			c.log.Debug("Plugin route mounted", map[string]interface{}{
				"plugin": name,
				"method": route.Method,
				"path":   prefix + route.Path,
			})
		}
	}

	if ar, ok := p.(plugin.AssetRegistrar); ok {
		for _, asset := range ar.Assets() {
			group.GET(asset.Path, serveAsset(asset))
		}
	}

	if wr, ok := p.(plugin.WebhookRegistrar); ok {
		for _, hook := range wr.Webhooks() {
			group.POST(hook.Path, webhookHandler(hook))
		}
	}
}

// scopeToPrefix confines a plugin-supplied hook to its own namespace so
// it can never observe or alter another plugin's traffic.
func scopeToPrefix(prefix string, mw gin.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.HasPrefix(ctx.Request.URL.Path, prefix) {
			ctx.Next()
			return
		}
		mw(ctx)
	}
}

// serveAsset serves a static asset with its content type and an hour of
// cache.
func serveAsset(asset plugin.Asset) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Cache-Control", "public, max-age=3600")
		ctx.Data(http.StatusOK, asset.ContentType, asset.Content)
	}
}

// webhookHandler runs the signature pre-check before the handler; a
// false result short-circuits to a 401 without invoking it.
func webhookHandler(hook plugin.Webhook) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if hook.Verify != nil && !hook.Verify(ctx.Request) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.InvalidRequest("webhook signature verification failed").ToResponse())
			return
		}
		hook.Handler(ctx)
	}
}

// handleInteraction renders the unified login page for a pending
// interaction.
func (c *Coordinator) handleInteraction(ctx *gin.Context) {
	uid := ctx.Param("uid")

	interaction, err := c.engine.Interaction(ctx.Request.Context(), uid)
	if err != nil {
		c.renderError(ctx, err)
		return
	}

	authCtx := &plugin.Context{InteractionID: interaction.UID, RemoteAddr: ctx.ClientIP()}
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(c.LoginPage(authCtx)))
}

// handleLogin dispatches a login submission. Success completes the
// engine's login step; failure redirects back to the interaction with a
// readable message.
func (c *Coordinator) handleLogin(ctx *gin.Context) {
	uid := ctx.Param("uid")

	if err := ctx.Request.ParseForm(); err != nil {
		c.redirectWithError(ctx, uid, errors.InvalidRequest("malformed form submission"))
		return
	}
	method := ctx.PostForm(methodField)
	if method == "" {
		c.redirectWithError(ctx, uid, errors.MissingParameter(methodField))
		return
	}

	authCtx := &plugin.Context{
		InteractionID: uid,
		Params:        flattenForm(ctx.Request.PostForm),
		RemoteAddr:    ctx.ClientIP(),
	}

	result, err := c.Authenticate(ctx.Request.Context(), method, authCtx)
	if err != nil {
		c.redirectWithError(ctx, uid, err)
		return
	}

	if result.RedirectURL != "" {
		ctx.Redirect(http.StatusFound, result.RedirectURL)
		return
	}

	returnTo, err := c.engine.FinishLogin(ctx.Request.Context(), uid, result.Account.ID)
	if err != nil {
		c.redirectWithError(ctx, uid, err)
		return
	}
	ctx.Redirect(http.StatusFound, returnTo)
}

// handleComplete resolves a stored auth outcome and finishes the
// interaction. The token is one-time; replaying it yields invalid state.
func (c *Coordinator) handleComplete(ctx *gin.Context) {
	token := ctx.Query("token")
	uid := ctx.Query("uid")
	if token == "" || uid == "" {
		c.renderError(ctx, errors.InvalidState())
		return
	}

	accountID, err := c.ResolveOutcome(token)
	if err != nil {
		c.renderError(ctx, err)
		return
	}

	returnTo, err := c.engine.FinishLogin(ctx.Request.Context(), uid, accountID)
	if err != nil {
		c.renderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, returnTo)
}

func (c *Coordinator) redirectWithError(ctx *gin.Context, uid string, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	if appErr.Cause != nil {
		c.log.Error("Login attempt failed", map[string]interface{}{
			"interaction": uid,
			"code":        string(appErr.Code),
			"error":       appErr.Cause.Error(),
		})
	}
	target := "/interaction/" + url.PathEscape(uid) + "?error=" + url.QueryEscape(appErr.Message)
	ctx.Redirect(http.StatusFound, target)
}

func (c *Coordinator) renderError(ctx *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	if appErr.Cause != nil {
		c.log.Error("Request failed", map[string]interface{}{
			"path":  ctx.Request.URL.Path,
			"code":  string(appErr.Code),
			"error": appErr.Cause.Error(),
		})
	}
	ctx.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

func flattenForm(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	return params
}
