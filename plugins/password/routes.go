package password

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/plugin"
	"github.com/authweave/idkit/validation"
)

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"display_name" validate:"omitempty,max=128"`
}

var _ plugin.RouteRegistrar = (*Plugin)(nil)

// Routes exposes local-account registration when enabled. Mounted under
// the plugin namespace; requires the RegisterRoutes capability.
func (p *Plugin) Routes() []plugin.Route {
	if !p.cfg.AllowRegistration {
		return nil
	}
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/register", Handler: p.handleRegister},
	}
}

func (p *Plugin) handleRegister(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		appErr := errors.InvalidRequest("request body must be valid JSON")
		ctx.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	if err := validation.Validate(&req); err != nil {
		appErr, _ := errors.AsAppError(err)
		ctx.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}

	acct, err := p.RegisterAccount(ctx.Request.Context(), req.Username, req.Password, account.Profile{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Internal(err)
		}
		ctx.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}

	p.log.Info("Local account registered", map[string]interface{}{
		"username": req.Username,
		"account":  acct.ID,
	})
	ctx.JSON(http.StatusCreated, gin.H{"id": acct.ID, "username": acct.Username})
}
