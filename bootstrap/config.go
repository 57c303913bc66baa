package bootstrap

import (
	"github.com/authweave/idkit/config"
)

// Config is the interface constraint for application configuration types.
// Any struct embedding config.ServiceConfig satisfies it via promoted
// methods.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
