// Command idp runs the identity provider host: the HTTP server, the
// plugin coordinator, and the configured persistence and account
// backends. The OpenID Connect protocol itself is handled by the engine
// wired in at startup; this binary ships with the development engine so
// login flows work end to end out of the box.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/authweave/idkit/account"
	acctmemory "github.com/authweave/idkit/account/memory"
	acctsql "github.com/authweave/idkit/account/sqlstore"
	"github.com/authweave/idkit/auth/permission"
	"github.com/authweave/idkit/bootstrap"
	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/config"
	"github.com/authweave/idkit/coordinator"
	"github.com/authweave/idkit/database"
	"github.com/authweave/idkit/engine"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/observability"
	"github.com/authweave/idkit/persistence"
	"github.com/authweave/idkit/persistence/redisstore"
	"github.com/authweave/idkit/persistence/sqlstore"
	"github.com/authweave/idkit/plugins/oauth"
	"github.com/authweave/idkit/plugins/password"
	"github.com/authweave/idkit/redis"
	"github.com/authweave/idkit/server"
	"github.com/authweave/idkit/statestore"
	"github.com/authweave/idkit/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "idp:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.Config
	if err := config.Load("idp", &cfg); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.GetVersionInfo().Version
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	metrics, err := observability.NewStoreMetrics()
	if err != nil {
		log.Warn("store metrics unavailable", map[string]interface{}{"error": err.Error()})
		metrics = &observability.StoreMetrics{}
	}

	state := statestore.New(cfg.StateStore).WithMetrics(metrics)
	if err := app.RegisterComponent(state); err != nil {
		return err
	}

	// The persistence store needs a live connection, so it is built in an
	// OnStart hook after its backing component has started.
	var provider persistence.Provider
	switch cfg.Persistence.Backend {
	case config.PersistenceRedis:
		rc := redis.NewComponent(cfg.Persistence.Redis, log)
		if err := app.RegisterComponent(rc); err != nil {
			return err
		}
		app.OnStart(func(ctx context.Context) error {
			store := redisstore.NewStore(rc.Client(), log, redisstore.WithMetrics(metrics))
			provider = store
			return startStore(ctx, app, store)
		})
	default:
		dbc := database.NewComponent(cfg.Persistence.Database, log)
		if err := app.RegisterComponent(dbc); err != nil {
			return err
		}
		app.OnStart(func(ctx context.Context) error {
			store := sqlstore.NewStore(dbc.DB(), log, sqlstore.WithMetrics(metrics))
			provider = store
			return startStore(ctx, app, store)
		})
	}

	var accounts account.Repository
	switch cfg.Accounts.Backend {
	case config.AccountsSQL:
		adbc := database.NewComponent(cfg.Accounts.Database, log).WithName("accounts-database")
		if err := app.RegisterComponent(adbc); err != nil {
			return err
		}
		app.OnStart(func(ctx context.Context) error {
			repo := acctsql.NewRepository(adbc.DB(), log)
			if err := repo.Migrate(); err != nil {
				return err
			}
			accounts = repo
			return nil
		})
	default:
		accounts = acctmemory.NewRepository()
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(app.Name, app.Components.HealthAll)
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	checker := permission.NewChecker()

	app.OnConfigure(func(ctx context.Context, app *bootstrap.App[*config.Config]) error {
		eng := engine.NewMemory(provider.Adapter("Interaction"))
		coord := coordinator.New(eng, checker, state, accounts, srv.GinEngine(), log, cfg.Coordinator)
		coord.Mount()

		pluginCaps := []permission.Capability{
			permission.RegisterRoutes,
			permission.ReadAccount,
			permission.CreateAccount,
		}

		if cfg.Plugins.Password.Enabled {
			pw := password.New(cfg.Plugins.Password, accounts, checker, log)
			if err := coord.Register(pw, pluginCaps); err != nil {
				return err
			}
			app.Summary.TrackPlugin(pw.Name())
		}
		for _, pc := range cfg.Plugins.OAuth {
			if !pc.Enabled {
				continue
			}
			op, err := oauth.New(pc, coord, accounts, checker, log)
			if err != nil {
				return err
			}
			if err := coord.Register(op, pluginCaps); err != nil {
				return err
			}
			app.Summary.TrackPlugin(op.Name())
		}

		if cfg.Debug {
			mountDevInteraction(srv.GinEngine(), eng)
		}

		for _, r := range srv.GinEngine().Routes() {
			app.Summary.TrackRoute(r.Method, r.Path, r.Handler)
		}
		return nil
	})

	return app.Run(context.Background())
}

// startStore brings a persistence store up once its backing connection
// exists. The store is started here and stopped through an OnStop hook,
// which runs before the registry closes the connection underneath it.
func startStore(ctx context.Context, app *bootstrap.App[*config.Config], store component.Component) error {
	if err := store.Start(ctx); err != nil {
		return err
	}
	app.OnStop(store.Stop)
	return app.RegisterComponent(store)
}

// mountDevInteraction adds a development-only endpoint for starting a
// login flow without a relying party in front of the provider.
func mountDevInteraction(router *gin.Engine, eng *engine.Memory) {
	router.POST("/dev/interaction", func(ctx *gin.Context) {
		clientID := ctx.DefaultQuery("client_id", "dev-client")
		returnTo := ctx.DefaultQuery("return_to", "/")
		uid, err := eng.NewInteraction(ctx.Request.Context(), clientID, returnTo, nil)
		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.Internal(err)
			}
			ctx.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"uid": uid, "login_url": "/interaction/" + uid})
	})
}
