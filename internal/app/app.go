// Package app wires the gateway's dependencies into a ready request
// pipeline. main() provides the externals (config, cache database, logger);
// everything else is constructed here.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"authgate/internal/config"
	"authgate/internal/db/repository"
	"authgate/internal/domain"
	"authgate/internal/gateway"
	"authgate/internal/gcp"
	"authgate/internal/groups"
	"authgate/internal/identity"
	"authgate/internal/middleware"
)

// Deps holds the external dependencies that main() must provide: things the
// app package cannot (or should not) create itself.
type Deps struct {
	Cfg     *config.Config
	CacheDB *sql.DB
	Logger  *slog.Logger

	// HTTPClient overrides the outbound client for identity and directory
	// calls. Nil means sensible defaults; tests point it at local servers.
	HTTPClient *http.Client
}

// App is the fully wired gateway.
type App struct {
	Handler      *gateway.Handler
	OriginPolicy *middleware.OriginPolicy
	Registry     *gateway.Registry
}

// New builds the pipeline from deps. The directory client is only wired
// when service credentials are configured; without them group membership
// resolution is disabled and requests carry no groups header.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	policy, err := middleware.NewOriginPolicy(cfg.CORSDomains)
	if err != nil {
		return nil, err
	}

	registry, err := gateway.LoadRegistry(cfg.BackendsFile, os.Environ())
	if err != nil {
		return nil, err
	}

	resolver := identity.NewResolver(cfg.ProfileURL, deps.HTTPClient)

	directory, err := buildDirectory(ctx, deps)
	if err != nil {
		return nil, err
	}

	store := repository.NewSnapshotRepo(deps.CacheDB)
	var groupResolver domain.GroupResolver = groups.NewSingleflightResolver(
		groups.NewCachedResolver(directory, store, cfg.CacheExpiry, deps.Logger.With("component", "groups")),
	)

	handler := gateway.NewHandler(
		resolver,
		groupResolver,
		gateway.NewEnricher(cfg.SharedSecret),
		registry,
		gateway.NewProxy(deps.HTTPClient),
		cfg.AllowAnonymous,
		deps.Logger.With("component", "gateway"),
	)

	return &App{Handler: handler, OriginPolicy: policy, Registry: registry}, nil
}

func buildDirectory(ctx context.Context, deps Deps) (domain.GroupDirectory, error) {
	cfg := deps.Cfg
	if len(cfg.DirectoryCredentials) == 0 {
		return noopDirectory{}, nil
	}

	if deps.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, deps.HTTPClient)
	}
	ts, err := gcp.NewServiceTokenSource(ctx, cfg.DirectoryCredentials, gcp.GroupReadonlyScope)
	if err != nil {
		return nil, err
	}
	return gcp.NewDirectoryClient(ctx, ts, cfg.Domain)
}

// noopDirectory stands in when no service credentials are configured. The
// nil result means no membership claim was verified, so the groups header
// is omitted rather than asserting an empty membership.
type noopDirectory struct{}

func (noopDirectory) ListGroups(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}
