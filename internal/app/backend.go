package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"pipeconsole/internal/config"
	"pipeconsole/internal/db"
	"pipeconsole/internal/engine"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/migrate"
	"pipeconsole/internal/repo"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/server"
)

// Backend is the web service with its storage.
type Backend struct {
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
	Server *rpc.Server
	// Webhooks is nil when no webhook is configured.
	Webhooks *server.WebhookDispatcher
	Log      *zap.Logger
}

// OpenBackend opens and migrates the store described by cfg and builds the
// engine and rpc server on top of it. With Store.Seed set, an empty project
// gets the demo fixtures.
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := db.Open(db.Config{Workspace: cfg.Store.Workspace, InMemory: cfg.Store.InMemory})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	e := engine.New(conn, cfg, log.Named("engine"))
	b := &Backend{
		Config:   cfg,
		DB:       conn,
		Engine:   e,
		Server:   server.NewBackend(e, log.Named("rpc")),
		Webhooks: server.NewWebhookDispatcher(e.Repo, cfg, log),
		Log:      log,
	}
	if cfg.Store.Seed {
		if _, err := b.Seed(ctx); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return b, nil
}

// Seed stores a fresh demo set unless the project already has
// applications. It reports whether it seeded.
func (b *Backend) Seed(ctx context.Context) (bool, error) {
	projectID := b.Config.Project.ID
	n, err := b.Engine.Repo.Count(ctx, repo.KindApplication, projectID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		b.Log.Debug("project already populated, not seeding", zap.String("project", projectID), zap.Int("applications", n))
		return false, nil
	}
	if err := b.Engine.Seed(ctx, projectID, fixtures.NewSet()); err != nil {
		return false, fmt.Errorf("seed project %s: %w", projectID, err)
	}
	return true, nil
}

// Local returns a transport serving calls in process for the configured
// project.
func (b *Backend) Local() rpc.Transport {
	return b.Server.Local(b.Config.Project.ID)
}

func (b *Backend) Close() error {
	return b.DB.Close()
}
