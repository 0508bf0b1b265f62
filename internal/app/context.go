package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"cutroom/internal/config"
	"cutroom/internal/db"
	"cutroom/internal/engine"
	"cutroom/internal/messaging"
	"cutroom/internal/migrate"
	"cutroom/internal/repo"
	"cutroom/internal/stats"
)

// Context bundles everything a command or the server needs against one workspace.
type Context struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Engine    engine.Engine
	Stats     stats.Service
	Messaging messaging.Service
	Log       *zap.Logger

	closers []func() error
}

// Open opens and migrates the workspace database, refuses to continue on a
// schema mismatch, seeds the first admin from config and wires the services.
func Open(ctx context.Context, workspace string, cfg *config.Config, log *zap.Logger) (*Context, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	c := &Context{Workspace: workspace, Config: cfg, DB: conn, Log: log}
	c.closers = append(c.closers, conn.Close)

	if err := migrate.Migrate(conn); err != nil {
		c.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := migrate.Verify(conn); err != nil {
		c.Close()
		return nil, err
	}

	c.Engine = engine.New(conn, log.Named("engine"))
	c.Stats = stats.Service{Repo: c.Engine.Repo, Now: time.Now}
	store, err := c.watermarkStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Messaging = messaging.Service{Repo: c.Engine.Repo, Tracker: messaging.Tracker{Store: store}}

	if err := c.seedAdmin(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Context) watermarkStore(ctx context.Context) (messaging.Store, error) {
	u := c.Config.Unread
	switch u.Store {
	case "redis":
		rs, err := messaging.NewRedisStore(ctx, messaging.RedisConfig{Addr: u.Redis.Addr, Password: u.Redis.Password, DB: u.Redis.DB}, u.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("unread store: %w", err)
		}
		c.closers = append(c.closers, rs.Close)
		return rs, nil
	default:
		path := u.Path
		if path == "" {
			path = filepath.Join(db.Dir(c.Workspace), "last_seen.yml")
		}
		return messaging.NewLocalStore(path, u.KeyPrefix), nil
	}
}

// seedAdmin creates the configured admin when no profile exists yet.
func (c *Context) seedAdmin(ctx context.Context) error {
	b := c.Config.Bootstrap
	if b.AdminEmail == "" {
		return nil
	}
	name := b.AdminName
	if name == "" {
		name = "Admin"
	}
	p, err := c.Engine.SeedAdmin(ctx, engine.InviteInput{FullName: name, Email: b.AdminEmail, Password: b.AdminPassword})
	if err != nil {
		var ve engine.ValidationError
		if errors.As(err, &ve) && ve.Field == "profiles" {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	c.Log.Info("seeded admin profile", zap.String("profile_id", p.ID), zap.String("email", p.Email))
	return nil
}

// Repo is a shortcut for read paths that bypass the engine.
func (c *Context) Repo() repo.Repo {
	return c.Engine.Repo
}

func (c *Context) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
