package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cutroom/internal/app"
	"cutroom/internal/config"
	"cutroom/internal/db"
	"cutroom/internal/engine"
	"cutroom/internal/messaging"
	"cutroom/internal/migrate"
)

func TestOpenSeedsAdminOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.Bootstrap.AdminEmail = "Owner@Example.com"
	cfg.Bootstrap.AdminPassword = "correct-horse"

	c, err := app.Open(ctx, dir, cfg, zap.NewNop())
	require.NoError(t, err)
	p, err := c.Engine.Auth.Authenticate(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "admin", string(p.Role))
	require.NoError(t, c.Close())

	// Reopening keeps the single admin.
	c, err = app.Open(ctx, dir, cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	n, err := c.Repo().CountProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, isLocal := c.Messaging.Tracker.Store.(*messaging.LocalStore)
	assert.True(t, isLocal)
}

func TestOpenRefusesSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	_, err = conn.Exec(`UPDATE schema_version SET version=version+10`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = app.Open(ctx, dir, nil, nil)
	require.Error(t, err)
	assert.Equal(t, engine.KindSchemaMismatch, engine.KindOf(err))
}

func TestOpenWithRedisWatermarks(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Unread.Store = "redis"
	cfg.Unread.Redis.Addr = mr.Addr()

	c, err := app.Open(context.Background(), t.TempDir(), cfg, nil)
	require.NoError(t, err)
	defer c.Close()
	_, isRedis := c.Messaging.Tracker.Store.(*messaging.RedisStore)
	assert.True(t, isRedis)
}
