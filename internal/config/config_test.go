package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutroom/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "/v1", cfg.Server.BasePath)
	assert.Equal(t, 12*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, 8*time.Second, cfg.Polling.Chat)
	assert.Equal(t, 10*time.Second, cfg.Polling.Unread)
	assert.Equal(t, 10*time.Second, cfg.Polling.Inbox)
	assert.Equal(t, "local", cfg.Unread.Store)
	assert.Equal(t, "cutroom:lastSeen", cfg.Unread.KeyPrefix)
	assert.Equal(t, "0 8 * * 1-5", cfg.Digest.Schedule)
	assert.False(t, cfg.DemoMode)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".cutroom/last_seen.yml"), cfg.Unread.Path)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`demo_mode: true
server:
  jwt_secret: s3cret
polling:
  chat: 2s
webhooks:
  - url: https://hooks.example.com/cutroom
    actions: [PROJECT_DELIVERED, OVERDUE_DIGEST]
    enabled: true
  - url: https://hooks.example.com/all
    enabled: true
  - url: https://hooks.example.com/off
    enabled: false
`)
	require.NoError(t, os.WriteFile(config.Path(dir), data, 0o644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.DemoMode)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.Polling.Chat)
	assert.Equal(t, 10*time.Second, cfg.Polling.Inbox, "unset keys keep defaults")

	assert.Len(t, cfg.WebhooksFor("PROJECT_DELIVERED"), 2)
	assert.Len(t, cfg.WebhooksFor("overdue_digest"), 2)
	assert.Len(t, cfg.WebhooksFor("MESSAGE_SENT"), 1)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"unknown store":      "unread:\n  store: memcached\n",
		"redis without addr": "unread:\n  store: redis\n",
		"bad log level":      "log:\n  level: loud\n",
		"webhook url":        "webhooks:\n  - url: not a url\n    enabled: true\n",
		"short password":     "bootstrap:\n  admin_email: a@example.com\n  admin_password: short\n",
		"email no password":  "bootstrap:\n  admin_email: a@example.com\n",
		"base path":          "server:\n  base_path: v1\n",
		"bad yaml":           "server: [",
	}
	for name, body := range cases {
		_, err := config.FromYAML([]byte(body))
		assert.Error(t, err, name)
	}

	cfg, err := config.FromYAML([]byte("unread:\n  store: redis\n  redis:\n    addr: localhost:6379\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Unread.Store)
}
