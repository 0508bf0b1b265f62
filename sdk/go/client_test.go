package cutroomsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutroom/internal/app"
	"cutroom/internal/config"
	"cutroom/internal/domain"
	"cutroom/internal/engine"
	"cutroom/internal/server"
)

func TestClientChatRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Bootstrap.AdminEmail = "admin@example.com"
	cfg.Bootstrap.AdminPassword = "password-123"
	c, err := app.Open(ctx, t.TempDir(), cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	admin, err := c.Engine.Auth.ActorByEmailOrID(ctx, "admin@example.com")
	require.NoError(t, err)
	_, err = c.Engine.InviteUser(ctx, admin, engine.InviteInput{FullName: "Eddie", Email: "eddie@example.com", Password: "password-123", Role: domain.RoleEditor})
	require.NoError(t, err)
	p, err := c.Engine.CreateProject(ctx, admin, engine.CreateProjectInput{
		Title: "Acme - 12 Oak St", ClientName: "Acme", Type: "listing", DueAt: "2030-01-01",
		RawFootageURL: "https://drive.example.com/raw", Deliverables: "Main video",
	})
	require.NoError(t, err)

	handler, err := server.New(server.Config{Engine: c.Engine, Stats: c.Stats, Messaging: c.Messaging, Auth: server.AuthConfig{JWTSecret: "sdk-test"}})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	anon := New(srv.URL)
	_, err = anon.Unread(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Code)

	adminClient := New(srv.URL)
	_, err = adminClient.Login(ctx, "admin@example.com", "password-123")
	require.NoError(t, err)
	_, err = adminClient.SendMessage(ctx, p.ID, "Footage uploaded")
	require.NoError(t, err)

	editor := New(srv.URL)
	me, err := editor.Login(ctx, "eddie@example.com", "password-123")
	require.NoError(t, err)
	assert.Equal(t, "editor", me.Role)

	n, err := editor.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	threads, err := editor.Inbox(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Footage uploaded", threads[0].Latest.Body)

	msgs, err := editor.Messages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	seen, err := editor.MarkRead(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, msgs[0].CreatedAt, seen)
	n, err = editor.Unread(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	projects, err := editor.Projects(ctx, ProjectFilter{Status: "NEW"})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, p.ID, projects[0].ID)
}
