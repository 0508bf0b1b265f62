package messaging_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutroom/internal/domain"
	"cutroom/internal/messaging"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(id, projectID, sender string, at time.Time) domain.Message {
	m := domain.Message{
		ID:          id,
		ProjectID:   projectID,
		Body:        "body " + id,
		MessageType: domain.MessageTypeUser,
		CreatedAt:   domain.FormatTime(at),
	}
	if sender != "" {
		m.SenderID = &sender
	} else {
		m.MessageType = domain.MessageTypeSystem
	}
	return m
}

func TestIsUnread(t *testing.T) {
	seen := domain.FormatTime(base)
	cases := []struct {
		name     string
		msg      domain.Message
		lastSeen string
		ok       bool
		want     bool
	}{
		{"own message", msg("1", "p", "u", base.Add(time.Hour)), "", false, false},
		{"no watermark", msg("2", "p", "v", base.Add(-time.Hour)), "", false, true},
		{"system message without watermark", msg("3", "p", "", base), "", false, true},
		{"after watermark", msg("4", "p", "v", base.Add(time.Millisecond)), seen, true, true},
		{"equal to watermark", msg("5", "p", "v", base), seen, true, false},
		{"before watermark", msg("6", "p", "v", base.Add(-time.Second)), seen, true, false},
		{"unparseable watermark", msg("7", "p", "v", base), "yesterday", true, false},
		{"rfc3339 watermark", msg("8", "p", "v", base.Add(time.Second)), "2024-05-01T12:00:00Z", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, messaging.IsUnread(tc.msg, "u", tc.lastSeen, tc.ok))
		})
	}
}

func runUnreadScenario(t *testing.T, store messaging.Store) {
	t.Helper()
	ctx := context.Background()
	tracker := messaging.Tracker{Store: store}
	msgs := []domain.Message{
		msg("a", "p", "v", base),
		msg("b", "p", "w", base.Add(time.Minute)),
		msg("c", "p", "", base.Add(2*time.Minute)),
	}
	n, err := tracker.UnreadCount(ctx, "u", msgs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ts, err := tracker.MarkRead(ctx, "u", "p", msgs)
	require.NoError(t, err)
	assert.Equal(t, msgs[2].CreatedAt, ts)

	n, err = tracker.UnreadCount(ctx, "u", msgs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	msgs = append(msgs, msg("d", "p", "v", base.Add(3*time.Minute)))
	n, err = tracker.UnreadCount(ctx, "u", msgs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, m := range msgs[:3] {
		last, ok, err := store.LastSeen(ctx, "u", "p")
		require.NoError(t, err)
		assert.False(t, messaging.IsUnread(m, "u", last, ok), m.ID)
	}

	// Another user's watermark is independent.
	n, err = tracker.UnreadCount(ctx, "v", msgs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUnreadScenarioLocalStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "last_seen.yml")
	runUnreadScenario(t, messaging.NewLocalStore(path, ""))

	// A fresh store over the same file sees the persisted watermark.
	reopened := messaging.NewLocalStore(path, "")
	ts, ok, err := reopened.LastSeen(context.Background(), "u", "p")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.FormatTime(base.Add(2*time.Minute)), ts)
}

func TestUnreadScenarioRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := messaging.NewRedisStore(context.Background(), messaging.RedisConfig{Addr: mr.Addr()}, "test:lastSeen")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runUnreadScenario(t, store)

	got, err := mr.Get("test:lastSeen:u:p")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatTime(base.Add(2*time.Minute)), got)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := messaging.NewRedisStore(context.Background(), messaging.RedisConfig{Addr: addr}, "")
	assert.Error(t, err)
}

func TestMarkReadEmptyListIsNoop(t *testing.T) {
	ctx := context.Background()
	store := messaging.NewLocalStore(filepath.Join(t.TempDir(), "seen.yml"), "")
	tracker := messaging.Tracker{Store: store}
	ts, err := tracker.MarkRead(ctx, "u", "p", nil)
	require.NoError(t, err)
	assert.Empty(t, ts)
	_, ok, err := store.LastSeen(ctx, "u", "p")
	require.NoError(t, err)
	assert.False(t, ok)

	// Messages of other projects do not move this project's watermark.
	ts, err = tracker.MarkRead(ctx, "u", "p", []domain.Message{msg("x", "q", "v", base)})
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	store := messaging.NewLocalStore(filepath.Join(t.TempDir(), "seen.yml"), "")
	tracker := messaging.Tracker{Store: store}
	require.NoError(t, store.SetLastSeen(ctx, "u", "read", domain.FormatTime(base.Add(time.Hour))))

	// newest first, as the store returns them
	msgs := []domain.Message{
		msg("5", "own", "u", base.Add(5*time.Minute)),
		msg("4", "p", "v", base.Add(4*time.Minute)),
		msg("3", "q", "v", base.Add(3*time.Minute)),
		msg("2", "read", "v", base.Add(2*time.Minute)),
		msg("1", "q", "", base.Add(time.Minute)),
	}
	threads, err := tracker.Inbox(ctx, "u", msgs)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "p", threads[0].ProjectID)
	assert.Equal(t, 1, threads[0].Unread)
	assert.Equal(t, "q", threads[1].ProjectID)
	assert.Equal(t, 2, threads[1].Unread)
	assert.Equal(t, "3", threads[1].Latest.ID)
}

func TestPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := messaging.Poll(ctx, time.Millisecond, func(context.Context) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
}
