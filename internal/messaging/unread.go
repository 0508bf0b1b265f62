// Package messaging tracks per-user read watermarks over project chat.
package messaging

import (
	"context"
	"sort"
	"time"

	"cutroom/internal/domain"
)

// Store persists the last-seen timestamp per (user, project).
// ok is false when no watermark was ever recorded.
type Store interface {
	LastSeen(ctx context.Context, userID, projectID string) (ts string, ok bool, err error)
	SetLastSeen(ctx context.Context, userID, projectID, ts string) error
}

// DefaultKeyPrefix namespaces watermark keys in every store.
const DefaultKeyPrefix = "cutroom:lastSeen"

func watermarkKey(prefix, userID, projectID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + userID + ":" + projectID
}

// IsUnread reports whether msg counts as unread for userID given the stored
// watermark. Own messages are never unread and a missing watermark makes
// every other message unread.
func IsUnread(msg domain.Message, userID, lastSeen string, ok bool) bool {
	if msg.SenderID != nil && *msg.SenderID == userID {
		return false
	}
	if !ok {
		return true
	}
	created, err := domain.ParseTime(msg.CreatedAt)
	if err != nil {
		return false
	}
	seen, err := domain.ParseTime(lastSeen)
	if err != nil {
		return false
	}
	return created.After(seen)
}

// Thread is one inbox row: the newest message of a project and how many
// messages in the scanned window are unread.
type Thread struct {
	ProjectID    string         `json:"project_id"`
	ProjectTitle string         `json:"project_title,omitempty"`
	Latest       domain.Message `json:"latest"`
	Unread       int            `json:"unread"`
}

type Tracker struct {
	Store Store
}

type watermark struct {
	ts string
	ok bool
}

func (t Tracker) watermarks(ctx context.Context, userID string, msgs []domain.Message) (map[string]watermark, error) {
	marks := map[string]watermark{}
	for _, m := range msgs {
		if _, done := marks[m.ProjectID]; done {
			continue
		}
		ts, ok, err := t.Store.LastSeen(ctx, userID, m.ProjectID)
		if err != nil {
			return nil, err
		}
		marks[m.ProjectID] = watermark{ts: ts, ok: ok}
	}
	return marks, nil
}

// UnreadCount counts unread messages across every project present in msgs.
func (t Tracker) UnreadCount(ctx context.Context, userID string, msgs []domain.Message) (int, error) {
	marks, err := t.watermarks(ctx, userID, msgs)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range msgs {
		w := marks[m.ProjectID]
		if IsUnread(m, userID, w.ts, w.ok) {
			n++
		}
	}
	return n, nil
}

// MarkRead moves the watermark to the newest loaded message of the project
// and returns it. An empty list leaves the watermark alone.
func (t Tracker) MarkRead(ctx context.Context, userID, projectID string, msgs []domain.Message) (string, error) {
	var (
		latest   string
		latestAt time.Time
	)
	for _, m := range msgs {
		if m.ProjectID != projectID {
			continue
		}
		at, err := domain.ParseTime(m.CreatedAt)
		if err != nil {
			continue
		}
		if latest == "" || at.After(latestAt) {
			latest, latestAt = m.CreatedAt, at
		}
	}
	if latest == "" {
		return "", nil
	}
	if err := t.Store.SetLastSeen(ctx, userID, projectID, latest); err != nil {
		return "", err
	}
	return latest, nil
}

// Inbox groups msgs by project and keeps the threads with unread messages,
// newest first. msgs must be ordered newest first.
func (t Tracker) Inbox(ctx context.Context, userID string, msgs []domain.Message) ([]Thread, error) {
	marks, err := t.watermarks(ctx, userID, msgs)
	if err != nil {
		return nil, err
	}
	byProject := map[string]*Thread{}
	var order []string
	for _, m := range msgs {
		th, seen := byProject[m.ProjectID]
		if !seen {
			th = &Thread{ProjectID: m.ProjectID, Latest: m}
			byProject[m.ProjectID] = th
			order = append(order, m.ProjectID)
		}
		w := marks[m.ProjectID]
		if IsUnread(m, userID, w.ts, w.ok) {
			th.Unread++
		}
	}
	threads := make([]Thread, 0, len(order))
	for _, id := range order {
		if th := byProject[id]; th.Unread > 0 {
			threads = append(threads, *th)
		}
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Latest.CreatedAt > threads[j].Latest.CreatedAt
	})
	return threads, nil
}
