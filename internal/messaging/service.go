package messaging

import (
	"context"
	"errors"

	"cutroom/internal/repo"
)

// Message windows scanned per view.
const (
	ChatWindow  = 50
	BadgeWindow = 400
	InboxWindow = 500
)

// Service loads message windows from the store and applies the tracker.
type Service struct {
	Repo    repo.Repo
	Tracker Tracker
}

// Unread is the badge count over the latest BadgeWindow messages.
func (s Service) Unread(ctx context.Context, userID string) (int, error) {
	msgs, err := s.Repo.RecentMessages(ctx, BadgeWindow)
	if err != nil {
		return 0, err
	}
	return s.Tracker.UnreadCount(ctx, userID, msgs)
}

func (s Service) Inbox(ctx context.Context, userID string) ([]Thread, error) {
	msgs, err := s.Repo.RecentMessages(ctx, InboxWindow)
	if err != nil {
		return nil, err
	}
	threads, err := s.Tracker.Inbox(ctx, userID, msgs)
	if err != nil {
		return nil, err
	}
	for i := range threads {
		p, err := s.Repo.GetProject(ctx, threads[i].ProjectID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		threads[i].ProjectTitle = p.Title
	}
	return threads, nil
}

// MarkRead marks the loaded chat window of a project as read.
func (s Service) MarkRead(ctx context.Context, userID, projectID string) (string, error) {
	msgs, err := s.Repo.ListMessages(ctx, projectID, ChatWindow)
	if err != nil {
		return "", err
	}
	return s.Tracker.MarkRead(ctx, userID, projectID, msgs)
}
