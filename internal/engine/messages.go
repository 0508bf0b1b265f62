package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cutroom/internal/domain"
	"cutroom/internal/engine/auth"
	"cutroom/internal/events"
)

// SendMessage appends a user message to the project chat.
func (e Engine) SendMessage(ctx context.Context, actor auth.Actor, projectID, text string) (domain.Message, error) {
	if actor.ID == "" {
		return domain.Message{}, auth.ForbiddenError{Action: "send message", Requirement: "signed-in user"}
	}
	body := strings.TrimSpace(text)
	if body == "" {
		return domain.Message{}, invalid("body", "message text required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, err
	}
	defer tx.Rollback()
	if _, err := e.loadProjectTx(ctx, tx, projectID); err != nil {
		return domain.Message{}, err
	}
	sender := actor.ID
	m := domain.Message{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		SenderID:    &sender,
		Body:        body,
		MessageType: domain.MessageTypeUser,
		CreatedAt:   domain.FormatTime(e.now()),
	}
	if err := e.Repo.InsertMessageTx(ctx, tx, m); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if _, err := e.events().Append(ctx, tx, projectID, actor.ID, domain.ActionMessageSent, events.Meta{"message_id": m.ID}); err != nil {
		return domain.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Message{}, err
	}
	e.logCommitted(domain.ActionMessageSent, projectID, actor)
	return m, nil
}

func (e Engine) postSystemMessageTx(ctx context.Context, tx *sql.Tx, projectID, body string, meta map[string]any) (domain.Message, error) {
	m := domain.Message{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Body:        body,
		MessageType: domain.MessageTypeSystem,
		Meta:        meta,
		CreatedAt:   domain.FormatTime(e.now()),
	}
	if err := e.Repo.InsertMessageTx(ctx, tx, m); err != nil {
		return domain.Message{}, fmt.Errorf("insert system message: %w", err)
	}
	return m, nil
}
