package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cutroom/internal/domain"
)

func registerMessages(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/messages",
		Summary:     "Latest chat messages, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body MessageListResponse `json:"body"`
	}, error) {
		msgs, err := h.engine.Messages(ctx, input.ProjectID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body MessageListResponse `json:"body"`
		}{Body: MessageListResponse{Messages: nonNilSlice(msgs)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "send-message",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/messages",
		Summary:       "Post a chat message",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string         `path:"project_id"`
		Body      MessageRequest `json:"body"`
	}) (*struct {
		Body domain.Message `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := h.engine.SendMessage(ctx, actor, input.ProjectID, input.Body.Body)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Message `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-read",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/messages/read",
		Summary:     "Move the caller's last-seen watermark to the latest message",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body MarkReadResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := h.engine.GetProject(ctx, input.ProjectID); err != nil {
			return nil, h.handleError(err)
		}
		ts, err := h.messaging.MarkRead(ctx, actor.ID, input.ProjectID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body MarkReadResponse `json:"body"`
		}{Body: MarkReadResponse{ProjectID: input.ProjectID, LastSeen: ts}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "inbox",
		Method:      http.MethodGet,
		Path:        "/inbox",
		Summary:     "Projects with unread messages, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body InboxResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		threads, err := h.messaging.Inbox(ctx, actor.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body InboxResponse `json:"body"`
		}{Body: InboxResponse{Threads: nonNilSlice(threads)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unread",
		Method:      http.MethodGet,
		Path:        "/unread",
		Summary:     "Unread message badge count",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UnreadResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := h.messaging.Unread(ctx, actor.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body UnreadResponse `json:"body"`
		}{Body: UnreadResponse{Count: n}}, nil
	})
}
