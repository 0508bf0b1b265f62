package engine

import (
	"context"
	"errors"

	"cutroom/internal/domain"
	"cutroom/internal/engine/auth"
	"cutroom/internal/messaging"
	"cutroom/internal/repo"
)

type ProjectDetail struct {
	Project      domain.Project         `json:"project"`
	Deliverables []domain.Deliverable   `json:"deliverables"`
	Revisions    []domain.Revision      `json:"revisions"`
	Activity     []domain.ActivityEntry `json:"activity"`
	Messages     []domain.Message       `json:"messages"`
}

func (e Engine) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		return p, notFound("project", projectID)
	}
	return p, err
}

func (e Engine) ProjectDetail(ctx context.Context, projectID string) (ProjectDetail, error) {
	p, err := e.GetProject(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	detail := ProjectDetail{Project: p}
	if detail.Deliverables, err = e.Repo.ListDeliverables(ctx, projectID); err != nil {
		return ProjectDetail{}, err
	}
	if detail.Revisions, err = e.Repo.ListRevisions(ctx, projectID); err != nil {
		return ProjectDetail{}, err
	}
	if detail.Activity, err = e.Repo.ListActivity(ctx, projectID, 100); err != nil {
		return ProjectDetail{}, err
	}
	if detail.Messages, err = e.Repo.ListMessages(ctx, projectID, messaging.ChatWindow); err != nil {
		return ProjectDetail{}, err
	}
	return detail, nil
}

func (e Engine) Messages(ctx context.Context, projectID string) ([]domain.Message, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListMessages(ctx, projectID, messaging.ChatWindow)
}

// Queue lists the open projects assigned to the actor.
func (e Engine) Queue(ctx context.Context, actor auth.Actor) ([]domain.Project, error) {
	if actor.ID == "" {
		return nil, auth.ForbiddenError{Action: "view queue", Requirement: "signed-in user"}
	}
	return e.Repo.ListProjects(ctx, repo.ProjectFilters{EditorID: actor.ID, ExcludeClosed: true})
}

func (e Engine) ListUsers(ctx context.Context, actor auth.Actor) ([]domain.Profile, error) {
	if err := auth.RequireRole(actor, "list users", domain.RoleAdmin); err != nil {
		return nil, err
	}
	return e.Repo.ListProfiles(ctx, "")
}

func (e Engine) Editors(ctx context.Context) ([]domain.Profile, error) {
	return e.Repo.ListProfiles(ctx, domain.RoleEditor)
}

// Clients lists known clients by name for the intake form.
func (e Engine) Clients(ctx context.Context) ([]domain.Client, error) {
	return e.Repo.ListClients(ctx)
}
