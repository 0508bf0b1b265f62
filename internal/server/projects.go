package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cutroom/internal/domain"
	"cutroom/internal/engine"
	"cutroom/internal/stats"
)

type projectPath struct {
	ProjectID string `path:"project_id"`
}

type projectQuery struct {
	Status   string `query:"status" doc:"Status code or all"`
	EditorID string `query:"editor_id"`
	Priority string `query:"priority" doc:"normal, rush or all"`
	Due      string `query:"due" doc:"all, overdue, 3d or 7d"`
}

func (q projectQuery) toStats() stats.ProjectQuery {
	return stats.ProjectQuery{Status: q.Status, EditorID: q.EditorID, Priority: q.Priority, Due: q.Due}
}

func registerUsers(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List profiles (admin)",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProfileListResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := h.engine.ListUsers(ctx, actor)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body ProfileListResponse `json:"body"`
		}{Body: ProfileListResponse{Profiles: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "invite-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Invite a user (admin)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body InviteRequest `json:"body"`
	}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := h.engine.InviteUser(ctx, actor, engine.InviteInput{
			FullName: input.Body.FullName,
			Email:    input.Body.Email,
			Password: input.Body.Password,
			Role:     domain.Role(input.Body.Role),
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user-role",
		Method:      http.MethodPatch,
		Path:        "/users/{user_id}/role",
		Summary:     "Change a user's role (admin)",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string      `path:"user_id"`
		Body   RoleRequest `json:"body"`
	}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.engine.UpdateUserRole(ctx, actor, input.UserID, domain.Role(input.Body.Role)); err != nil {
			return nil, h.handleError(err)
		}
		p, err := h.engine.Repo.GetProfile(ctx, input.UserID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-editors",
		Method:      http.MethodGet,
		Path:        "/editors",
		Summary:     "Editors ordered by name",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProfileListResponse `json:"body"`
	}, error) {
		items, err := h.engine.Editors(ctx)
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body ProfileListResponse `json:"body"`
			}{Body: ProfileListResponse{Profiles: h.demo().Editors, Fallback: true}}, nil
		}
		return &struct {
			Body ProfileListResponse `json:"body"`
		}{Body: ProfileListResponse{Profiles: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "Known clients ordered by name",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ClientListResponse `json:"body"`
	}, error) {
		items, err := h.engine.Clients(ctx)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body ClientListResponse `json:"body"`
		}{Body: ClientListResponse{Clients: nonNilSlice(items)}}, nil
	})
}

func registerProjects(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects by due date",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *projectQuery) (*struct {
		Body ProjectListResponse `json:"body"`
	}, error) {
		items, err := h.stats.Projects(ctx, input.toStats())
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body ProjectListResponse `json:"body"`
			}{Body: ProjectListResponse{Projects: filterDemo(h.demo().Projects, *input), Fallback: true}}, nil
		}
		return &struct {
			Body ProjectListResponse `json:"body"`
		}{Body: ProjectListResponse{Projects: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-board",
		Method:      http.MethodGet,
		Path:        "/projects/board",
		Summary:     "Projects grouped by status",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *projectQuery) (*struct {
		Body BoardResponse `json:"body"`
	}, error) {
		cols, err := h.stats.Board(ctx, input.toStats())
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body BoardResponse `json:"body"`
			}{Body: BoardResponse{Columns: h.demo().Board(), Fallback: true}}, nil
		}
		return &struct {
			Body BoardResponse `json:"body"`
		}{Body: BoardResponse{Columns: cols}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project from the intake form",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := h.engine.CreateProject(ctx, actor, createInput(input.Body))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Project with deliverables, revisions, activity and chat",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body ProjectDetailResponse `json:"body"`
	}, error) {
		detail, err := h.engine.ProjectDetail(ctx, input.ProjectID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body ProjectDetailResponse `json:"body"`
		}{Body: normalizeDetail(detail)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Edit project details and deliverables",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectDetailResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		err := h.engine.UpdateProjectDetails(ctx, actor, input.ProjectID, detailsInput(input.Body), deliverableInputs(input.Body.Deliverables))
		if err != nil {
			return nil, h.handleError(err)
		}
		detail, err := h.engine.ProjectDetail(ctx, input.ProjectID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body ProjectDetailResponse `json:"body"`
		}{Body: normalizeDetail(detail)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project (admin)",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.engine.DeleteProject(ctx, actor, input.ProjectID); err != nil {
			return nil, h.handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-queue",
		Method:      http.MethodGet,
		Path:        "/queue",
		Summary:     "Open projects assigned to the caller",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProjectListResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := h.engine.Queue(ctx, actor)
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body ProjectListResponse `json:"body"`
			}{Body: ProjectListResponse{Projects: h.demo().Queue(), Fallback: true}}, nil
		}
		return &struct {
			Body ProjectListResponse `json:"body"`
		}{Body: ProjectListResponse{Projects: nonNilSlice(items)}}, nil
	})
}

func registerWorkflow(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "assign-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/assign",
		Summary:     "Assign editor and due date",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string        `path:"project_id"`
		Body      AssignRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		err := h.engine.AssignProject(ctx, actor, input.ProjectID, engine.AssignInput{EditorID: input.Body.EditorID, DueAt: input.Body.DueAt})
		return h.projectAfter(ctx, input.ProjectID, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "editor-update",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/editor-update",
		Summary:     "Assigned editor sets status and links",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string              `path:"project_id"`
		Body      EditorUpdateRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in := engine.EditorUpdateInput{PreviewURL: input.Body.PreviewURL, FinalURL: input.Body.FinalURL}
		if input.Body.Status != nil {
			st := domain.Status(*input.Body.Status)
			in.Status = &st
		}
		err := h.engine.UpdateEditorWork(ctx, actor, input.ProjectID, in)
		return h.projectAfter(ctx, input.ProjectID, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "qc-decision",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/qc",
		Summary:     "Approve, deliver or request a revision",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string    `path:"project_id"`
		Body      QCRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		err := h.engine.QCDecision(ctx, actor, input.ProjectID, engine.QCDecisionInput{
			Decision: input.Body.Decision,
			Tags:     input.Body.Tags,
			Notes:    input.Body.Notes,
		})
		return h.projectAfter(ctx, input.ProjectID, err)
	})
}

// projectAfter reloads the project once an action succeeded.
func (h *handlers) projectAfter(ctx context.Context, projectID string, err error) (*struct {
	Body domain.Project `json:"body"`
}, error) {
	if err != nil {
		return nil, h.handleError(err)
	}
	p, err := h.engine.GetProject(ctx, projectID)
	if err != nil {
		return nil, h.handleError(err)
	}
	return &struct {
		Body domain.Project `json:"body"`
	}{Body: p}, nil
}

func normalizeDetail(d engine.ProjectDetail) engine.ProjectDetail {
	d.Deliverables = nonNilSlice(d.Deliverables)
	d.Revisions = nonNilSlice(d.Revisions)
	d.Activity = nonNilSlice(d.Activity)
	d.Messages = nonNilSlice(d.Messages)
	return d
}

// filterDemo applies the equality filters of a list query to demo rows.
func filterDemo(projects []domain.Project, q projectQuery) []domain.Project {
	out := []domain.Project{}
	for _, p := range projects {
		if q.Status != "" && q.Status != stats.DueAll {
			if st, _ := domain.ParseStatus(q.Status); st != p.Status {
				continue
			}
		}
		if q.Priority != "" && q.Priority != stats.DueAll && string(p.Priority) != q.Priority {
			continue
		}
		if q.EditorID != "" && (p.AssignedEditorID == nil || *p.AssignedEditorID != q.EditorID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	return nil
}
