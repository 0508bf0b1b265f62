package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cutroom/internal/db"
	"cutroom/internal/domain"
	"cutroom/internal/engine"
	"cutroom/internal/engine/auth"
	"cutroom/internal/migrate"
	"cutroom/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  auth.Actor
	QC     auth.Actor
	Editor auth.Actor
	Other  auth.Actor
	clock  *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	env := &testEnv{Ctx: context.Background(), clock: &now}
	eng := engine.New(conn, zap.NewNop())
	eng.Now = func() time.Time { return *env.clock }
	env.Engine = eng

	seed := func(id string, role domain.Role) auth.Actor {
		err := eng.Repo.InsertProfile(env.Ctx, domain.Profile{
			ID:        id,
			Email:     id + "@example.com",
			FullName:  id,
			Role:      role,
			CreatedAt: domain.FormatTime(now),
		})
		require.NoError(t, err)
		return auth.Actor{ID: id, Role: role}
	}
	env.Admin = seed("admin-1", domain.RoleAdmin)
	env.QC = seed("qc-1", domain.RoleQC)
	env.Editor = seed("editor-1", domain.RoleEditor)
	env.Other = seed("editor-2", domain.RoleEditor)
	return env
}

func (env *testEnv) advance(d time.Duration) {
	next := env.clock.Add(d)
	env.clock = &next
}

func (env *testEnv) createProject(t *testing.T, creator auth.Actor, notes string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, creator, engine.CreateProjectInput{
		Title:         "Bluebird - 301 Grove St",
		ClientName:    "Bluebird Realty",
		Type:          "listing",
		DueAt:         "2024-01-10",
		RawFootageURL: "https://drive.example.com/raw",
		Deliverables:  "Main video, Social cut\nTeaser",
		Notes:         notes,
	})
	require.NoError(t, err)
	return p
}

func (env *testEnv) assign(t *testing.T, p domain.Project) {
	t.Helper()
	editor := env.Editor.ID
	due := "2024-01-12"
	require.NoError(t, env.Engine.AssignProject(env.Ctx, env.QC, p.ID, engine.AssignInput{EditorID: &editor, DueAt: &due}))
}

func statusPtr(s domain.Status) *domain.Status { return &s }

func strPtr(s string) *string { return &s }

func TestParseDeliverables(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Main video, Social cut\nTeaser", []string{"Main video", "Social cut", "Teaser"}},
		{" a ,, \r\n b ,", []string{"a", "b"}},
		{"  \n , ", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, engine.ParseDeliverables(tc.in), tc.in)
	}
}

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")

	assert.Equal(t, domain.StatusNew, p.Status)
	assert.Equal(t, domain.PriorityNormal, p.Priority)
	assert.Equal(t, env.Admin.ID, p.CreatedBy)
	assert.Equal(t, 0, p.RevisionCount)

	detail, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	labels := make([]string, 0, len(detail.Deliverables))
	for _, d := range detail.Deliverables {
		labels = append(labels, d.Label)
	}
	assert.Equal(t, []string{"Main video", "Social cut", "Teaser"}, labels)
	assert.Empty(t, detail.Activity, "intake without notes writes no activity")
	assert.Equal(t, "Bluebird Realty", detail.Project.ClientName)
}

func TestCreateProjectWithNotesLogsActivityAndReusesClient(t *testing.T) {
	env := newTestEnv(t)
	first := env.createProject(t, env.QC, "Use the drone shots")
	second := env.createProject(t, env.Admin, "")
	require.NotNil(t, first.ClientID)
	require.NotNil(t, second.ClientID)
	assert.Equal(t, *first.ClientID, *second.ClientID)

	detail, err := env.Engine.ProjectDetail(env.Ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, detail.Activity, 1)
	assert.Equal(t, domain.ActionProjectCreated, detail.Activity[0].Action)
	assert.Equal(t, "Use the drone shots", detail.Activity[0].Meta["notes"])
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	base := engine.CreateProjectInput{
		Title:         "T",
		ClientName:    "C",
		Type:          "listing",
		DueAt:         "2024-01-10",
		RawFootageURL: "https://raw",
		Deliverables:  "Main",
	}
	cases := map[string]func(*engine.CreateProjectInput){
		"title":        func(in *engine.CreateProjectInput) { in.Title = " " },
		"client":       func(in *engine.CreateProjectInput) { in.ClientName = "" },
		"type":         func(in *engine.CreateProjectInput) { in.Type = "" },
		"due":          func(in *engine.CreateProjectInput) { in.DueAt = "" },
		"bad due":      func(in *engine.CreateProjectInput) { in.DueAt = "next week" },
		"raw":          func(in *engine.CreateProjectInput) { in.RawFootageURL = "" },
		"deliverables": func(in *engine.CreateProjectInput) { in.Deliverables = " , \n" },
		"priority":     func(in *engine.CreateProjectInput) { in.Priority = "urgent" },
	}
	for name, mutate := range cases {
		in := base
		mutate(&in)
		_, err := env.Engine.CreateProject(env.Ctx, env.Admin, in)
		assert.Equal(t, engine.KindValidation, engine.KindOf(err), name)
	}

	_, err := env.Engine.CreateProject(env.Ctx, env.Editor, base)
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))

	projects, err := env.Engine.Repo.ListProjects(env.Ctx, repo.ProjectFilters{})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestAssignAdvancesOnlyFromNew(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	env.assign(t, p)

	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	require.NotNil(t, got.AssignedEditorID)
	assert.Equal(t, env.Editor.ID, *got.AssignedEditorID)
	require.NotNil(t, got.DueAt)
	assert.Equal(t, "2024-01-12T00:00:00.000000Z", *got.DueAt)

	require.NoError(t, env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{Status: statusPtr(domain.StatusEditing)}))

	// Reassigning a project that is past NEW keeps its status.
	other := env.Other.ID
	require.NoError(t, env.Engine.AssignProject(env.Ctx, env.Admin, p.ID, engine.AssignInput{EditorID: &other}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEditing, got.Status)
	assert.Equal(t, other, *got.AssignedEditorID)
	require.NotNil(t, got.DueAt, "omitted due date is kept")
	assert.Equal(t, "2024-01-12T00:00:00.000000Z", *got.DueAt)

	detail, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	var assigned int
	for _, a := range detail.Activity {
		if a.Action == domain.ActionProjectAssigned {
			assigned++
			assert.Contains(t, a.Meta, "editor_id")
			assert.Contains(t, a.Meta, "due_at")
		}
	}
	assert.Equal(t, 2, assigned)
}

func TestAssignKeepsOmittedFieldsAndClearsBlankOnes(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	require.NotNil(t, p.DueAt)
	intakeDue := *p.DueAt

	editor := env.Editor.ID
	require.NoError(t, env.Engine.AssignProject(env.Ctx, env.QC, p.ID, engine.AssignInput{EditorID: &editor}))
	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueAt)
	assert.Equal(t, intakeDue, *got.DueAt)

	due := "2024-01-20"
	require.NoError(t, env.Engine.AssignProject(env.Ctx, env.QC, p.ID, engine.AssignInput{DueAt: &due}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedEditorID)
	assert.Equal(t, editor, *got.AssignedEditorID)
	assert.Equal(t, "2024-01-20T00:00:00.000000Z", *got.DueAt)

	blank := ""
	require.NoError(t, env.Engine.AssignProject(env.Ctx, env.QC, p.ID, engine.AssignInput{EditorID: &blank, DueAt: &blank}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedEditorID)
	assert.Nil(t, got.DueAt)
}

func TestAssignRequiresAdminOrQC(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	editor := env.Editor.ID
	err := env.Engine.AssignProject(env.Ctx, env.Editor, p.ID, engine.AssignInput{EditorID: &editor})
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))

	missing := "nobody"
	err = env.Engine.AssignProject(env.Ctx, env.Admin, p.ID, engine.AssignInput{EditorID: &missing})
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))

	qc := env.QC.ID
	err = env.Engine.AssignProject(env.Ctx, env.Admin, p.ID, engine.AssignInput{EditorID: &qc})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	err = env.Engine.AssignProject(env.Ctx, env.Admin, "missing", engine.AssignInput{})
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))

	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, got.Status)
}

func TestEditorUpdate(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	env.assign(t, p)

	err := env.Engine.UpdateEditorWork(env.Ctx, env.Other, p.ID, engine.EditorUpdateInput{Status: statusPtr(domain.StatusEditing)})
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err), "only the assigned editor")

	err = env.Engine.UpdateEditorWork(env.Ctx, env.Admin, p.ID, engine.EditorUpdateInput{Status: statusPtr(domain.StatusEditing)})
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err), "admins are not the assigned editor")

	err = env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{Status: statusPtr(domain.StatusDelivered)})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	require.NoError(t, env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{
		Status:     statusPtr(domain.StatusQC),
		PreviewURL: strPtr("https://preview"),
	}))
	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQC, got.Status)
	require.NotNil(t, got.PreviewURL)
	assert.Equal(t, "https://preview", *got.PreviewURL)

	// Same status: URLs are written, no activity. The omitted preview is kept.
	require.NoError(t, env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{
		Status:   statusPtr(domain.StatusQC),
		FinalURL: strPtr("https://final"),
	}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PreviewURL)
	assert.Equal(t, "https://preview", *got.PreviewURL)
	require.NotNil(t, got.FinalDeliveryURL)

	require.NoError(t, env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{FinalURL: strPtr("")}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FinalDeliveryURL, "a blank link clears it")
	require.NotNil(t, got.PreviewURL)

	require.NoError(t, env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{Status: statusPtr(domain.StatusEditing)}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PreviewURL, "a status-only submit keeps the preview link")
	assert.Equal(t, "https://preview", *got.PreviewURL)

	detail, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	var actions []string
	for _, a := range detail.Activity {
		actions = append(actions, a.Action)
	}
	// newest first
	assert.Equal(t, []string{
		domain.ActionEditorStatusUpdated,
		domain.ActionEditorSubmittedQC,
		domain.ActionProjectAssigned,
	}, actions)
}

func TestQCReadyAndDelivered(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	env.assign(t, p)

	require.NoError(t, env.Engine.QCDecision(env.Ctx, env.QC, p.ID, engine.QCDecisionInput{Decision: engine.DecisionReady}))
	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, got.Status)

	require.NoError(t, env.Engine.QCDecision(env.Ctx, env.Admin, p.ID, engine.QCDecisionInput{Decision: engine.DecisionDelivered}))
	got, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)

	msgs, err := env.Engine.Messages(env.Ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "QC approved this project and marked it ready.", msgs[0].Body)
	assert.Equal(t, "QC marked this project as delivered.", msgs[1].Body)
	for _, m := range msgs {
		assert.Equal(t, domain.MessageTypeSystem, m.MessageType)
		assert.Nil(t, m.SenderID)
	}

	err = env.Engine.QCDecision(env.Ctx, env.QC, p.ID, engine.QCDecisionInput{Decision: engine.DecisionReady})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err), "delivered work cannot go back to ready")

	err = env.Engine.QCDecision(env.Ctx, env.Editor, p.ID, engine.QCDecisionInput{Decision: engine.DecisionDelivered})
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))

	err = env.Engine.QCDecision(env.Ctx, env.QC, p.ID, engine.QCDecisionInput{Decision: "approve"})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))
}

func TestRequestRevision(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	env.assign(t, p)
	require.NoError(t, env.Engine.UpdateEditorWork(env.Ctx, env.Editor, p.ID, engine.EditorUpdateInput{Status: statusPtr(domain.StatusQC)}))

	require.NoError(t, env.Engine.QCDecision(env.Ctx, env.QC, p.ID, engine.QCDecisionInput{
		Decision: engine.DecisionRequestRevision,
		Tags:     []string{"color", " audio ", "color"},
		Notes:    "Fix the grade in the kitchen",
	}))

	detail, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRevisionRequested, detail.Project.Status)
	assert.Equal(t, 1, detail.Project.RevisionCount)
	require.Len(t, detail.Revisions, 1)
	rev := detail.Revisions[0]
	assert.Equal(t, []string{"color", "audio"}, rev.ReasonTags)
	assert.Equal(t, env.QC.ID, rev.RequestedBy)
	require.NotNil(t, rev.EditorID)
	assert.Equal(t, env.Editor.ID, *rev.EditorID)

	require.NotEmpty(t, detail.Activity)
	assert.Equal(t, domain.ActionRevisionRequested, detail.Activity[0].Action)
	assert.Equal(t, []any{"color", "audio"}, detail.Activity[0].Meta["tags"])

	require.Len(t, detail.Messages, 1)
	assert.Equal(t, "Revision requested: color, audio.", detail.Messages[0].Body)
	assert.Equal(t, "Fix the grade in the kitchen", detail.Messages[0].Meta["notes"])

	require.NoError(t, env.Engine.QCDecision(env.Ctx, env.QC, p.ID, engine.QCDecisionInput{
		Decision: engine.DecisionRequestRevision,
		Tags:     []string{"pacing"},
		Notes:    "Too slow",
	}))
	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RevisionCount)
}

func TestRequestRevisionWithoutTagsOrNotesChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	env.assign(t, p)

	for _, in := range []engine.QCDecisionInput{
		{Decision: engine.DecisionRequestRevision, Notes: "needs work"},
		{Decision: engine.DecisionRequestRevision, Tags: []string{" "}, Notes: "needs work"},
		{Decision: engine.DecisionRequestRevision, Tags: []string{"audio"}},
		{Decision: engine.DecisionRequestRevision, Tags: []string{"audio"}, Notes: "   "},
	} {
		err := env.Engine.QCDecision(env.Ctx, env.QC, p.ID, in)
		assert.Equal(t, engine.KindValidation, engine.KindOf(err))
	}
	detail, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, detail.Project.Status)
	assert.Equal(t, 0, detail.Project.RevisionCount)
	assert.Empty(t, detail.Revisions)
	assert.Empty(t, detail.Messages)
}

func TestUpdateProjectDetails(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.QC, "")
	before, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, before.Deliverables, 3)

	needsInfo := true
	err = env.Engine.UpdateProjectDetails(env.Ctx, env.QC, p.ID, engine.DetailsInput{
		Title:          "",
		Address:        "301 Grove St",
		Type:           "",
		Priority:       "rush",
		RawFootageURL:  "",
		BrandAssetsURL: "https://brand",
		NeedsInfo:      &needsInfo,
	}, []engine.DeliverableInput{
		{ID: before.Deliverables[0].ID, Label: "Main video 60s", Specs: "4k", Completed: true},
		{Label: "Reel"},
		{Label: "   "},
	})
	require.NoError(t, err)

	after, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, after.Project.Title)
	assert.Equal(t, "listing", after.Project.Type)
	assert.Equal(t, domain.PriorityRush, after.Project.Priority)
	require.NotNil(t, after.Project.RawFootageURL)
	assert.Equal(t, "https://drive.example.com/raw", *after.Project.RawFootageURL)
	require.NotNil(t, after.Project.Address)
	assert.Nil(t, after.Project.Notes)
	assert.True(t, after.Project.NeedsInfo)

	require.Len(t, after.Deliverables, 4)
	assert.Equal(t, "Main video 60s", after.Deliverables[0].Label)
	assert.True(t, after.Deliverables[0].Completed)
	assert.Equal(t, "Reel", after.Deliverables[3].Label)

	require.Len(t, after.Activity, 1)
	assert.Equal(t, domain.ActionProjectUpdated, after.Activity[0].Action)
	assert.Nil(t, after.Activity[0].Meta)
}

func TestUpdateProjectDetailsPermissions(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.QC, "")

	err := env.Engine.UpdateProjectDetails(env.Ctx, env.Editor, p.ID, engine.DetailsInput{Title: "x"}, nil)
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))

	otherQC := auth.Actor{ID: "qc-2", Role: domain.RoleQC}
	err = env.Engine.UpdateProjectDetails(env.Ctx, otherQC, p.ID, engine.DetailsInput{Title: "x"}, nil)
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err), "qc that did not create the project")

	require.NoError(t, env.Engine.UpdateProjectDetails(env.Ctx, env.Admin, p.ID, engine.DetailsInput{Title: "Renamed"}, nil))

	err = env.Engine.UpdateProjectDetails(env.Ctx, env.Admin, p.ID, engine.DetailsInput{}, []engine.DeliverableInput{{ID: "nope", Label: "x"}})
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))
	got, err := env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title, "failed update rolled back")
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")

	_, err := env.Engine.SendMessage(env.Ctx, env.Editor, p.ID, "   ")
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	m, err := env.Engine.SendMessage(env.Ctx, env.Editor, p.ID, "  First cut is up  ")
	require.NoError(t, err)
	assert.Equal(t, "First cut is up", m.Body)
	assert.Equal(t, domain.MessageTypeUser, m.MessageType)

	_, err = env.Engine.SendMessage(env.Ctx, env.Editor, "missing", "hi")
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))

	detail, err := env.Engine.ProjectDetail(env.Ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, detail.Activity, 1)
	assert.Equal(t, domain.ActionMessageSent, detail.Activity[0].Action)
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "notes")
	_, err := env.Engine.SendMessage(env.Ctx, env.Admin, p.ID, "hello")
	require.NoError(t, err)

	for _, actor := range []auth.Actor{env.QC, env.Editor} {
		err := env.Engine.DeleteProject(env.Ctx, actor, p.ID)
		assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))
	}
	_, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err, "project survives a denied delete")

	require.NoError(t, env.Engine.DeleteProject(env.Ctx, env.Admin, p.ID))
	_, err = env.Engine.GetProject(env.Ctx, p.ID)
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))
	deliverables, err := env.Engine.Repo.ListDeliverables(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, deliverables)

	err = env.Engine.DeleteProject(env.Ctx, env.Admin, p.ID)
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))
}

func TestQueue(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, env.Admin, "")
	q := env.createProject(t, env.Admin, "")
	env.assign(t, p)
	env.assign(t, q)
	require.NoError(t, env.Engine.QCDecision(env.Ctx, env.QC, q.ID, engine.QCDecisionInput{Decision: engine.DecisionDelivered}))

	queue, err := env.Engine.Queue(env.Ctx, env.Editor)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, p.ID, queue[0].ID)

	queue, err = env.Engine.Queue(env.Ctx, env.Other)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestInviteUser(t *testing.T) {
	env := newTestEnv(t)

	p, err := env.Engine.InviteUser(env.Ctx, env.Admin, engine.InviteInput{FullName: "Nina", Email: " Nina@Example.com ", Password: "password-123", Role: domain.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, "nina@example.com", p.Email)
	assert.Equal(t, domain.RoleEditor, p.Role)

	logged, err := env.Engine.Auth.Authenticate(env.Ctx, "nina@example.com", "password-123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, logged.ID)
	_, err = env.Engine.Auth.Authenticate(env.Ctx, "nina@example.com", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	cases := []struct {
		name  string
		actor auth.Actor
		in    engine.InviteInput
		kind  engine.Kind
	}{
		{"qc cannot invite", env.QC, engine.InviteInput{FullName: "X", Email: "x@example.com", Password: "password-123", Role: domain.RoleEditor}, engine.KindPermissionDenied},
		{"duplicate email", env.Admin, engine.InviteInput{FullName: "Nina 2", Email: "nina@example.com", Password: "password-123", Role: domain.RoleEditor}, engine.KindValidation},
		{"short password", env.Admin, engine.InviteInput{FullName: "Y", Email: "y@example.com", Password: "short", Role: domain.RoleEditor}, engine.KindValidation},
		{"unknown role", env.Admin, engine.InviteInput{FullName: "Z", Email: "z@example.com", Password: "password-123", Role: "producer"}, engine.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Engine.InviteUser(env.Ctx, tc.actor, tc.in)
			assert.Equal(t, tc.kind, engine.KindOf(err))
		})
	}
}

func TestUpdateUserRoleKeepsLastAdmin(t *testing.T) {
	env := newTestEnv(t)

	err := env.Engine.UpdateUserRole(env.Ctx, env.Admin, env.Admin.ID, domain.RoleQC)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	err = env.Engine.UpdateUserRole(env.Ctx, env.QC, env.Editor.ID, domain.RoleQC)
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))

	err = env.Engine.UpdateUserRole(env.Ctx, env.Admin, "missing", domain.RoleQC)
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))

	require.NoError(t, env.Engine.UpdateUserRole(env.Ctx, env.Admin, env.QC.ID, domain.RoleAdmin))
	require.NoError(t, env.Engine.UpdateUserRole(env.Ctx, env.Admin, env.Admin.ID, domain.RoleEditor))

	actor, err := env.Engine.Auth.Actor(env.Ctx, env.Admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, actor.Role)
}

func TestUpdateAccount(t *testing.T) {
	env := newTestEnv(t)

	p, err := env.Engine.UpdateAccount(env.Ctx, env.Editor, engine.AccountInput{Email: strPtr("New.Mail@Example.com"), Password: strPtr("new-password-1")})
	require.NoError(t, err)
	assert.Equal(t, "new.mail@example.com", p.Email)
	_, err = env.Engine.Auth.Authenticate(env.Ctx, "new.mail@example.com", "new-password-1")
	require.NoError(t, err)

	_, err = env.Engine.UpdateAccount(env.Ctx, env.Other, engine.AccountInput{Email: strPtr("new.mail@example.com")})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	_, err = env.Engine.UpdateAccount(env.Ctx, env.Other, engine.AccountInput{})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	_, err = env.Engine.UpdateAccount(env.Ctx, env.Other, engine.AccountInput{Password: strPtr("short")})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))
}
