// Package demo holds the sample pipeline served when the store is unreachable
// and demo mode is on.
package demo

import (
	"strings"
	"time"

	"cutroom/internal/domain"
	"cutroom/internal/stats"
)

// EditorID owns the demo queue.
const EditorID = "demo-editor-1"

type Data struct {
	Projects []domain.Project
	Editors  []domain.Profile
	Activity []domain.ActivityEntry
}

type sample struct {
	id       string
	title    string
	status   domain.Status
	dueDays  int
	priority domain.Priority
	editor   string
}

var samples = []sample{
	{"demo-1", "Bluebird - 301 Grove St", domain.StatusNew, 5, domain.PriorityNormal, ""},
	{"demo-2", "Canyon - 88 Ridge Ln", domain.StatusNew, 7, domain.PriorityNormal, ""},
	{"demo-3", "Acme - 12 Oak St", domain.StatusEditing, 1, domain.PriorityNormal, EditorID},
	{"demo-4", "Canyon - 18 Desert Way", domain.StatusEditing, 6, domain.PriorityNormal, EditorID},
	{"demo-5", "Canyon - 66 Mesa Dr", domain.StatusQC, 0, domain.PriorityNormal, "demo-editor-2"},
	{"demo-6", "Bluebird - 9 Sunset Blvd", domain.StatusQC, 2, domain.PriorityNormal, "demo-editor-2"},
	{"demo-7", "Bluebird - 55 Ridge Ln", domain.StatusRevisionRequested, -1, domain.PriorityRush, EditorID},
}

// Load builds the sample data with due dates relative to now.
func Load(now time.Time) Data {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	created := domain.FormatTime(today.AddDate(0, 0, -10))
	d := Data{
		Editors: []domain.Profile{
			{ID: EditorID, Email: "alex@demo.cutroom", FullName: "Alex Editor", Role: domain.RoleEditor, CreatedAt: created},
			{ID: "demo-editor-2", Email: "sam@demo.cutroom", FullName: "Sam Editor", Role: domain.RoleEditor, CreatedAt: created},
		},
	}
	var seq int64
	for _, s := range samples {
		due := domain.FormatTime(today.AddDate(0, 0, s.dueDays).Add(17 * time.Hour))
		p := domain.Project{
			ID:         s.id,
			Title:      s.title,
			Type:       "listing",
			Priority:   s.priority,
			Status:     s.status,
			DueAt:      &due,
			ClientName: clientOf(s.title),
			CreatedBy:  "demo-admin",
			CreatedAt:  created,
		}
		if s.status == domain.StatusRevisionRequested {
			p.RevisionCount = 1
		}
		if s.editor != "" {
			editor := s.editor
			p.AssignedEditorID = &editor
			seq++
			d.Activity = append(d.Activity, domain.ActivityEntry{
				ID: seq, ProjectID: p.ID, Action: domain.ActionProjectAssigned,
				CreatedAt: domain.FormatTime(today.AddDate(0, 0, -6)),
			})
		}
		if s.status == domain.StatusQC || s.status == domain.StatusRevisionRequested {
			seq++
			d.Activity = append(d.Activity, domain.ActivityEntry{
				ID: seq, ProjectID: p.ID, Action: domain.ActionEditorSubmittedQC,
				CreatedAt: domain.FormatTime(today.AddDate(0, 0, -4)),
			})
		}
		d.Projects = append(d.Projects, p)
	}
	return d
}

func clientOf(title string) string {
	client, _, _ := strings.Cut(title, " - ")
	return client
}

func (d Data) Board() []stats.Column {
	return stats.Board(d.Projects)
}

// Queue is the demo editor's open work, whoever asks.
func (d Data) Queue() []domain.Project {
	var out []domain.Project
	for _, p := range d.Projects {
		if p.AssignedEditorID != nil && *p.AssignedEditorID == EditorID && !p.Status.Closed() {
			out = append(out, p)
		}
	}
	return out
}

func (d Data) Overdue(now time.Time) []domain.Project {
	return stats.Overdue(d.Projects, now)
}

func (d Data) Workload() stats.Workload {
	return stats.EditorWorkload(d.Editors, d.Projects)
}

func (d Data) Summary(now time.Time) stats.Summary {
	return stats.Summarize(d.Projects, d.Editors, d.Activity, now)
}
