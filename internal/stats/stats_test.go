package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutroom/internal/domain"
	"cutroom/internal/stats"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func ts(t time.Time) string { return domain.FormatTime(t) }

func due(t time.Time) *string {
	v := ts(t)
	return &v
}

func editorID(id string) *string { return &id }

func project(id string, status domain.Status, mutate ...func(*domain.Project)) domain.Project {
	p := domain.Project{ID: id, Title: id, Status: status, Priority: domain.PriorityNormal}
	for _, m := range mutate {
		m(&p)
	}
	return p
}

func TestAverage(t *testing.T) {
	assert.Nil(t, stats.Average(nil))
	assert.Nil(t, stats.Average([]float64{}))
	got := stats.Average([]float64{4, 6})
	require.NotNil(t, got)
	assert.Equal(t, 5.0, *got)

	zero := stats.Average([]float64{0, 0})
	require.NotNil(t, zero, "zero is a value, not undefined")
	assert.Equal(t, 0.0, *zero)
}

func TestFormatAverage(t *testing.T) {
	assert.Equal(t, "N/A", stats.FormatAverage(nil))
	v := 2.26
	assert.Equal(t, "2.3", stats.FormatAverage(&v))
	z := 0.0
	assert.Equal(t, "0.0", stats.FormatAverage(&z))
}

func TestOverdue(t *testing.T) {
	now := t0
	projects := []domain.Project{
		project("late-2", domain.StatusEditing, func(p *domain.Project) { p.DueAt = due(now.Add(-time.Hour)) }),
		project("late-1", domain.StatusQC, func(p *domain.Project) { p.DueAt = due(now.Add(-48 * time.Hour)) }),
		project("blocked", domain.StatusEditing, func(p *domain.Project) {
			p.DueAt = due(now.Add(-72 * time.Hour))
			p.NeedsInfo = true
		}),
		project("delivered", domain.StatusDelivered, func(p *domain.Project) { p.DueAt = due(now.Add(-time.Hour)) }),
		project("archived", domain.StatusArchived, func(p *domain.Project) { p.DueAt = due(now.Add(-time.Hour)) }),
		project("future", domain.StatusNew, func(p *domain.Project) { p.DueAt = due(now.Add(time.Hour)) }),
		project("undated", domain.StatusNew),
	}
	got := stats.Overdue(projects, now)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"late-1", "late-2"}, ids)
}

func TestEditorWorkload(t *testing.T) {
	editors := []domain.Profile{
		{ID: "e2", FullName: "Zoe", Role: domain.RoleEditor},
		{ID: "e1", FullName: "Alex", Role: domain.RoleEditor},
	}
	assignedTo := func(id string) func(*domain.Project) {
		return func(p *domain.Project) { p.AssignedEditorID = editorID(id) }
	}
	projects := []domain.Project{
		project("a", domain.StatusEditing, assignedTo("e1")),
		project("b", domain.StatusEditing, assignedTo("e1")),
		project("c", domain.StatusOnHold, assignedTo("e1")),
		project("d", domain.StatusDelivered, assignedTo("e1")),
		project("e", domain.StatusArchived, assignedTo("e2")),
		project("f", domain.StatusNew),
	}
	w := stats.EditorWorkload(editors, projects)
	require.Len(t, w.Rows, 2)
	assert.Equal(t, "Alex", w.Rows[0].Editor.FullName)
	assert.Equal(t, 3, w.Rows[0].Total)
	assert.Equal(t, 2, w.Rows[0].Counts[domain.StatusEditing])
	assert.Equal(t, 1, w.Rows[0].Counts[domain.StatusOnHold])
	assert.NotContains(t, w.Rows[0].Counts, domain.StatusDelivered)
	assert.Len(t, w.Rows[0].Counts, len(domain.ActiveStatuses))
	assert.Equal(t, 0, w.Rows[1].Total)
	assert.Equal(t, 3, w.Max)

	empty := stats.EditorWorkload(editors, nil)
	assert.Equal(t, 1, empty.Max, "max never drops below one")
}

func activity(id int64, projectID, action string, at time.Time) domain.ActivityEntry {
	return domain.ActivityEntry{ID: id, ProjectID: projectID, Action: action, CreatedAt: ts(at)}
}

func TestCycleTimes(t *testing.T) {
	projects := []domain.Project{
		project("p", domain.StatusQC),
		project("backwards", domain.StatusQC),
		project("blocked", domain.StatusQC, func(p *domain.Project) { p.NeedsInfo = true }),
		project("unsubmitted", domain.StatusEditing),
	}
	entries := []domain.ActivityEntry{
		activity(1, "backwards", domain.ActionEditorSubmittedQC, t0),
		activity(2, "p", domain.ActionProjectAssigned, t0),
		activity(3, "blocked", domain.ActionProjectAssigned, t0),
		activity(4, "unsubmitted", domain.ActionProjectAssigned, t0),
		activity(5, "backwards", domain.ActionProjectAssigned, t0.Add(time.Hour)),
		activity(6, "p", domain.ActionProjectAssigned, t0.Add(24*time.Hour)),
		activity(7, "p", domain.ActionEditorSubmittedQC, t0.Add(48*time.Hour)),
		activity(8, "blocked", domain.ActionEditorSubmittedQC, t0.Add(24*time.Hour)),
		activity(9, "p", domain.ActionEditorSubmittedQC, t0.Add(96*time.Hour)),
	}
	got := stats.CycleTimes(projects, entries)
	assert.Equal(t, map[string]float64{"p": 2.0}, got)

	avg := stats.AverageCycleTime(projects, entries)
	require.NotNil(t, avg)
	assert.Equal(t, 2.0, *avg)

	assert.Nil(t, stats.AverageCycleTime(projects, entries[:1]), "no qualifying project")
}

func TestCycleTimeFractionalDays(t *testing.T) {
	projects := []domain.Project{project("p", domain.StatusQC), project("q", domain.StatusQC)}
	entries := []domain.ActivityEntry{
		activity(1, "p", domain.ActionProjectAssigned, t0),
		activity(2, "q", domain.ActionProjectAssigned, t0),
		activity(3, "p", domain.ActionEditorSubmittedQC, t0.Add(12*time.Hour)),
		activity(4, "q", domain.ActionEditorSubmittedQC, t0.Add(36*time.Hour)),
	}
	avg := stats.AverageCycleTime(projects, entries)
	require.NotNil(t, avg)
	assert.InDelta(t, 1.0, *avg, 1e-9)
}

func TestAverageRevisions(t *testing.T) {
	assert.Nil(t, stats.AverageRevisions(nil))
	projects := []domain.Project{
		project("a", domain.StatusQC, func(p *domain.Project) { p.RevisionCount = 3 }),
		project("b", domain.StatusQC, func(p *domain.Project) { p.NeedsInfo = true; p.RevisionCount = 1 }),
	}
	got := stats.AverageRevisions(projects)
	require.NotNil(t, got)
	assert.Equal(t, 2.0, *got)
}

func TestBoard(t *testing.T) {
	cols := stats.Board([]domain.Project{
		project("a", domain.StatusQC),
		project("b", domain.StatusNew),
		project("c", domain.StatusQC),
	})
	require.Len(t, cols, len(domain.Statuses))
	assert.Equal(t, domain.StatusNew, cols[0].Status)
	assert.Len(t, cols[0].Projects, 1)
	assert.Len(t, cols[3].Projects, 2)
	assert.Equal(t, domain.StatusQC, cols[3].Status)
	assert.NotNil(t, cols[8].Projects)
	assert.Empty(t, cols[8].Projects)
}

func TestDueWindow(t *testing.T) {
	now := time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	from, to, err := stats.DueWindow("", now)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)

	from, to, err = stats.DueWindow("overdue", now)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Equal(t, today, *to)

	from, to, err = stats.DueWindow("3d", now)
	require.NoError(t, err)
	assert.Equal(t, today, *from)
	assert.Equal(t, today.AddDate(0, 0, 3), *to)

	_, to, err = stats.DueWindow("7d", now)
	require.NoError(t, err)
	assert.Equal(t, today.AddDate(0, 0, 7), *to)

	_, _, err = stats.DueWindow("2w", now)
	assert.Error(t, err)
}
