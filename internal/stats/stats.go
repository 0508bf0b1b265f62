// Package stats computes the dashboard aggregates from project and activity rows.
package stats

import (
	"fmt"
	"sort"
	"time"

	"cutroom/internal/domain"
)

// Overdue returns SLA-eligible open projects whose due date is before now,
// earliest due first.
func Overdue(projects []domain.Project, now time.Time) []domain.Project {
	type dated struct {
		p   domain.Project
		due time.Time
	}
	var rows []dated
	for _, p := range projects {
		if p.NeedsInfo || p.DueAt == nil || p.Status.Closed() {
			continue
		}
		due, err := domain.ParseTime(*p.DueAt)
		if err != nil {
			continue
		}
		if due.Before(now) {
			rows = append(rows, dated{p: p, due: due})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].due.Before(rows[j].due) })
	out := make([]domain.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.p)
	}
	return out
}

type WorkloadRow struct {
	Editor domain.Profile        `json:"editor"`
	Counts map[domain.Status]int `json:"counts"`
	Total  int                   `json:"total"`
}

// Workload is the per-editor breakdown. Max is at least 1 and only scales
// display bars.
type Workload struct {
	Rows []WorkloadRow `json:"rows"`
	Max  int           `json:"max"`
}

// EditorWorkload counts assigned projects per editor across the active statuses.
// Delivered and archived work is left out of every count.
func EditorWorkload(editors []domain.Profile, projects []domain.Project) Workload {
	byEditor := map[string]map[domain.Status]int{}
	for _, p := range projects {
		if p.AssignedEditorID == nil || !p.Status.Active() {
			continue
		}
		counts := byEditor[*p.AssignedEditorID]
		if counts == nil {
			counts = map[domain.Status]int{}
			byEditor[*p.AssignedEditorID] = counts
		}
		counts[p.Status]++
	}
	sorted := append([]domain.Profile(nil), editors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FullName < sorted[j].FullName })

	w := Workload{Rows: make([]WorkloadRow, 0, len(sorted)), Max: 1}
	for _, ed := range sorted {
		if ed.Role != domain.RoleEditor {
			continue
		}
		row := WorkloadRow{Editor: ed, Counts: make(map[domain.Status]int, len(domain.ActiveStatuses))}
		for _, s := range domain.ActiveStatuses {
			n := byEditor[ed.ID][s]
			row.Counts[s] = n
			row.Total += n
		}
		if row.Total > w.Max {
			w.Max = row.Total
		}
		w.Rows = append(w.Rows, row)
	}
	return w
}

const msPerDay = 86_400_000

// CycleTimes returns assigned-to-QC durations in days keyed by project id.
// activity must be in ascending order; the first occurrence of each action wins.
// Projects flagged needs_info, missing either event, or with QC before
// assignment are left out.
func CycleTimes(projects []domain.Project, activity []domain.ActivityEntry) map[string]float64 {
	eligible := map[string]bool{}
	for _, p := range projects {
		if !p.NeedsInfo {
			eligible[p.ID] = true
		}
	}
	assigned := map[string]time.Time{}
	submitted := map[string]time.Time{}
	for _, a := range activity {
		if !eligible[a.ProjectID] {
			continue
		}
		var target map[string]time.Time
		switch a.Action {
		case domain.ActionProjectAssigned:
			target = assigned
		case domain.ActionEditorSubmittedQC:
			target = submitted
		default:
			continue
		}
		if _, seen := target[a.ProjectID]; seen {
			continue
		}
		t, err := domain.ParseTime(a.CreatedAt)
		if err != nil {
			continue
		}
		target[a.ProjectID] = t
	}
	out := map[string]float64{}
	for id, start := range assigned {
		end, ok := submitted[id]
		if !ok || end.Before(start) {
			continue
		}
		out[id] = float64(end.Sub(start).Milliseconds()) / msPerDay
	}
	return out
}

// AverageCycleTime is nil when no project qualifies.
func AverageCycleTime(projects []domain.Project, activity []domain.ActivityEntry) *float64 {
	times := CycleTimes(projects, activity)
	ids := make([]string, 0, len(times))
	for id := range times {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([]float64, 0, len(ids))
	for _, id := range ids {
		values = append(values, times[id])
	}
	return Average(values)
}

// AverageRevisions averages revision_count over every project.
func AverageRevisions(projects []domain.Project) *float64 {
	values := make([]float64, 0, len(projects))
	for _, p := range projects {
		values = append(values, float64(p.RevisionCount))
	}
	return Average(values)
}

// Average returns nil for an empty input, never zero.
func Average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

func FormatAverage(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

type Summary struct {
	ActiveProjects   int                   `json:"active_projects"`
	OpenRevisions    int                   `json:"open_revisions"`
	OverdueProjects  int                   `json:"overdue_projects"`
	AvgTurnaround    *float64              `json:"avg_turnaround_days"`
	AvgRevisions     *float64              `json:"avg_revisions"`
	Workload         Workload              `json:"workload"`
	ProjectsByStatus map[domain.Status]int `json:"projects_by_status"`
}

// Summarize computes the dashboard highlights. activity must hold the
// assignment and QC submission entries in ascending order.
func Summarize(projects []domain.Project, editors []domain.Profile, activity []domain.ActivityEntry, now time.Time) Summary {
	sum := Summary{
		OverdueProjects:  len(Overdue(projects, now)),
		AvgTurnaround:    AverageCycleTime(projects, activity),
		AvgRevisions:     AverageRevisions(projects),
		Workload:         EditorWorkload(editors, projects),
		ProjectsByStatus: map[domain.Status]int{},
	}
	for _, p := range projects {
		sum.ProjectsByStatus[p.Status]++
		if !p.Status.Closed() {
			sum.ActiveProjects++
		}
		if p.Status == domain.StatusRevisionRequested {
			sum.OpenRevisions++
		}
	}
	return sum
}

type Column struct {
	Status   domain.Status    `json:"status"`
	Projects []domain.Project `json:"projects"`
}

// Board groups projects into one column per status, in status order.
func Board(projects []domain.Project) []Column {
	cols := make([]Column, 0, len(domain.Statuses))
	index := map[domain.Status]int{}
	for i, s := range domain.Statuses {
		cols = append(cols, Column{Status: s, Projects: []domain.Project{}})
		index[s] = i
	}
	for _, p := range projects {
		if i, ok := index[p.Status]; ok {
			cols[i].Projects = append(cols[i].Projects, p)
		}
	}
	return cols
}

// Due windows accepted by DueWindow.
const (
	DueAll     = "all"
	DueOverdue = "overdue"
	Due3Days   = "3d"
	Due7Days   = "7d"
)

// DueWindow turns a list filter into due date bounds. from is inclusive,
// to is exclusive.
func DueWindow(window string, now time.Time) (from, to *time.Time, err error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch window {
	case "", DueAll:
		return nil, nil, nil
	case DueOverdue:
		return nil, &today, nil
	case Due3Days, Due7Days:
		days := 3
		if window == Due7Days {
			days = 7
		}
		end := today.AddDate(0, 0, days)
		return &today, &end, nil
	}
	return nil, nil, fmt.Errorf("unknown due window %q", window)
}
