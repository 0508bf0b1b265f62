package stats

import (
	"context"
	"fmt"
	"time"

	"cutroom/internal/domain"
	"cutroom/internal/repo"
)

// Service loads rows through repo and feeds them to the pure aggregates.
type Service struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ProjectQuery is the project list filter form. Due takes a DueWindow value.
type ProjectQuery struct {
	Status   string
	EditorID string
	Priority string
	Due      string
}

func (s Service) Projects(ctx context.Context, q ProjectQuery) ([]domain.Project, error) {
	f := repo.ProjectFilters{EditorID: q.EditorID}
	if q.Status != "" && q.Status != DueAll {
		st, ok := domain.ParseStatus(q.Status)
		if !ok {
			return nil, FilterError{Field: "status", Value: q.Status}
		}
		f.Statuses = []domain.Status{st}
	}
	if q.Priority != "" && q.Priority != DueAll {
		p := domain.Priority(q.Priority)
		if !p.Valid() {
			return nil, FilterError{Field: "priority", Value: q.Priority}
		}
		f.Priority = p
	}
	from, to, err := DueWindow(q.Due, s.now())
	if err != nil {
		return nil, FilterError{Field: "due", Value: q.Due}
	}
	if from != nil {
		f.DueFrom = domain.FormatTime(*from)
	}
	if to != nil {
		f.DueTo = domain.FormatTime(*to)
	}
	if q.Due == DueOverdue {
		f.ExcludeClosed = true
	}
	return s.Repo.ListProjects(ctx, f)
}

func (s Service) Board(ctx context.Context, q ProjectQuery) ([]Column, error) {
	projects, err := s.Projects(ctx, q)
	if err != nil {
		return nil, err
	}
	return Board(projects), nil
}

func (s Service) Overdue(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.Repo.ListProjects(ctx, repo.ProjectFilters{ExcludeClosed: true})
	if err != nil {
		return nil, err
	}
	return Overdue(projects, s.now()), nil
}

func (s Service) Workload(ctx context.Context) (Workload, error) {
	editors, err := s.Repo.ListProfiles(ctx, domain.RoleEditor)
	if err != nil {
		return Workload{}, err
	}
	projects, err := s.Repo.ListProjects(ctx, repo.ProjectFilters{Statuses: domain.ActiveStatuses})
	if err != nil {
		return Workload{}, err
	}
	return EditorWorkload(editors, projects), nil
}

func (s Service) Summary(ctx context.Context) (Summary, error) {
	projects, err := s.Repo.ListProjects(ctx, repo.ProjectFilters{})
	if err != nil {
		return Summary{}, err
	}
	editors, err := s.Repo.ListProfiles(ctx, domain.RoleEditor)
	if err != nil {
		return Summary{}, err
	}
	activity, err := s.Repo.ListActivityByActions(ctx, domain.ActionProjectAssigned, domain.ActionEditorSubmittedQC)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(projects, editors, activity, s.now()), nil
}

// FilterError reports an unrecognised list filter value.
type FilterError struct {
	Field string
	Value string
}

func (e FilterError) Error() string {
	return fmt.Sprintf("unknown %s filter %q", e.Field, e.Value)
}
