// Package digest publishes a scheduled summary of overdue projects.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cutroom/internal/domain"
)

// Action is the code webhooks subscribe to for the digest.
const Action = "OVERDUE_DIGEST"

// parser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", expr, err)
	}
	return sched, nil
}

type OverdueSource interface {
	Overdue(ctx context.Context) ([]domain.Project, error)
}

type Publisher interface {
	Publish(ctx context.Context, action string, payload any) error
}

type Item struct {
	ProjectID        string  `json:"project_id"`
	Title            string  `json:"title"`
	Status           string  `json:"status"`
	DueAt            string  `json:"due_at"`
	AssignedEditorID *string `json:"assigned_editor_id,omitempty"`
}

type Payload struct {
	Action      string `json:"action"`
	GeneratedAt string `json:"generated_at"`
	Count       int    `json:"count"`
	Projects    []Item `json:"projects"`
}

type Scheduler struct {
	Source    OverdueSource
	Publisher Publisher
	Schedule  string
	Log       *zap.Logger
	Now       func() time.Time
}

func (s Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Scheduler) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

// Run builds one digest and publishes it. An empty overdue set is still
// published so subscribers see the job is alive.
func (s Scheduler) Run(ctx context.Context) (Payload, error) {
	projects, err := s.Source.Overdue(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("load overdue: %w", err)
	}
	p := Payload{
		Action:      Action,
		GeneratedAt: domain.FormatTime(s.now()),
		Count:       len(projects),
		Projects:    make([]Item, 0, len(projects)),
	}
	for _, pr := range projects {
		item := Item{
			ProjectID:        pr.ID,
			Title:            pr.Title,
			Status:           string(pr.Status),
			AssignedEditorID: pr.AssignedEditorID,
		}
		if pr.DueAt != nil {
			item.DueAt = *pr.DueAt
		}
		p.Projects = append(p.Projects, item)
	}
	s.logger().Info("overdue digest", zap.Int("count", p.Count))
	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, Action, p); err != nil {
			return p, fmt.Errorf("publish digest: %w", err)
		}
	}
	return p, nil
}

// Start runs the digest on schedule until ctx is cancelled.
func (s Scheduler) Start(ctx context.Context) error {
	if _, err := ParseSchedule(s.Schedule); err != nil {
		return err
	}
	c := cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.Schedule, func() {
		if _, err := s.Run(ctx); err != nil {
			s.logger().Warn("overdue digest failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.logger().Debug("digest scheduled", zap.String("schedule", s.Schedule))
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
