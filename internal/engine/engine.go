package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cutroom/internal/domain"
	"cutroom/internal/engine/auth"
	"cutroom/internal/events"
	"cutroom/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Now    func() time.Time
	Log    *zap.Logger
}

func New(db *sql.DB, log *zap.Logger) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:   db,
		Repo: r,
		Auth: auth.Service{Repo: r},
		Now:  time.Now,
		Log:  log,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

func (e Engine) events() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func (e Engine) logCommitted(action string, projectID string, actor auth.Actor, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("action", action),
		zap.String("project_id", projectID),
		zap.String("actor_id", actor.ID),
	}
	e.logger().Info("action committed", append(base, fields...)...)
}

func (e Engine) loadProjectTx(ctx context.Context, tx *sql.Tx, projectID string) (domain.Project, error) {
	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err == repo.ErrNotFound {
		return p, notFound("project", projectID)
	}
	return p, err
}

// CreateProjectInput carries the intake form.
type CreateProjectInput struct {
	Title          string
	ClientName     string
	Address        string
	Type           string
	Priority       domain.Priority
	DueAt          string
	RawFootageURL  string
	BrandAssetsURL string
	MusicAssetsURL string
	Notes          string
	Deliverables   string
	NeedsInfo      bool
}

// ParseDeliverables splits intake text on newlines or commas and drops blanks.
func ParseDeliverables(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseDue accepts a calendar date (midnight UTC) or an RFC3339 timestamp.
func ParseDue(v string) (string, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return domain.FormatTime(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return domain.FormatTime(t), nil
	}
	return "", invalid("due_at", fmt.Sprintf("invalid date %q", v))
}

func (e Engine) CreateProject(ctx context.Context, actor auth.Actor, in CreateProjectInput) (domain.Project, error) {
	if err := auth.RequireRole(actor, "create project", domain.RoleAdmin, domain.RoleQC); err != nil {
		return domain.Project{}, err
	}
	title := strings.TrimSpace(in.Title)
	clientName := strings.TrimSpace(in.ClientName)
	projectType := strings.TrimSpace(in.Type)
	rawURL := strings.TrimSpace(in.RawFootageURL)
	switch {
	case title == "":
		return domain.Project{}, invalid("title", "required")
	case clientName == "":
		return domain.Project{}, invalid("client_name", "required")
	case projectType == "":
		return domain.Project{}, invalid("type", "required")
	case strings.TrimSpace(in.DueAt) == "":
		return domain.Project{}, invalid("due_at", "required")
	case rawURL == "":
		return domain.Project{}, invalid("raw_footage_url", "required")
	}
	dueAt, err := ParseDue(in.DueAt)
	if err != nil {
		return domain.Project{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return domain.Project{}, invalid("priority", fmt.Sprintf("unknown priority %q", priority))
	}
	labels := ParseDeliverables(in.Deliverables)
	if len(labels) == 0 {
		return domain.Project{}, invalid("deliverables", "at least one deliverable required")
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	now := domain.FormatTime(e.now())
	client, err := e.Repo.ResolveClientTx(ctx, tx, clientName, now)
	if err != nil {
		return domain.Project{}, fmt.Errorf("resolve client: %w", err)
	}
	notes := strings.TrimSpace(in.Notes)
	p := domain.Project{
		ID:             uuid.NewString(),
		Title:          title,
		Address:        optionalString(in.Address),
		Type:           projectType,
		Priority:       priority,
		Status:         domain.StatusNew,
		DueAt:          &dueAt,
		ClientID:       &client.ID,
		ClientName:     client.Name,
		RawFootageURL:  &rawURL,
		BrandAssetsURL: optionalString(in.BrandAssetsURL),
		MusicAssetsURL: optionalString(in.MusicAssetsURL),
		Notes:          optionalString(notes),
		NeedsInfo:      in.NeedsInfo,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
	}
	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	for _, label := range labels {
		d := domain.Deliverable{
			ID:        uuid.NewString(),
			ProjectID: p.ID,
			Label:     label,
			CreatedAt: now,
		}
		if err := e.Repo.InsertDeliverableTx(ctx, tx, d); err != nil {
			return domain.Project{}, fmt.Errorf("insert deliverable: %w", err)
		}
	}
	// Intake without notes leaves no activity row.
	if notes != "" {
		if _, err := e.events().Append(ctx, tx, p.ID, actor.ID, domain.ActionProjectCreated, events.Meta{"notes": notes}); err != nil {
			return domain.Project{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	e.logCommitted(domain.ActionProjectCreated, p.ID, actor, zap.Int("deliverables", len(labels)))
	return p, nil
}

// DetailsInput is the edit form. Blank Type, Priority, RawFootageURL and Title keep
// the stored value; the other blank fields clear to NULL.
type DetailsInput struct {
	Title            string
	Address          string
	Type             string
	Priority         string
	Notes            string
	RawFootageURL    string
	BrandAssetsURL   string
	MusicAssetsURL   string
	PreviewURL       string
	FinalDeliveryURL string
	NeedsInfo        *bool
}

// DeliverableInput edits a row in place when ID is set, otherwise adds one.
type DeliverableInput struct {
	ID        string
	Label     string
	Specs     string
	Completed bool
}

func (e Engine) UpdateProjectDetails(ctx context.Context, actor auth.Actor, projectID string, in DetailsInput, deliverables []DeliverableInput) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := e.loadProjectTx(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if err := auth.RequireAdminOrCreator(actor, "update project details", p); err != nil {
		return err
	}
	d := repo.ProjectDetails{
		Title:            keepIfBlank(in.Title, p.Title),
		Address:          optionalString(in.Address),
		Type:             keepIfBlank(in.Type, p.Type),
		Priority:         domain.Priority(keepIfBlank(in.Priority, string(p.Priority))),
		Notes:            optionalString(in.Notes),
		RawFootageURL:    optionalString(keepIfBlank(in.RawFootageURL, derefString(p.RawFootageURL))),
		BrandAssetsURL:   optionalString(in.BrandAssetsURL),
		MusicAssetsURL:   optionalString(in.MusicAssetsURL),
		PreviewURL:       optionalString(in.PreviewURL),
		FinalDeliveryURL: optionalString(in.FinalDeliveryURL),
		NeedsInfo:        p.NeedsInfo,
	}
	if in.NeedsInfo != nil {
		d.NeedsInfo = *in.NeedsInfo
	}
	if !d.Priority.Valid() {
		return invalid("priority", fmt.Sprintf("unknown priority %q", d.Priority))
	}
	if err := e.Repo.UpdateProjectDetailsTx(ctx, tx, p.ID, d); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	now := domain.FormatTime(e.now())
	for _, item := range deliverables {
		label := strings.TrimSpace(item.Label)
		id := strings.TrimSpace(item.ID)
		if id == "" {
			if label == "" {
				continue
			}
			row := domain.Deliverable{
				ID:        uuid.NewString(),
				ProjectID: p.ID,
				Label:     label,
				Specs:     optionalString(item.Specs),
				Completed: item.Completed,
				CreatedAt: now,
			}
			if err := e.Repo.InsertDeliverableTx(ctx, tx, row); err != nil {
				return fmt.Errorf("insert deliverable: %w", err)
			}
			continue
		}
		if label == "" {
			return invalid("deliverables", fmt.Sprintf("deliverable %s label required", id))
		}
		row := domain.Deliverable{
			ID:        id,
			ProjectID: p.ID,
			Label:     label,
			Specs:     optionalString(item.Specs),
			Completed: item.Completed,
		}
		if err := e.Repo.UpdateDeliverableTx(ctx, tx, row); err != nil {
			if err == repo.ErrNotFound {
				return notFound("deliverable", id)
			}
			return fmt.Errorf("update deliverable: %w", err)
		}
	}
	if _, err := e.events().Append(ctx, tx, p.ID, actor.ID, domain.ActionProjectUpdated, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logCommitted(domain.ActionProjectUpdated, p.ID, actor, zap.Int("deliverables", len(deliverables)))
	return nil
}

func (e Engine) DeleteProject(ctx context.Context, actor auth.Actor, projectID string) error {
	if err := auth.RequireRole(actor, "delete project", domain.RoleAdmin); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := e.loadProjectTx(ctx, tx, projectID); err != nil {
		return err
	}
	if err := e.Repo.DeleteProjectTx(ctx, tx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logCommitted("PROJECT_DELETED", projectID, actor)
	return nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func keepIfBlank(v, current string) string {
	if strings.TrimSpace(v) == "" {
		return current
	}
	return strings.TrimSpace(v)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
