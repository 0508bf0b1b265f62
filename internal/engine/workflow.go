package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cutroom/internal/domain"
	"cutroom/internal/engine/auth"
	"cutroom/internal/events"
	"cutroom/internal/repo"
)

type transition string

const (
	transitionAssign    transition = "assign"
	transitionEditor    transition = "editor update"
	transitionReady     transition = "qc ready"
	transitionDelivered transition = "qc delivered"
	transitionRevision  transition = "qc request_revision"
)

// QC decisions.
const (
	DecisionReady           = "ready"
	DecisionDelivered       = "delivered"
	DecisionRequestRevision = "request_revision"
)

const (
	msgReady     = "QC approved this project and marked it ready."
	msgDelivered = "QC marked this project as delivered."
)

// nextStatus returns the status a project moves to, or a ValidationError
// when the action is not allowed from the current status.
func nextStatus(t transition, from, requested domain.Status) (domain.Status, error) {
	deny := func() (domain.Status, error) {
		return from, invalid("status", fmt.Sprintf("invalid status transition %s -> %s (%s)", from, requested, t))
	}
	if from == domain.StatusArchived {
		return deny()
	}
	switch t {
	case transitionAssign:
		if from == domain.StatusNew {
			return domain.StatusAssigned, nil
		}
		return from, nil
	case transitionEditor:
		if !requested.EditorOwned() || !from.EditorOwned() {
			return deny()
		}
		return requested, nil
	case transitionReady:
		if from == domain.StatusDelivered {
			return deny()
		}
		return domain.StatusReady, nil
	case transitionRevision:
		if from == domain.StatusDelivered {
			return deny()
		}
		return domain.StatusRevisionRequested, nil
	case transitionDelivered:
		return domain.StatusDelivered, nil
	}
	return deny()
}

// AssignInput fields left nil keep the stored value; a blank string clears it.
type AssignInput struct {
	EditorID *string
	DueAt    *string
}

// AssignProject sets or clears the editor and due date.
// Status only advances when the project is NEW.
func (e Engine) AssignProject(ctx context.Context, actor auth.Actor, projectID string, in AssignInput) error {
	if err := auth.RequireRole(actor, "assign project", domain.RoleAdmin, domain.RoleQC); err != nil {
		return err
	}
	var parsedDue *string
	if v := strings.TrimSpace(derefString(in.DueAt)); v != "" {
		parsed, err := ParseDue(v)
		if err != nil {
			return err
		}
		parsedDue = &parsed
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := e.loadProjectTx(ctx, tx, projectID)
	if err != nil {
		return err
	}
	editorID := p.AssignedEditorID
	if in.EditorID != nil {
		editorID = optionalString(*in.EditorID)
	}
	dueAt := p.DueAt
	if in.DueAt != nil {
		dueAt = parsedDue
	}
	if in.EditorID != nil && editorID != nil {
		editor, err := e.Repo.GetProfileTx(ctx, tx, *editorID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("editor", *editorID)
			}
			return err
		}
		if editor.Role != domain.RoleEditor {
			return invalid("editor_id", fmt.Sprintf("profile %s is not an editor", editor.ID))
		}
	}
	status, err := nextStatus(transitionAssign, p.Status, domain.StatusAssigned)
	if err != nil {
		return err
	}
	if err := e.Repo.SetAssignmentTx(ctx, tx, p.ID, editorID, dueAt, status); err != nil {
		return fmt.Errorf("assign project: %w", err)
	}
	meta := events.Meta{"editor_id": nilIfEmpty(editorID), "due_at": nilIfEmpty(dueAt)}
	if _, err := e.events().Append(ctx, tx, p.ID, actor.ID, domain.ActionProjectAssigned, meta); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logCommitted(domain.ActionProjectAssigned, p.ID, actor, zap.String("status", string(status)))
	return nil
}

type EditorUpdateInput struct {
	Status     *domain.Status
	PreviewURL *string
	FinalURL   *string
}

// UpdateEditorWork is restricted to the assigned editor. A nil URL keeps the
// stored link and a blank one clears it; a status change also records activity.
func (e Engine) UpdateEditorWork(ctx context.Context, actor auth.Actor, projectID string, in EditorUpdateInput) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := e.loadProjectTx(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if err := auth.RequireAssignedEditor(actor, "update editor work", p); err != nil {
		return err
	}
	status := p.Status
	changed := in.Status != nil && *in.Status != p.Status
	if changed {
		status, err = nextStatus(transitionEditor, p.Status, *in.Status)
		if err != nil {
			return err
		}
	} else if p.Status == domain.StatusArchived {
		return invalid("status", "archived projects cannot be updated")
	}
	preview, final := p.PreviewURL, p.FinalDeliveryURL
	if in.PreviewURL != nil {
		preview = in.PreviewURL
	}
	if in.FinalURL != nil {
		final = in.FinalURL
	}
	if err := e.Repo.SetEditorWorkTx(ctx, tx, p.ID, preview, final, status); err != nil {
		return fmt.Errorf("update editor work: %w", err)
	}
	if changed {
		action := domain.ActionEditorStatusUpdated
		if status == domain.StatusQC {
			action = domain.ActionEditorSubmittedQC
		}
		if _, err := e.events().Append(ctx, tx, p.ID, actor.ID, action, events.Meta{"status": string(status)}); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logCommitted("EDITOR_WORK_UPDATED", p.ID, actor, zap.String("status", string(status)), zap.Bool("status_changed", changed))
	return nil
}

type QCDecisionInput struct {
	Decision string
	Tags     []string
	Notes    string
}

func (e Engine) QCDecision(ctx context.Context, actor auth.Actor, projectID string, in QCDecisionInput) error {
	if err := auth.RequireRole(actor, "qc decision", domain.RoleAdmin, domain.RoleQC); err != nil {
		return err
	}
	decision := strings.ToLower(strings.TrimSpace(in.Decision))
	tags := normalizeTags(in.Tags)
	notes := strings.TrimSpace(in.Notes)
	switch decision {
	case DecisionReady, DecisionDelivered:
	case DecisionRequestRevision:
		if len(tags) == 0 {
			return invalid("tags", "at least one reason tag required")
		}
		if notes == "" {
			return invalid("notes", "required")
		}
	default:
		return invalid("decision", fmt.Sprintf("unknown decision %q", in.Decision))
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := e.loadProjectTx(ctx, tx, projectID)
	if err != nil {
		return err
	}
	var action string
	switch decision {
	case DecisionReady:
		action, err = e.approveTx(ctx, tx, actor, p, decision, transitionReady, domain.ActionProjectReady, msgReady)
	case DecisionDelivered:
		action, err = e.approveTx(ctx, tx, actor, p, decision, transitionDelivered, domain.ActionProjectDelivered, msgDelivered)
	case DecisionRequestRevision:
		action, err = e.requestRevisionTx(ctx, tx, actor, p, tags, notes)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logCommitted(action, p.ID, actor, zap.String("decision", decision))
	return nil
}

func (e Engine) approveTx(ctx context.Context, tx *sql.Tx, actor auth.Actor, p domain.Project, decision string, t transition, action, body string) (string, error) {
	target := domain.StatusReady
	if t == transitionDelivered {
		target = domain.StatusDelivered
	}
	status, err := nextStatus(t, p.Status, target)
	if err != nil {
		return "", err
	}
	if err := e.Repo.SetStatusTx(ctx, tx, p.ID, status); err != nil {
		return "", fmt.Errorf("set status: %w", err)
	}
	if _, err := e.events().Append(ctx, tx, p.ID, actor.ID, action, nil); err != nil {
		return "", err
	}
	if _, err := e.postSystemMessageTx(ctx, tx, p.ID, body, map[string]any{"decision": decision}); err != nil {
		return "", err
	}
	return action, nil
}

// requestRevisionTx writes the revision, the status change and the counter
// increment together.
func (e Engine) requestRevisionTx(ctx context.Context, tx *sql.Tx, actor auth.Actor, p domain.Project, tags []string, notes string) (string, error) {
	status, err := nextStatus(transitionRevision, p.Status, domain.StatusRevisionRequested)
	if err != nil {
		return "", err
	}
	rev := domain.Revision{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		RequestedBy: actor.ID,
		EditorID:    p.AssignedEditorID,
		ReasonTags:  tags,
		Notes:       notes,
		CreatedAt:   domain.FormatTime(e.now()),
	}
	if err := e.Repo.InsertRevisionTx(ctx, tx, rev); err != nil {
		return "", fmt.Errorf("insert revision: %w", err)
	}
	if err := e.Repo.SetStatusTx(ctx, tx, p.ID, status); err != nil {
		return "", fmt.Errorf("set status: %w", err)
	}
	if err := e.Repo.IncrementRevisionCountTx(ctx, tx, p.ID); err != nil {
		return "", fmt.Errorf("increment revision count: %w", err)
	}
	if _, err := e.events().Append(ctx, tx, p.ID, actor.ID, domain.ActionRevisionRequested, events.Meta{"tags": tags, "revision_id": rev.ID}); err != nil {
		return "", err
	}
	body := fmt.Sprintf("Revision requested: %s.", strings.Join(tags, ", "))
	if _, err := e.postSystemMessageTx(ctx, tx, p.ID, body, map[string]any{"notes": notes, "tags": tags}); err != nil {
		return "", err
	}
	return domain.ActionRevisionRequested, nil
}

func normalizeTags(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func nilIfEmpty(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
