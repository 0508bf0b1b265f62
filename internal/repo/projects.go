package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cutroom/internal/domain"
)

const projectColumns = `p.id,p.title,p.address,p.type,p.priority,p.status,p.due_at,p.assigned_editor_id,p.client_id,COALESCE(c.name,''),
p.raw_footage_url,p.brand_assets_url,p.music_assets_url,p.preview_url,p.final_delivery_url,p.notes,
p.revision_count,p.needs_info,p.created_by,p.created_at`

const projectFrom = `FROM projects p LEFT JOIN clients c ON c.id = p.client_id`

func scanProject(row scanner) (domain.Project, error) {
	var (
		p                                        domain.Project
		address, dueAt, editorID, clientID       sql.NullString
		raw, brand, music, preview, final, notes sql.NullString
		priority, status                         string
	)
	err := row.Scan(&p.ID, &p.Title, &address, &p.Type, &priority, &status, &dueAt, &editorID, &clientID, &p.ClientName,
		&raw, &brand, &music, &preview, &final, &notes,
		&p.RevisionCount, &p.NeedsInfo, &p.CreatedBy, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Priority = domain.Priority(priority)
	p.Status = domain.Status(status)
	p.Address = strPtr(address)
	p.DueAt = strPtr(dueAt)
	p.AssignedEditorID = strPtr(editorID)
	p.ClientID = strPtr(clientID)
	p.RawFootageURL = strPtr(raw)
	p.BrandAssetsURL = strPtr(brand)
	p.MusicAssetsURL = strPtr(music)
	p.PreviewURL = strPtr(preview)
	p.FinalDeliveryURL = strPtr(final)
	p.Notes = strPtr(notes)
	return p, nil
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,title,address,type,priority,status,due_at,assigned_editor_id,client_id,
raw_footage_url,brand_assets_url,music_assets_url,preview_url,final_delivery_url,notes,revision_count,needs_info,created_by,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, nullablePtr(p.Address), p.Type, string(p.Priority), string(p.Status), nullablePtr(p.DueAt),
		nullablePtr(p.AssignedEditorID), nullablePtr(p.ClientID),
		nullablePtr(p.RawFootageURL), nullablePtr(p.BrandAssetsURL), nullablePtr(p.MusicAssetsURL),
		nullablePtr(p.PreviewURL), nullablePtr(p.FinalDeliveryURL), nullablePtr(p.Notes),
		p.RevisionCount, p.NeedsInfo, p.CreatedBy, p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return getProject(ctx, r.DB, id)
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	return getProject(ctx, tx, id)
}

func getProject(ctx context.Context, q queryer, id string) (domain.Project, error) {
	return scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` `+projectFrom+` WHERE p.id=?`, id))
}

// ProjectFilters narrows ListProjects. Zero values mean no constraint.
// DueFrom is inclusive, DueTo exclusive.
type ProjectFilters struct {
	Statuses      []domain.Status
	EditorID      string
	Priority      domain.Priority
	DueFrom       string
	DueTo         string
	ExcludeClosed bool
	Limit         int
}

// ListProjects orders by due date ascending with undated projects last.
func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	var (
		clauses []string
		args    []any
	)
	if len(f.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("p.status IN (%s)", placeholders(len(f.Statuses))))
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if f.EditorID != "" {
		clauses = append(clauses, "p.assigned_editor_id=?")
		args = append(args, f.EditorID)
	}
	if f.Priority != "" {
		clauses = append(clauses, "p.priority=?")
		args = append(args, string(f.Priority))
	}
	if f.DueFrom != "" {
		clauses = append(clauses, "p.due_at >= ?")
		args = append(args, f.DueFrom)
	}
	if f.DueTo != "" {
		clauses = append(clauses, "p.due_at < ?")
		args = append(args, f.DueTo)
	}
	if f.ExcludeClosed {
		clauses = append(clauses, "p.status NOT IN (?,?)")
		args = append(args, string(domain.StatusDelivered), string(domain.StatusArchived))
	}
	query := `SELECT ` + projectColumns + ` ` + projectFrom
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY p.due_at IS NULL, p.due_at ASC, p.created_at ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectDetails is the full editable column set written by UpdateProjectDetailsTx.
type ProjectDetails struct {
	Title            string
	Address          *string
	Type             string
	Priority         domain.Priority
	Notes            *string
	RawFootageURL    *string
	BrandAssetsURL   *string
	MusicAssetsURL   *string
	PreviewURL       *string
	FinalDeliveryURL *string
	NeedsInfo        bool
}

func (r Repo) UpdateProjectDetailsTx(ctx context.Context, tx *sql.Tx, id string, d ProjectDetails) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET title=?,address=?,type=?,priority=?,notes=?,
raw_footage_url=?,brand_assets_url=?,music_assets_url=?,preview_url=?,final_delivery_url=?,needs_info=? WHERE id=?`,
		d.Title, nullablePtr(d.Address), d.Type, string(d.Priority), nullablePtr(d.Notes),
		nullablePtr(d.RawFootageURL), nullablePtr(d.BrandAssetsURL), nullablePtr(d.MusicAssetsURL),
		nullablePtr(d.PreviewURL), nullablePtr(d.FinalDeliveryURL), d.NeedsInfo, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r Repo) SetAssignmentTx(ctx context.Context, tx *sql.Tx, id string, editorID, dueAt *string, status domain.Status) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET assigned_editor_id=?,due_at=?,status=? WHERE id=?`,
		nullablePtr(editorID), nullablePtr(dueAt), string(status), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r Repo) SetEditorWorkTx(ctx context.Context, tx *sql.Tx, id string, previewURL, finalURL *string, status domain.Status) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET preview_url=?,final_delivery_url=?,status=? WHERE id=?`,
		nullablePtr(previewURL), nullablePtr(finalURL), string(status), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r Repo) SetStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.Status) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// IncrementRevisionCountTx is the only writer of revision_count.
func (r Repo) IncrementRevisionCountTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET revision_count=revision_count+1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r Repo) DeleteProjectTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
