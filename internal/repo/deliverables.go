package repo

import (
	"context"
	"database/sql"

	"cutroom/internal/domain"
)

func (r Repo) InsertDeliverableTx(ctx context.Context, tx *sql.Tx, d domain.Deliverable) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO deliverables(id,project_id,label,specs,completed,created_at) VALUES (?,?,?,?,?,?)`,
		d.ID, d.ProjectID, d.Label, nullablePtr(d.Specs), d.Completed, d.CreatedAt)
	return err
}

// UpdateDeliverableTx edits a deliverable in place, scoped to its project.
func (r Repo) UpdateDeliverableTx(ctx context.Context, tx *sql.Tx, d domain.Deliverable) error {
	res, err := tx.ExecContext(ctx, `UPDATE deliverables SET label=?,specs=?,completed=? WHERE id=? AND project_id=?`,
		d.Label, nullablePtr(d.Specs), d.Completed, d.ID, d.ProjectID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r Repo) ListDeliverables(ctx context.Context, projectID string) ([]domain.Deliverable, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,label,specs,completed,created_at FROM deliverables WHERE project_id=? ORDER BY created_at ASC, rowid ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Deliverable
	for rows.Next() {
		var d domain.Deliverable
		var specs sql.NullString
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Label, &specs, &d.Completed, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Specs = strPtr(specs)
		res = append(res, d)
	}
	return res, rows.Err()
}
