package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cutroom/internal/domain"
)

func (r Repo) InsertRevisionTx(ctx context.Context, tx *sql.Tx, rev domain.Revision) error {
	tags, err := json.Marshal(rev.ReasonTags)
	if err != nil {
		return fmt.Errorf("marshal revision tags: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO revisions(id,project_id,requested_by,editor_id,tags_json,notes,created_at) VALUES (?,?,?,?,?,?,?)`,
		rev.ID, rev.ProjectID, rev.RequestedBy, nullablePtr(rev.EditorID), string(tags), rev.Notes, rev.CreatedAt)
	return err
}

func (r Repo) ListRevisions(ctx context.Context, projectID string) ([]domain.Revision, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,requested_by,editor_id,tags_json,notes,created_at FROM revisions WHERE project_id=? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Revision
	for rows.Next() {
		var rev domain.Revision
		var editorID sql.NullString
		var tags string
		if err := rows.Scan(&rev.ID, &rev.ProjectID, &rev.RequestedBy, &editorID, &tags, &rev.Notes, &rev.CreatedAt); err != nil {
			return nil, err
		}
		rev.EditorID = strPtr(editorID)
		if err := json.Unmarshal([]byte(tags), &rev.ReasonTags); err != nil {
			return nil, fmt.Errorf("decode revision %s tags: %w", rev.ID, err)
		}
		res = append(res, rev)
	}
	return res, rows.Err()
}
