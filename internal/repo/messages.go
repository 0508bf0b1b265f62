package repo

import (
	"context"
	"database/sql"
	"fmt"

	"cutroom/internal/domain"
)

const messageColumns = `id,project_id,sender_id,body,message_type,meta_json,created_at`

func scanMessage(row scanner) (domain.Message, error) {
	var (
		m        domain.Message
		senderID sql.NullString
		meta     sql.NullString
	)
	err := row.Scan(&m.ID, &m.ProjectID, &senderID, &m.Body, &m.MessageType, &meta, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	m.SenderID = strPtr(senderID)
	m.Meta = decodeMeta(meta)
	return m, nil
}

func (r Repo) InsertMessageTx(ctx context.Context, tx *sql.Tx, m domain.Message) error {
	meta, err := encodeMeta(m.Meta)
	if err != nil {
		return fmt.Errorf("marshal message meta: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO project_messages(id,project_id,sender_id,body,message_type,meta_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.ProjectID, nullablePtr(m.SenderID), m.Body, m.MessageType, meta, m.CreatedAt)
	return err
}

// ListMessages returns the latest limit messages of a project, oldest first.
func (r Repo) ListMessages(ctx context.Context, projectID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+messageColumns+` FROM (
  SELECT `+messageColumns+`, rowid AS seq FROM project_messages WHERE project_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?
) ORDER BY created_at ASC, seq ASC`, projectID, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// RecentMessages returns the newest limit messages across all projects, newest first.
func (r Repo) RecentMessages(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+messageColumns+` FROM project_messages ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()
	var res []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
