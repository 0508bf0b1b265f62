package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cutroom/internal/domain"
)

// Writer appends activity_log rows inside the caller's transaction.
type Writer struct {
	Now func() time.Time
}

type Meta map[string]any

// Append records one activity entry. A nil meta is stored as NULL.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, projectID, actorID, action string, meta Meta) (domain.ActivityEntry, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	entry := domain.ActivityEntry{
		ProjectID: projectID,
		Action:    action,
		Meta:      meta,
		CreatedAt: domain.FormatTime(w.Now()),
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	var metaJSON any
	if meta != nil {
		data, err := json.Marshal(meta)
		if err != nil {
			return entry, fmt.Errorf("marshal activity meta: %w", err)
		}
		metaJSON = string(data)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO activity_log(project_id,actor_id,action,meta_json,created_at) VALUES (?,?,?,?,?)`,
		projectID, nullable(actorID), action, metaJSON, entry.CreatedAt)
	if err != nil {
		return entry, err
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return entry, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
