package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cutroom/internal/domain"
)

const activityColumns = `id,project_id,actor_id,action,meta_json,created_at`

func scanActivity(row scanner) (domain.ActivityEntry, error) {
	var (
		a       domain.ActivityEntry
		actorID sql.NullString
		meta    sql.NullString
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &actorID, &a.Action, &meta, &a.CreatedAt); err != nil {
		return a, err
	}
	a.ActorID = strPtr(actorID)
	a.Meta = decodeMeta(meta)
	return a, nil
}

func (r Repo) queryActivity(ctx context.Context, query string, args ...any) ([]domain.ActivityEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityEntry
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListActivity returns the newest entries of one project first.
func (r Repo) ListActivity(ctx context.Context, projectID string, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryActivity(ctx, `SELECT `+activityColumns+` FROM activity_log WHERE project_id=? ORDER BY id DESC LIMIT ?`, projectID, limit)
}

// ListActivityByActions returns matching entries across all projects in insertion order.
func (r Repo) ListActivityByActions(ctx context.Context, actions ...string) ([]domain.ActivityEntry, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("at least one action required")
	}
	args := make([]any, 0, len(actions))
	for _, a := range actions {
		args = append(args, a)
	}
	return r.queryActivity(ctx, `SELECT `+activityColumns+` FROM activity_log WHERE action IN (`+placeholders(len(actions))+`) ORDER BY created_at ASC, id ASC`, args...)
}

// ActivityAfter pages forward from a cursor id, optionally filtered by action.
func (r Repo) ActivityAfter(ctx context.Context, afterID int64, limit int, actions []string) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"id > ?"}
	args := []any{afterID}
	if len(actions) > 0 {
		clauses = append(clauses, "action IN ("+placeholders(len(actions))+")")
		for _, a := range actions {
			args = append(args, a)
		}
	}
	args = append(args, limit)
	return r.queryActivity(ctx, `SELECT `+activityColumns+` FROM activity_log WHERE `+strings.Join(clauses, " AND ")+` ORDER BY id ASC LIMIT ?`, args...)
}

func (r Repo) LatestActivityID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM activity_log`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}
