package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"cutroom/internal/domain"
)

// ResolveClientTx returns the client with exactly this name, creating it when absent.
func (r Repo) ResolveClientTx(ctx context.Context, tx *sql.Tx, name, now string) (domain.Client, error) {
	var c domain.Client
	err := tx.QueryRowContext(ctx, `SELECT id,name,created_at FROM clients WHERE name=?`, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return c, err
	}
	c = domain.Client{ID: uuid.NewString(), Name: name, CreatedAt: now}
	if _, err := tx.ExecContext(ctx, `INSERT INTO clients(id,name,created_at) VALUES (?,?,?)`, c.ID, c.Name, c.CreatedAt); err != nil {
		return domain.Client{}, err
	}
	return c, nil
}

func (r Repo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM clients ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
