package repo

import (
	"context"
	"database/sql"
	"strings"

	"cutroom/internal/domain"
)

const profileColumns = `id,email,full_name,role,password_hash,created_at`

func scanProfile(row scanner) (domain.Profile, error) {
	var p domain.Profile
	var role string
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &role, &p.PasswordHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.Role = domain.Role(role)
	return p, err
}

func (r Repo) InsertProfile(ctx context.Context, p domain.Profile) error {
	return insertProfile(ctx, r.DB, p)
}

func (r Repo) InsertProfileTx(ctx context.Context, tx *sql.Tx, p domain.Profile) error {
	return insertProfile(ctx, tx, p)
}

func insertProfile(ctx context.Context, q queryer, p domain.Profile) error {
	_, err := q.ExecContext(ctx, `INSERT INTO profiles(id,email,full_name,role,password_hash,created_at) VALUES (?,?,?,?,?,?)`,
		p.ID, strings.ToLower(strings.TrimSpace(p.Email)), p.FullName, string(p.Role), p.PasswordHash, p.CreatedAt)
	return err
}

func (r Repo) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	return getProfile(ctx, r.DB, id)
}

func (r Repo) GetProfileTx(ctx context.Context, tx *sql.Tx, id string) (domain.Profile, error) {
	return getProfile(ctx, tx, id)
}

func getProfile(ctx context.Context, q queryer, id string) (domain.Profile, error) {
	return scanProfile(q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=?`, id))
}

func (r Repo) GetProfileByEmail(ctx context.Context, email string) (domain.Profile, error) {
	return getProfileByEmail(ctx, r.DB, email)
}

func (r Repo) GetProfileByEmailTx(ctx context.Context, tx *sql.Tx, email string) (domain.Profile, error) {
	return getProfileByEmail(ctx, tx, email)
}

func getProfileByEmail(ctx context.Context, q queryer, email string) (domain.Profile, error) {
	return scanProfile(q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email=?`, strings.ToLower(strings.TrimSpace(email))))
}

// ListProfiles returns profiles ordered by name; an empty role lists everyone.
func (r Repo) ListProfiles(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if role != "" {
		query += ` WHERE role=?`
		args = append(args, string(role))
	}
	query += ` ORDER BY full_name ASC, email ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}

func (r Repo) CountAdminsTx(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE role=?`, string(domain.RoleAdmin)).Scan(&n)
	return n, err
}

func (r Repo) UpdateProfileRoleTx(ctx context.Context, tx *sql.Tx, id string, role domain.Role) error {
	res, err := tx.ExecContext(ctx, `UPDATE profiles SET role=? WHERE id=?`, string(role), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// UpdateProfileAccountTx changes email and/or password hash; nil leaves a value untouched.
func (r Repo) UpdateProfileAccountTx(ctx context.Context, tx *sql.Tx, id string, email, passwordHash *string) error {
	var (
		fields []string
		args   []any
	)
	if email != nil {
		fields = append(fields, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*email)))
	}
	if passwordHash != nil {
		fields = append(fields, "password_hash=?")
		args = append(args, *passwordHash)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, `UPDATE profiles SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
