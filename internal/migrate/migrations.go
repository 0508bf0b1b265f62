package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// ErrSchemaMismatch means the database does not carry the schema this build expects.
var ErrSchemaMismatch = errors.New("schema mismatch")

type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// expectedColumns is the column set every query in repo relies on.
var expectedColumns = map[string][]string{
	"profiles":         {"id", "email", "full_name", "role", "password_hash", "created_at"},
	"clients":          {"id", "name", "created_at"},
	"projects":         {"id", "title", "address", "type", "priority", "status", "due_at", "assigned_editor_id", "client_id", "raw_footage_url", "brand_assets_url", "music_assets_url", "preview_url", "final_delivery_url", "notes", "revision_count", "needs_info", "created_by", "created_at"},
	"deliverables":     {"id", "project_id", "label", "specs", "completed", "created_at"},
	"revisions":        {"id", "project_id", "requested_by", "editor_id", "tags_json", "notes", "created_at"},
	"activity_log":     {"id", "project_id", "actor_id", "action", "meta_json", "created_at"},
	"project_messages": {"id", "project_id", "sender_id", "body", "message_type", "meta_json", "created_at"},
}

func loadMigrations() ([]Migration, error) {
	files, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}
	var migrations []Migration
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := migrationsFS.ReadFile("sql/" + f.Name())
		if err != nil {
			return nil, err
		}
		var v int
		_, err = fmt.Sscanf(f.Name(), "%d_", &v)
		if err != nil {
			return nil, fmt.Errorf("invalid migration filename %s: %w", f.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: v,
			Name:    f.Name(),
			UpSQL:   string(data),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Latest returns the highest embedded migration version.
func Latest() (int, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

// Migrate applies embedded migrations in order.
func Migrate(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var currentVersion int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema_version: %w", err)
		}
		currentVersion = 0
	} else if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		if _, err := tx.Exec(m.UpSQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version=?`, m.Version); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
		currentVersion = m.Version
	}
	return tx.Commit()
}

// Verify checks the recorded version and the column set of every table.
// Any difference is reported as ErrSchemaMismatch and must stop startup.
func Verify(db *sql.DB) error {
	latest, err := Latest()
	if err != nil {
		return err
	}
	var version int
	if err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		if err == sql.ErrNoRows || strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("%w: schema_version missing", ErrSchemaMismatch)
		}
		return fmt.Errorf("read schema_version: %w", err)
	}
	if version != latest {
		return fmt.Errorf("%w: database at version %d, build expects %d", ErrSchemaMismatch, version, latest)
	}
	tables := make([]string, 0, len(expectedColumns))
	for table := range expectedColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		present, err := tableColumns(db, table)
		if err != nil {
			return err
		}
		if len(present) == 0 {
			return fmt.Errorf("%w: table %s missing", ErrSchemaMismatch, table)
		}
		var missing []string
		for _, col := range expectedColumns[table] {
			if !present[col] {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: table %s missing columns %s", ErrSchemaMismatch, table, strings.Join(missing, ","))
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
